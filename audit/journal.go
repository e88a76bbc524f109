// Package audit persists engine events and mission summaries.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultLimit = 100

// Config tunes the asynchronous writer.
type Config struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{QueueSize: 1024, BatchSize: 64, FlushInterval: 2 * time.Second}
}

// Journal writes events in batches from a background worker. It implements
// pilot.EventSink and never blocks the tick loop: when the queue is full the
// event is dropped and counted.
type Journal struct {
	db      *gorm.DB
	cfg     Config
	ch      chan pilot.Event
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	logger  *zap.Logger
	dropped atomic.Uint64
	written atomic.Uint64
}

// New creates a Journal and starts its background worker.
func New(db *gorm.DB, cfg Config, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	j := &Journal{
		db:     db,
		cfg:    cfg,
		ch:     make(chan pilot.Event, cfg.QueueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	j.wg.Add(1)
	go j.worker()
	return j
}

// Record enqueues an event for the next batch.
func (j *Journal) Record(e pilot.Event) {
	select {
	case <-j.stopCh:
		j.dropped.Add(1)
		return
	default:
	}
	select {
	case j.ch <- e:
	default:
		if j.dropped.Add(1) == 1 || j.dropped.Load()%100 == 0 {
			j.logger.Warn("journal queue full, dropping event",
				zap.String("type", e.Type),
				zap.Uint64("dropped", j.dropped.Load()))
		}
	}
}

// Dropped counts events lost to a full queue or a stopped journal.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Written counts events committed to the database.
func (j *Journal) Written() uint64 { return j.written.Load() }

// Stop flushes queued events and shuts down the worker. It returns early
// with ctx's error if the flush does not finish in time.
func (j *Journal) Stop(ctx context.Context) error {
	j.once.Do(func() { close(j.stopCh) })
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	if ctx == nil {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]pilot.Event, 0, j.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.write(batch); err != nil {
			j.logger.Error("journal batch write failed", zap.Int("events", len(batch)), zap.Error(err))
		} else {
			j.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-j.ch:
			batch = append(batch, e)
			if len(batch) >= j.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-j.stopCh:
			for {
				select {
				case e := <-j.ch:
					batch = append(batch, e)
					if len(batch) >= j.cfg.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// write commits one batch of event rows plus the mission summary changes
// they imply in a single transaction.
func (j *Journal) write(events []pilot.Event) error {
	rows := make([]model.EventLog, len(events))
	for i, e := range events {
		rows[i] = toRow(e)
	}
	return j.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		for _, e := range events {
			if err := applySummary(tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func toRow(e pilot.Event) model.EventLog {
	row := model.EventLog{
		Type:     e.Type,
		Tick:     e.Tick,
		X:        e.Position.X,
		Y:        e.Position.Y,
		Z:        e.Position.Z,
		Distance: e.Distance,
		At:       e.At,
	}
	if e.MissionID != uuid.Nil {
		row.MissionID = e.MissionID.String()
	}
	if len(e.Detail) > 0 {
		if b, err := json.Marshal(e.Detail); err == nil {
			row.Detail = datatypes.JSON(b)
		}
	}
	return row
}

// applySummary folds one event into its mission's summary row.
func applySummary(tx *gorm.DB, e pilot.Event) error {
	if e.MissionID == uuid.Nil {
		return nil
	}
	id := e.MissionID.String()
	bump := func(col string) error {
		return tx.Model(&model.MissionSummary{}).Where("id = ?", id).
			UpdateColumn(col, gorm.Expr(col+" + 1")).Error
	}
	finish := func(outcome string) error {
		at := e.At
		return tx.Model(&model.MissionSummary{}).Where("id = ?", id).Updates(map[string]any{
			"outcome":     outcome,
			"distance":    e.Distance,
			"finished_at": &at,
		}).Error
	}

	switch e.Type {
	case pilot.EventMissionStarted:
		heading, _ := e.Detail["heading"].(float64)
		s := model.MissionSummary{
			ID:         id,
			OriginX:    e.Position.X,
			OriginY:    e.Position.Y,
			OriginZ:    e.Position.Z,
			HeadingDeg: heading,
			Outcome:    model.OutcomeRunning,
			StartedAt:  e.At,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&s).Error
	case pilot.EventCrisisStarted:
		return bump("crises")
	case pilot.EventRecoveryStarted:
		return bump("recoveries")
	case pilot.EventBackendSwitch:
		return bump("switches")
	case pilot.EventMissionCompleted:
		return finish(model.OutcomeCompleted)
	case pilot.EventMissionStopped:
		return finish(model.OutcomeStopped)
	}
	return nil
}

// RecordMission refreshes the running mission's summary from a status
// snapshot. Statuses without a mission are ignored.
func (j *Journal) RecordMission(ctx context.Context, st pilot.Status) error {
	if st.Mission == nil {
		return nil
	}
	m := st.Mission
	return j.db.WithContext(ctx).Model(&model.MissionSummary{}).
		Where("id = ?", m.ID.String()).
		Updates(map[string]any{
			"target":   m.Origin.HorizontalDist(m.FinalTarget),
			"distance": st.Distance,
			"progress": st.Progress,
			"replans":  st.Replans,
		}).Error
}

// Recent returns up to n events, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]model.EventLog, error) {
	if n <= 0 {
		n = defaultLimit
	}
	var rows []model.EventLog
	err := j.db.WithContext(ctx).Order("id DESC").Limit(n).Find(&rows).Error
	return rows, err
}

// Missions returns up to n mission summaries, most recently started first.
func (j *Journal) Missions(ctx context.Context, n int) ([]model.MissionSummary, error) {
	if n <= 0 {
		n = defaultLimit
	}
	var rows []model.MissionSummary
	err := j.db.WithContext(ctx).Order("started_at DESC").Limit(n).Find(&rows).Error
	return rows, err
}

// Mission looks up a single summary by id.
func (j *Journal) Mission(ctx context.Context, id string) (model.MissionSummary, error) {
	var row model.MissionSummary
	err := j.db.WithContext(ctx).First(&row, "id = ?", id).Error
	return row, err
}
