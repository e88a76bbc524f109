// Package scheduler runs the host's periodic work: engine ticks, status
// publishing and housekeeping.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn receives the wall-clock time the run was triggered.
type TaskFn func(now time.Time)

// TaskStats describes one ticker task.
type TaskStats struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         uint64        `json:"runs"`
	Panics       uint64        `json:"panics"`
	Overruns     uint64        `json:"overruns"`
	LastDuration time.Duration `json:"last_duration"`
}

// Scheduler manages periodic and delayed tasks.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	timers  map[string]*time.Timer
	logger  *zap.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type tickerEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
	stats  TaskStats
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		timers:  make(map[string]*time.Timer),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// AddTicker registers a task to run on a fixed interval. Runs never
// overlap; a run that outlasts the interval drops the ticks it missed.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopCh:
		return
	default:
	}

	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
		stats:  TaskStats{Name: name, Interval: interval},
	}
	s.tickers[name] = entry

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer entry.ticker.Stop()
		for {
			select {
			case now := <-entry.ticker.C:
				s.run(entry, now, fn)
			case <-entry.stopCh:
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) run(e *tickerEntry, now time.Time, fn TaskFn) {
	start := time.Now()
	panicked := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				s.logger.Error("scheduler task panicked",
					zap.String("task", e.stats.Name),
					zap.Any("recover", r))
			}
		}()
		fn(now)
	}()
	d := time.Since(start)

	s.mu.Lock()
	e.stats.Runs++
	e.stats.LastDuration = d
	if panicked {
		e.stats.Panics++
	}
	if d > e.stats.Interval {
		e.stats.Overruns++
	}
	s.mu.Unlock()
}

// AddDelay runs fn once after the given delay.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("delay task panicked",
					zap.String("task", name), zap.Any("recover", r))
			}
			s.mu.Lock()
			if s.timers[name] == t {
				delete(s.timers, name)
			}
			s.mu.Unlock()
		}()
		fn(time.Now())
	})
	s.timers[name] = t
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop stops all tasks and waits for running ticker tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	clear(s.tickers)
	s.mu.Unlock()
	s.wg.Wait()
}

// ListTickers returns the sorted names of all registered ticker tasks.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats snapshots every ticker task, sorted by name.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStats, 0, len(s.tickers))
	for _, e := range s.tickers {
		out = append(out, e.stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
