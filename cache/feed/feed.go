// Package feed publishes engine status snapshots and recent events through
// the cache so the HTTP surface and other processes can read them without
// touching the tick loop.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/voxelpilot/cache"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"go.uber.org/zap"
)

// ErrNoStatus is returned by Latest before anything has been published.
var ErrNoStatus = errors.New("feed: no status published")

const (
	KeyStatus     = "pilot:status"
	KeyRender     = "pilot:render"
	KeyEvents     = "pilot:events"
	ChannelStatus = "pilot.status"
	ChannelEvents = "pilot.events"
)

type Config struct {
	StatusTTL time.Duration
	MaxEvents int
}

func DefaultConfig() Config {
	return Config{StatusTTL: 10 * time.Second, MaxEvents: 200}
}

// Publisher writes snapshots to a cache.Store and announces them on a
// cache.PubSub. It also implements pilot.EventSink.
type Publisher struct {
	store  cache.Store
	ps     cache.PubSub
	cfg    Config
	logger *zap.Logger
}

// New returns a Publisher. ps may be nil to skip announcements.
func New(store cache.Store, ps cache.PubSub, cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultConfig().MaxEvents
	}
	return &Publisher{store: store, ps: ps, cfg: cfg, logger: logger}
}

// Publish stores the status and render snapshots and announces the status.
func (p *Publisher) Publish(ctx context.Context, st pilot.Status, r pilot.RenderSnapshot) error {
	sb, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("feed: encode status: %w", err)
	}
	rb, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("feed: encode render: %w", err)
	}
	if err := p.store.Set(ctx, KeyStatus, string(sb), p.cfg.StatusTTL); err != nil {
		return fmt.Errorf("feed: store status: %w", err)
	}
	if err := p.store.Set(ctx, KeyRender, string(rb), p.cfg.StatusTTL); err != nil {
		return fmt.Errorf("feed: store render: %w", err)
	}
	if p.ps != nil {
		if err := p.ps.Publish(ctx, ChannelStatus, string(sb)); err != nil {
			return fmt.Errorf("feed: announce status: %w", err)
		}
	}
	return nil
}

// Latest returns the most recently published status.
func (p *Publisher) Latest(ctx context.Context) (pilot.Status, error) {
	var st pilot.Status
	err := p.load(ctx, KeyStatus, &st)
	return st, err
}

// LatestRender returns the most recently published render snapshot.
func (p *Publisher) LatestRender(ctx context.Context) (pilot.RenderSnapshot, error) {
	var r pilot.RenderSnapshot
	err := p.load(ctx, KeyRender, &r)
	return r, err
}

func (p *Publisher) load(ctx context.Context, key string, v any) error {
	raw, err := p.store.Get(ctx, key)
	if cache.IsNotFound(err) {
		return ErrNoStatus
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// Record appends the event to the capped recent-events list. Failures are
// logged, never returned, so the tick loop is not affected.
func (p *Publisher) Record(e pilot.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn("feed: encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.store.PushCapped(ctx, KeyEvents, string(b), p.cfg.MaxEvents); err != nil {
		p.logger.Warn("feed: push event", zap.String("type", e.Type), zap.Error(err))
		return
	}
	if p.ps != nil {
		if err := p.ps.Publish(ctx, ChannelEvents, string(b)); err != nil {
			p.logger.Warn("feed: announce event", zap.String("type", e.Type), zap.Error(err))
		}
	}
}

// Events returns up to n recent events, newest first.
func (p *Publisher) Events(ctx context.Context, n int) ([]pilot.Event, error) {
	raw, err := p.store.Range(ctx, KeyEvents, n)
	if err != nil {
		return nil, err
	}
	out := make([]pilot.Event, 0, len(raw))
	for _, s := range raw {
		var e pilot.Event
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Subscribe streams status announcements until cancel is called.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan pilot.Status, func(), error) {
	if p.ps == nil {
		return nil, nil, errors.New("feed: no pubsub configured")
	}
	msgs, cancel, err := p.ps.Subscribe(ctx, ChannelStatus)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan pilot.Status, 16)
	go func() {
		defer close(out)
		for m := range msgs {
			var st pilot.Status
			if err := json.Unmarshal([]byte(m.Payload), &st); err != nil {
				continue
			}
			select {
			case out <- st:
			default:
			}
		}
	}()
	return out, cancel, nil
}
