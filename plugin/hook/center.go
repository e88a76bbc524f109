// Package hook lets extensions observe engine events without touching the
// tick loop's wiring. A Center is itself a pilot.EventSink.
package hook

import (
	"errors"
	"slices"
	"sync"

	"github.com/kasuganosora/voxelpilot/game/pilot"
	"go.uber.org/zap"
)

// ErrInterrupt stops later hooks from seeing the event.
var ErrInterrupt = errors.New("hook interrupted")

// Any registers a hook for every event type.
const Any = "*"

// Fn handles one event. Returning ErrInterrupt ends dispatch; any other
// error is logged and dispatch continues.
type Fn func(e pilot.Event) error

type entry struct {
	priority int
	seq      int
	name     string
	fn       Fn
}

// Center dispatches events to hooks in priority order (lower first).
// Hooks run on the tick goroutine and must not block.
type Center struct {
	mu     sync.RWMutex
	hooks  map[string][]*entry
	seq    int
	logger *zap.Logger
}

func NewCenter(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{hooks: make(map[string][]*entry), logger: logger}
}

// Register adds fn for event, or for every event when event is Any. name is
// used by Unregister. Equal priorities run in registration order.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.hooks[event] = append(c.hooks[event], &entry{priority: priority, seq: c.seq, name: name, fn: fn})
}

// Sink registers an EventSink as a hook that sees every event.
func (c *Center) Sink(priority int, name string, s pilot.EventSink) {
	c.Register(Any, priority, name, func(e pilot.Event) error {
		s.Record(e)
		return nil
	})
}

// Unregister removes every hook called name, for all events.
func (c *Center) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for event, list := range c.hooks {
		list = slices.DeleteFunc(list, func(e *entry) bool { return e.name == name })
		if len(list) == 0 {
			delete(c.hooks, event)
			continue
		}
		c.hooks[event] = list
	}
}

// Len counts registered hooks.
func (c *Center) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, list := range c.hooks {
		n += len(list)
	}
	return n
}

// Record implements pilot.EventSink.
func (c *Center) Record(e pilot.Event) {
	c.mu.RLock()
	entries := make([]*entry, 0, len(c.hooks[e.Type])+len(c.hooks[Any]))
	entries = append(entries, c.hooks[e.Type]...)
	entries = append(entries, c.hooks[Any]...)
	c.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *entry) int {
		if a.priority != b.priority {
			return a.priority - b.priority
		}
		return a.seq - b.seq
	})
	for _, h := range entries {
		err := h.fn(e)
		if errors.Is(err, ErrInterrupt) {
			return
		}
		if err != nil {
			c.logger.Warn("hook failed", zap.String("hook", h.name), zap.String("event", e.Type), zap.Error(err))
		}
	}
}

// LogEvents returns a hook that writes each event to logger.
func LogEvents(logger *zap.Logger) Fn {
	return func(e pilot.Event) error {
		logger.Info("pilot event",
			zap.String("type", e.Type),
			zap.Uint64("tick", e.Tick),
			zap.Stringer("position", e.Position),
			zap.Float64("distance", e.Distance),
			zap.Any("detail", e.Detail),
		)
		return nil
	}
}
