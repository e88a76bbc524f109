package backend

import (
	"errors"
	"time"

	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// Switch records a change of active backend.
type Switch struct {
	From   string
	To     string
	Reason string
}

// Selector is itself a Backend. It holds candidates in preference order,
// picks one when a mission starts, and moves to another candidate when the
// active one becomes unavailable or keeps failing.
type Selector struct {
	candidates  []Backend
	active      Backend
	maxFailures int
	target      world.Coord
	hasTarget   bool
	switches    int
	logger      *zap.Logger
	throttle    *throttle.Limiter
	onSwitch    func(Switch)
}

var _ Switcher = (*Selector)(nil)

// NewSelector builds a Selector over candidates, most preferred first.
func NewSelector(maxFailures int, logger *zap.Logger, lim *throttle.Limiter, candidates ...Backend) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFailures <= 0 {
		maxFailures = DefaultConfig().MaxFailures
	}
	s := &Selector{candidates: candidates, maxFailures: maxFailures, logger: logger, throttle: lim}
	s.Select()
	return s
}

// Select activates the most preferred available candidate.
func (s *Selector) Select() Backend {
	for _, c := range s.candidates {
		if c.Available() {
			s.active = c
			return c
		}
	}
	s.active = nil
	return nil
}

// Active returns the backend currently doing the work, or nil.
func (s *Selector) Active() Backend { return s.active }

// Switches counts backend changes since construction.
func (s *Selector) Switches() int { return s.switches }

// SetOnSwitch installs fn to be called after every change of backend.
func (s *Selector) SetOnSwitch(fn func(Switch)) { s.onSwitch = fn }

func (s *Selector) Name() string {
	if s.active == nil {
		return "none"
	}
	return s.active.Name()
}

func (s *Selector) Available() bool {
	for _, c := range s.candidates {
		if c.Available() {
			return true
		}
	}
	return false
}

func (s *Selector) PlanTo(target world.Coord) error {
	s.target, s.hasTarget = target, true
	if s.active == nil || !s.active.Available() {
		s.Select()
	}
	if s.active == nil {
		return ErrUnavailable
	}
	if err := s.active.PlanTo(target); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			// Counted as a failure by the backend; Tick fails over at the limit.
			s.logger.Debug("plan rejected", zap.String("backend", s.active.Name()), zap.Error(err))
			return nil
		}
		s.failover("unavailable")
		if s.active == nil {
			return err
		}
	}
	return nil
}

func (s *Selector) Tick(now time.Time, pos world.Coord) {
	if s.active == nil {
		if s.Select() == nil {
			return
		}
		if s.hasTarget {
			if err := s.active.PlanTo(s.target); err != nil {
				s.logger.Warn("re-plan on selected backend failed", zap.String("backend", s.active.Name()), zap.Error(err))
			}
		}
	}
	switch {
	case !s.active.Available():
		s.failover("unavailable")
	case s.active.Status().FailureCount >= s.maxFailures:
		s.failover("repeated failures")
	}
	if s.active != nil {
		s.active.Tick(now, pos)
	}
}

// failover moves to the next available candidate after the active one and
// re-issues the current target there. With no alternative the active
// backend is kept.
func (s *Selector) failover(reason string) {
	from := s.active
	next := s.next(from)
	if next == nil || next == from {
		if s.throttle.Allow("backend.no_alternative") {
			s.logger.Warn("no alternative path backend", zap.String("backend", s.Name()), zap.String("reason", reason))
		}
		if from != nil && !from.Available() {
			s.active = nil
		}
		return
	}
	if from != nil {
		from.Cancel()
	}
	s.active = next
	s.switches++
	if s.hasTarget {
		if err := next.PlanTo(s.target); err != nil {
			s.logger.Warn("re-plan on new backend failed", zap.String("backend", next.Name()), zap.Error(err))
		}
	}
	sw := Switch{To: next.Name(), Reason: reason}
	if from != nil {
		sw.From = from.Name()
	}
	if s.throttle.Allow("backend.switch") {
		s.logger.Info("path backend switched",
			zap.String("from", sw.From),
			zap.String("to", sw.To),
			zap.String("reason", reason),
		)
	}
	if s.onSwitch != nil {
		s.onSwitch(sw)
	}
}

func (s *Selector) next(from Backend) Backend {
	start := 0
	for i, c := range s.candidates {
		if c == from {
			start = i + 1
			break
		}
	}
	n := len(s.candidates)
	for k := 0; k < n; k++ {
		c := s.candidates[(start+k)%n]
		if c != from && c.Available() {
			return c
		}
	}
	return nil
}

func (s *Selector) NextStep(pos world.Coord) (world.Heading, bool) {
	if s.active == nil {
		return world.Heading{}, false
	}
	return s.active.NextStep(pos)
}

func (s *Selector) ShouldAscend(pos world.Coord) bool {
	return s.active != nil && s.active.ShouldAscend(pos)
}

// Cancel drops the target and any in-flight path on the active backend.
func (s *Selector) Cancel() {
	s.hasTarget = false
	if s.active != nil {
		s.active.Cancel()
	}
}

func (s *Selector) Status() Status {
	if s.active == nil {
		return Status{Backend: "none"}
	}
	return s.active.Status()
}

func (s *Selector) Path() []world.Coord {
	if s.active == nil {
		return nil
	}
	return s.active.Path()
}
