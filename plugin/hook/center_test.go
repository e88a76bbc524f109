package hook

import (
	"errors"
	"testing"

	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func ev(typ string) pilot.Event { return pilot.Event{Type: typ, Tick: 3} }

func TestNewCenter(t *testing.T) {
	c := NewCenter(nil)
	require.NotNil(t, c)
	c.Record(ev(pilot.EventCrisisStarted)) // no hooks
	assert.Zero(t, c.Len())
}

func TestRecord_MatchesType(t *testing.T) {
	c := NewCenter(zap.NewNop())
	var got []string
	c.Register(pilot.EventCrisisStarted, 0, "crisis", func(e pilot.Event) error {
		got = append(got, "crisis:"+e.Type)
		return nil
	})
	c.Register(Any, 0, "all", func(e pilot.Event) error {
		got = append(got, "all:"+e.Type)
		return nil
	})

	c.Record(ev(pilot.EventCrisisStarted))
	c.Record(ev(pilot.EventMissionStarted))
	assert.Equal(t, []string{
		"crisis:crisis_started",
		"all:crisis_started",
		"all:mission_started",
	}, got)
}

func TestRecord_PriorityOrder(t *testing.T) {
	c := NewCenter(nil)
	var order []string
	add := func(event string, p int, name string) {
		c.Register(event, p, name, func(pilot.Event) error {
			order = append(order, name)
			return nil
		})
	}
	add(Any, 10, "late")
	add(pilot.EventRecoveryStarted, 1, "early")
	add(Any, 5, "middle-a")
	add(pilot.EventRecoveryStarted, 5, "middle-b")

	c.Record(ev(pilot.EventRecoveryStarted))
	assert.Equal(t, []string{"early", "middle-a", "middle-b", "late"}, order)
}

func TestRecord_Interrupt(t *testing.T) {
	c := NewCenter(nil)
	calls := 0
	c.Register(Any, 0, "stop", func(pilot.Event) error { calls++; return ErrInterrupt })
	c.Register(Any, 1, "never", func(pilot.Event) error { calls++; return nil })
	c.Record(ev(pilot.EventBackendSwitch))
	assert.Equal(t, 1, calls)
}

func TestRecord_ErrorContinues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := NewCenter(zap.New(core))
	reached := false
	c.Register(Any, 0, "broken", func(pilot.Event) error { return errors.New("boom") })
	c.Register(Any, 1, "after", func(pilot.Event) error { reached = true; return nil })

	c.Record(ev(pilot.EventMissionStopped))
	assert.True(t, reached)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "broken", logs.All()[0].ContextMap()["hook"])
}

func TestUnregister(t *testing.T) {
	c := NewCenter(nil)
	n := 0
	c.Register(Any, 0, "a", func(pilot.Event) error { n++; return nil })
	c.Register(pilot.EventCrisisEnded, 0, "a", func(pilot.Event) error { n++; return nil })
	c.Register(Any, 0, "b", func(pilot.Event) error { n += 10; return nil })
	require.Equal(t, 3, c.Len())

	c.Unregister("a")
	assert.Equal(t, 1, c.Len())
	c.Record(ev(pilot.EventCrisisEnded))
	assert.Equal(t, 10, n)
}

type recorder struct{ events []pilot.Event }

func (r *recorder) Record(e pilot.Event) { r.events = append(r.events, e) }

func TestSink(t *testing.T) {
	c := NewCenter(nil)
	r := &recorder{}
	c.Sink(0, "rec", r)
	c.Record(ev(pilot.EventMissionCompleted))
	require.Len(t, r.events, 1)
	assert.Equal(t, pilot.EventMissionCompleted, r.events[0].Type)
}

func TestLogEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, LogEvents(zap.New(core))(ev(pilot.EventCrisisStarted)))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "crisis_started", logs.All()[0].ContextMap()["type"])
}
