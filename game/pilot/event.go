package pilot

import (
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// Event types emitted by the engine.
const (
	EventMissionStarted   = "mission_started"
	EventMissionStopped   = "mission_stopped"
	EventMissionCompleted = "mission_completed"
	EventCrisisStarted    = "crisis_started"
	EventCrisisEnded      = "crisis_ended"
	EventRecoveryStarted  = "recovery_started"
	EventRecoveryEnded    = "recovery_ended"
	EventBackendSwitch    = "backend_switch"
	EventFallProtection   = "fall_protection"
)

// Event is one notable transition, suitable for an append-only journal.
type Event struct {
	Type      string         `json:"type"`
	At        time.Time      `json:"at"`
	Tick      uint64         `json:"tick"`
	MissionID uuid.UUID      `json:"mission_id"`
	Position  world.Coord    `json:"position"`
	Distance  float64        `json:"distance"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// EventSink receives events synchronously from the tick loop and must not block.
type EventSink interface {
	Record(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Record(e Event) { f(e) }

// Sinks fans an event out to several sinks in order.
type Sinks []EventSink

func (s Sinks) Record(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Record(e)
		}
	}
}
