package pilot

import (
	"time"

	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/crisis"
	"github.com/kasuganosora/voxelpilot/game/navigator"
	"github.com/kasuganosora/voxelpilot/game/recovery"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// Status is the read-only command-surface snapshot, refreshed every tick.
type Status struct {
	Tick     uint64      `json:"tick"`
	At       time.Time   `json:"at"`
	Mode     string      `json:"mode"`
	Running  bool        `json:"running"`
	Position world.Coord `json:"position"`
	Health   float64     `json:"health"`
	Hunger   int         `json:"hunger"`
	Food     int         `json:"food"`

	Navigator string             `json:"navigator"`
	Mission   *navigator.Mission `json:"mission,omitempty"`
	Distance  float64            `json:"distance"`
	Progress  float64            `json:"progress"`
	Replans   int                `json:"replans"`

	Backend         backend.Status  `json:"backend"`
	BackendSwitches int             `json:"backend_switches"`
	Recovery        recovery.Status `json:"recovery"`
	Crisis          crisis.Status   `json:"crisis"`
	FallSaves       int             `json:"fall_saves"`
}

// RenderSnapshot is what an external visualizer draws.
type RenderSnapshot struct {
	Tick         uint64        `json:"tick"`
	Position     world.Coord   `json:"position"`
	Path         []world.Coord `json:"path"`
	Waypoint     *world.Coord  `json:"waypoint,omitempty"`
	FinalTarget  *world.Coord  `json:"final_target,omitempty"`
	Progress     float64       `json:"progress"`
	RecoveryPath []world.Coord `json:"recovery_path,omitempty"`
	Shelter      *world.Coord  `json:"shelter,omitempty"`
}
