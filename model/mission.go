package model

import "time"

// MissionSummary records one mission from start to its final state.
type MissionSummary struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	OriginX    int        `json:"origin_x"`
	OriginY    int        `json:"origin_y"`
	OriginZ    int        `json:"origin_z"`
	HeadingDeg float64    `json:"heading_deg"`
	Target     float64    `json:"target"`
	Distance   float64    `json:"distance"`
	Progress   float64    `json:"progress"`
	Replans    int        `json:"replans"`
	Crises     int        `json:"crises"`
	Recoveries int        `json:"recoveries"`
	Switches   int        `json:"switches"`
	Outcome    string     `gorm:"size:16;index" json:"outcome"` // running | completed | stopped
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

const (
	OutcomeRunning   = "running"
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
)
