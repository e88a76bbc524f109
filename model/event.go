package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventLog is one row of the append-only engine event journal.
type EventLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MissionID string         `gorm:"index:idx_event_mission;size:36" json:"mission_id"`
	Type      string         `gorm:"index:idx_event_type;size:32;not null" json:"type"`
	Tick      uint64         `json:"tick"`
	X         int            `json:"x"`
	Y         int            `json:"y"`
	Z         int            `json:"z"`
	Distance  float64        `json:"distance"`
	Detail    datatypes.JSON `json:"detail"`
	At        time.Time      `gorm:"index:idx_event_at" json:"at"`
	CreatedAt time.Time      `gorm:"autoCreateTime:milli" json:"created_at"`
}
