package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the journal tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&EventLog{}, &MissionSummary{}); err != nil {
		return fmt.Errorf("model: migrate: %w", err)
	}
	return nil
}
