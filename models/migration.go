package models

import (
	"log"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) {
	err := db.AutoMigrate(
		&User{},
		&Project{},
		&Pitch{},
		&PitchSnapshot{},
		&PitchEvent{},
		&PitchFile{},
		&PayoutSchedule{},
		&PayoutHoldSetting{},
		&NotificationOutbox{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}
}
