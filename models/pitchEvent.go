package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// PitchEvent rows are append-only. They are never updated or deleted; the
// conversation/history view is their timestamp order.
type PitchEvent struct {
	ID      int `gorm:"primary_key" json:"id"`
	PitchId int `gorm:"not null;index" json:"pitch_id"`

	EventType PitchEventType `gorm:"size:50;not null" json:"event_type"`
	Comment   string         `gorm:"type:text" json:"comment"`
	Status    PitchStatus    `gorm:"size:50" json:"status"`

	// Rating 1-5, recorded on completion events only.
	Rating *int `json:"rating"`

	// CreatedBy is null for client-originated events; clients have no account.
	CreatedBy *int `json:"created_by"`

	Metadata json.RawMessage `gorm:"type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewPitchEvent struct {
	PitchId   int
	EventType PitchEventType
	Comment   string
	Status    PitchStatus
	Rating    *int
	CreatedBy *int
	Metadata  map[string]any
}

func CreatePitchEvent(tx *gorm.DB, input NewPitchEvent) (*PitchEvent, error) {
	var raw json.RawMessage
	if input.Metadata != nil {
		encoded, err := utils.MarshalToJSON(input.Metadata)
		if err != nil {
			return nil, err
		}
		raw = json.RawMessage(encoded)
	}
	event := PitchEvent{
		PitchId:   input.PitchId,
		EventType: input.EventType,
		Comment:   input.Comment,
		Status:    input.Status,
		Rating:    input.Rating,
		CreatedBy: input.CreatedBy,
		Metadata:  raw,
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func GetPitchEvents(ctx context.Context, pitchId int) ([]*PitchEvent, error) {
	db := config.GetDB()
	var events []*PitchEvent
	err := db.WithContext(ctx).
		Where("pitch_id = ?", pitchId).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
