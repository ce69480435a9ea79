package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// SnapshotData is the opaque payload frozen at submission time: the working
// file-id set, the version number, and an optional response to prior feedback.
type SnapshotData struct {
	Version            int    `json:"version"`
	FileIds            []int  `json:"file_ids"`
	ResponseToFeedback string `json:"response_to_feedback,omitempty"`
}

type PitchSnapshot struct {
	ID      int    `gorm:"primary_key" json:"id"`
	PitchId int    `gorm:"not null;index" json:"pitch_id"`
	Pitch   *Pitch `gorm:"foreignKey:PitchId" json:"pitch,omitempty"`

	// Version is monotonic per pitch, starting at 1.
	Version int            `gorm:"not null" json:"version"`
	Status  SnapshotStatus `gorm:"size:50;not null;default:'pending'" json:"status"`

	SnapshotData json.RawMessage `gorm:"type:json" json:"snapshot_data"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *PitchSnapshot) DecodeData() (*SnapshotData, error) {
	data := SnapshotData{}
	if len(s.SnapshotData) == 0 {
		return &data, nil
	}
	if err := utils.UnmarshalFromJSON(s.SnapshotData, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreatePitchSnapshot inserts a new snapshot row inside tx. Snapshots are
// immutable once superseded; only their terminal status field moves.
func CreatePitchSnapshot(tx *gorm.DB, pitchId int, version int, data SnapshotData) (*PitchSnapshot, error) {
	raw, err := utils.MarshalToJSON(data)
	if err != nil {
		return nil, err
	}
	snapshot := PitchSnapshot{
		PitchId:      pitchId,
		Version:      version,
		Status:       SnapshotStatusPending,
		SnapshotData: json.RawMessage(raw),
	}
	if err := tx.Create(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func GetPitchSnapshot(ctx context.Context, id int) (*PitchSnapshot, error) {
	return utils.FetchModel[PitchSnapshot](ctx, id)
}

func GetPitchSnapshots(ctx context.Context, pitchId int) ([]*PitchSnapshot, error) {
	db := config.GetDB()
	var snapshots []*PitchSnapshot
	err := db.WithContext(ctx).
		Where("pitch_id = ?", pitchId).
		Order("version asc").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *PitchSnapshot) SetStatus(tx *gorm.DB, status SnapshotStatus) error {
	s.Status = status
	return tx.Model(s).Update("status", status).Error
}
