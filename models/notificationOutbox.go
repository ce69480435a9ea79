package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// NotificationOutbox rows are written in the same transaction as the state
// change they announce. A background dispatcher publishes them to Pub/Sub and
// marks the outcome; delivery failures never roll back workflow writes.
type NotificationOutbox struct {
	ID int `gorm:"primary_key" json:"id"`

	EventType string `gorm:"size:100;not null;index" json:"event_type"`
	PitchId   int    `gorm:"not null;index" json:"pitch_id"`
	ProjectId int    `gorm:"not null" json:"project_id"`

	// Exactly one of RecipientId (account holder) or RecipientEmail (external
	// client, no account) addresses the notification.
	RecipientId    int    `gorm:"not null;default:0" json:"recipient_id"`
	RecipientEmail string `gorm:"size:255" json:"recipient_email"`

	Payload json.RawMessage `gorm:"type:json" json:"payload"`

	PublishStatus OutboxPublishStatus `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishError  string              `gorm:"type:text" json:"publish_error"`
	Attempts      int                 `gorm:"not null;default:0" json:"attempts"`
	PublishedAt   *time.Time          `json:"published_at"`
	MessageId     string              `gorm:"size:100" json:"message_id"`

	CorrelationId string `gorm:"size:100" json:"correlation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOutboxEntry struct {
	EventType      string
	PitchId        int
	ProjectId      int
	RecipientId    int
	RecipientEmail string
	Payload        map[string]any
	CorrelationId  string
}

func CreateOutboxEntry(tx *gorm.DB, input NewOutboxEntry) (*NotificationOutbox, error) {
	var raw json.RawMessage
	if input.Payload != nil {
		encoded, err := utils.MarshalToJSON(input.Payload)
		if err != nil {
			return nil, err
		}
		raw = json.RawMessage(encoded)
	}
	correlationId := input.CorrelationId
	if correlationId == "" && tx.Statement != nil && tx.Statement.Context != nil {
		correlationId, _ = utils.GetCorrelationIdFromContext(tx.Statement.Context)
	}
	entry := NotificationOutbox{
		EventType:      input.EventType,
		PitchId:        input.PitchId,
		ProjectId:      input.ProjectId,
		RecipientId:    input.RecipientId,
		RecipientEmail: input.RecipientEmail,
		Payload:        raw,
		PublishStatus:  OutboxPublishStatusPending,
		CorrelationId:  correlationId,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetPendingOutboxEntries returns the oldest undelivered entries.
func GetPendingOutboxEntries(ctx context.Context, limit int) ([]*NotificationOutbox, error) {
	db := config.GetDB()
	var entries []*NotificationOutbox
	err := db.WithContext(ctx).
		Where("publish_status = ?", OutboxPublishStatusPending).
		Order("id asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *NotificationOutbox) MarkPublished(ctx context.Context, messageId string) error {
	db := config.GetDB()
	now := time.Now()
	return db.WithContext(ctx).Model(e).Updates(map[string]any{
		"publish_status": OutboxPublishStatusPublished,
		"message_id":     messageId,
		"published_at":   now,
		"attempts":       gorm.Expr("attempts + 1"),
	}).Error
}

const outboxMaxAttempts = 10

// MarkPublishFailed records the failure and parks the entry as DEAD after
// exhausting its attempts. DEAD entries need operator attention.
func (e *NotificationOutbox) MarkPublishFailed(ctx context.Context, publishErr error) error {
	db := config.GetDB()
	status := OutboxPublishStatusPending
	if e.Attempts+1 >= outboxMaxAttempts {
		status = OutboxPublishStatusDead
	}
	return db.WithContext(ctx).Model(e).Updates(map[string]any{
		"publish_status": status,
		"publish_error":  publishErr.Error(),
		"attempts":       gorm.Expr("attempts + 1"),
	}).Error
}
