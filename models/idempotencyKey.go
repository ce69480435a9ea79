package models

import (
	"time"
)

// IdempotencyKey guards exactly-once handling of external deliveries (payment
// webhooks, outbox consumers). The unique (handler_name, message_id) index is
// the actual guarantee; STARTED rows from crashed handlers are retried.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	HandlerName string            `gorm:"size:100;not null;uniqueIndex:uniq_handler_message" json:"handler_name"`
	MessageId   string            `gorm:"size:191;not null;uniqueIndex:uniq_handler_message" json:"message_id"`
	Status      IdempotencyStatus `gorm:"size:20;not null;default:'STARTED'" json:"status"`
	LastError   string            `gorm:"type:text" json:"last_error"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
