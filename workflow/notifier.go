package workflow

import (
	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"gorm.io/gorm"
)

// Notification event types consumed downstream (mailer, in-app fan-out).
const (
	EventPitchSubmitted            = "pitch.submitted"
	EventPitchClientReviewReady    = "pitch.client_review_ready"
	EventPitchApproved             = "pitch.approved"
	EventPitchDenied               = "pitch.denied"
	EventPitchRevisionsRequested   = "pitch.revisions_requested"
	EventPitchApprovedAndCompleted = "pitch.client_approved_and_completed"
	EventPitchClientRevisions      = "pitch.client_revisions_requested"
	EventPitchCompleted            = "pitch.completed"
	EventPitchClosed               = "pitch.closed"
	EventPayoutScheduled           = "payout.scheduled"
	EventPayoutBypassed            = "payout.hold_bypassed"
)

// Notifier announces workflow outcomes. Delivery is fire-and-forget relative
// to the calling transaction; implementations must never fail the workflow.
// NotifyClient addresses recipients who have no account (project clients
// reached by email through the portal).
type Notifier interface {
	Notify(tx *gorm.DB, eventType string, pitch *models.Pitch, recipientId int, payload map[string]any)
	NotifyClient(tx *gorm.DB, eventType string, pitch *models.Pitch, clientEmail string, payload map[string]any)
}

// outboxNotifier writes a NotificationOutbox row inside the workflow
// transaction. The dispatcher publishes it to Pub/Sub after commit, so a
// notification exists iff the state change committed.
type outboxNotifier struct{}

func NewOutboxNotifier() Notifier {
	return outboxNotifier{}
}

func (outboxNotifier) Notify(tx *gorm.DB, eventType string, pitch *models.Pitch, recipientId int, payload map[string]any) {
	if _, err := models.CreateOutboxEntry(tx, models.NewOutboxEntry{
		EventType:   eventType,
		PitchId:     pitch.ID,
		ProjectId:   pitch.ProjectId,
		RecipientId: recipientId,
		Payload:     payload,
	}); err != nil {
		// Losing a notification must not lose the state change.
		config.LogError(config.GetLogger(), "workflow", "Notify", "create outbox entry", map[string]any{
			"event_type": eventType,
			"pitch_id":   pitch.ID,
		}, err)
	}
}

func (outboxNotifier) NotifyClient(tx *gorm.DB, eventType string, pitch *models.Pitch, clientEmail string, payload map[string]any) {
	if _, err := models.CreateOutboxEntry(tx, models.NewOutboxEntry{
		EventType:      eventType,
		PitchId:        pitch.ID,
		ProjectId:      pitch.ProjectId,
		RecipientEmail: clientEmail,
		Payload:        payload,
	}); err != nil {
		config.LogError(config.GetLogger(), "workflow", "NotifyClient", "create outbox entry", map[string]any{
			"event_type": eventType,
			"pitch_id":   pitch.ID,
		}, err)
	}
}

// logNotifier is the no-infrastructure fallback used by tests and one-off
// tools: it only logs the event.
type logNotifier struct{}

func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(tx *gorm.DB, eventType string, pitch *models.Pitch, recipientId int, payload map[string]any) {
	config.GetLogger().WithField("event_type", eventType).
		WithField("pitch_id", pitch.ID).
		WithField("recipient_id", recipientId).
		Info("notification")
}

func (logNotifier) NotifyClient(tx *gorm.DB, eventType string, pitch *models.Pitch, clientEmail string, payload map[string]any) {
	config.GetLogger().WithField("event_type", eventType).
		WithField("pitch_id", pitch.ID).
		WithField("recipient_email", clientEmail).
		Info("notification")
}
