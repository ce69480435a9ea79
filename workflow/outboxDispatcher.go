package workflow

import (
	"context"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
)

const dispatcherBatchSize = 100

// OutboxDispatcher drains pending notification outbox rows to Pub/Sub.
// Entries that keep failing are parked DEAD by the model layer.
type OutboxDispatcher struct {
	Interval time.Duration
}

func NewOutboxDispatcher() *OutboxDispatcher {
	return &OutboxDispatcher{Interval: 5 * time.Second}
}

// Run polls until ctx is cancelled. Call from main() in its own goroutine.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchPending(ctx); err != nil {
				config.LogError(config.GetLogger(), "workflow", "Run", "dispatch outbox", nil, err)
			}
		}
	}
}

// DispatchPending publishes one batch of pending entries.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) error {
	entries, err := models.GetPendingOutboxEntries(ctx, dispatcherBatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		messageId, err := config.PublishNotification(ctx, config.NotificationMessage{
			ID:             entry.ID,
			EventType:      entry.EventType,
			PitchId:        entry.PitchId,
			ProjectId:      entry.ProjectId,
			RecipientId:    entry.RecipientId,
			RecipientEmail: entry.RecipientEmail,
			Payload:        entry.Payload,
			CorrelationId:  entry.CorrelationId,
			CreatedAt:      entry.CreatedAt,
		})
		if err != nil {
			config.LogError(config.GetLogger(), "workflow", "DispatchPending", "publish notification", map[string]any{
				"outbox_id":  entry.ID,
				"event_type": entry.EventType,
			}, err)
			if markErr := entry.MarkPublishFailed(ctx, err); markErr != nil {
				return markErr
			}
			continue
		}
		if err := entry.MarkPublished(ctx, messageId); err != nil {
			return err
		}
	}
	return nil
}
