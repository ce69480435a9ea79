package workflow

import (
	"context"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"gorm.io/gorm"
)

// MarkPitchAsPaid records a successful external payment. Payment status only
// ever moves forward from pending; the audit trail gets a status_change event
// with the payment reference. If the pitch already completed (payment landing
// after client approval), the payout is scheduled here instead.
func (e *PitchWorkflowEngine) MarkPitchAsPaid(ctx context.Context, pitchId int, paymentReference string) (*models.Pitch, error) {

	db := config.GetDB()

	var result *models.Pitch
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		if pitch.Status.IsTerminal() && pitch.Status != models.PitchStatusCompleted {
			return &InvalidStatusTransitionError{
				Current: pitch.Status,
				Reason:  "Payment cannot be recorded for a closed pitch.",
			}
		}
		// Re-delivered confirmations for an already-paid pitch are a no-op.
		if pitch.PaymentStatus == models.PaymentStatusPaid {
			result = pitch
			return nil
		}
		if err := pitch.MarkPaymentPaid(tx, e.Now()); err != nil {
			return err
		}

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   "Payment received.",
			Status:    pitch.Status,
			Metadata:  map[string]any{"payment_reference": paymentReference},
		}); err != nil {
			return err
		}

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == models.PitchStatusCompleted {
		if _, err := e.Payouts.Schedule(ctx, result.ID); err != nil {
			config.LogError(config.GetLogger(), "workflow", "MarkPitchAsPaid", "schedule payout", map[string]any{
				"pitch_id": result.ID,
			}, err)
		}
	}

	return result, nil
}

// MarkPitchPaymentFailed records a failed external payment attempt.
func (e *PitchWorkflowEngine) MarkPitchPaymentFailed(ctx context.Context, pitchId int, failureReason string) (*models.Pitch, error) {

	db := config.GetDB()

	var result *models.Pitch
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		if pitch.PaymentStatus == models.PaymentStatusFailed {
			result = pitch
			return nil
		}
		if err := pitch.MarkPaymentFailed(tx); err != nil {
			return err
		}

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   "Payment failed.",
			Status:    pitch.Status,
			Metadata:  map[string]any{"failure_reason": failureReason},
		}); err != nil {
			return err
		}

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
