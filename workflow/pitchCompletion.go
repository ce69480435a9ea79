package workflow

import (
	"context"
	"fmt"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

const msgOnlyApprovedCompletable = "Only approved pitches can be marked as completed."

// CompletePitch marks an approved pitch as completed with optional feedback
// and a 1-5 rating. Completion flags whether payment is owed; it never
// charges anything itself. Other still-active pitches on the project are
// closed in the same sweep.
func (e *PitchWorkflowEngine) CompletePitch(ctx context.Context, pitchId int, feedback string, rating *int) (*models.Pitch, error) {

	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, &SubmissionValidationError{Reason: "Rating must be between 1 and 5."}
	}

	db := config.GetDB()
	approverId, _ := utils.GetUserIdFromContext(ctx)

	var result *models.Pitch
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		var project models.Project
		if err := tx.First(&project, pitch.ProjectId).Error; err != nil {
			return err
		}

		if pitch.Status != models.PitchStatusApproved {
			return &InvalidStatusTransitionError{Current: pitch.Status, Reason: msgOnlyApprovedCompletable}
		}
		next, err := RequireTransition(pitch.Status, ActionComplete, project.WorkflowType)
		if err != nil {
			return err
		}

		now := e.Now()
		paymentStatus := pitch.PaymentStatus
		// Completion flags the payment requirement; the charge itself is an
		// external flow. Already-settled payments are left alone.
		if paymentStatus != models.PaymentStatusPaid && paymentStatus != models.PaymentStatusFailed {
			if project.Budget.IsPositive() {
				paymentStatus = models.PaymentStatusPending
			} else {
				paymentStatus = models.PaymentStatusNotRequired
			}
		}

		if err := tx.Model(pitch).Updates(map[string]any{
			"status":              next,
			"completed_at":        now,
			"completion_feedback": feedback,
			"payment_status":      paymentStatus,
		}).Error; err != nil {
			return err
		}
		pitch.Status = next
		pitch.CompletedAt = &now
		pitch.CompletionFeedback = feedback
		pitch.PaymentStatus = paymentStatus

		if pitch.CurrentSnapshotId != nil {
			var snapshot models.PitchSnapshot
			if err := tx.First(&snapshot, *pitch.CurrentSnapshotId).Error; err == nil {
				if snapshot.Status == models.SnapshotStatusAccepted {
					if err := snapshot.SetStatus(tx, models.SnapshotStatusCompleted); err != nil {
						return err
					}
				}
			}
		}

		completionComment := "Pitch completed."
		if name, ok := utils.GetUserNameFromContext(ctx); ok && name != "" {
			completionComment = fmt.Sprintf("Pitch completed by %s.", name)
		}
		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   completionComment,
			Status:    pitch.Status,
			Rating:    rating,
			CreatedBy: &approverId,
		}); err != nil {
			return err
		}

		if err := e.closeOtherProjectPitches(tx, &project, pitch.ID); err != nil {
			return err
		}

		if err := tx.Model(&models.Project{}).
			Where("id = ?", project.ID).
			Updates(map[string]any{"status": models.ProjectStatusCompleted, "completed_at": now}).Error; err != nil {
			return err
		}

		e.Notifier.Notify(tx, EventPitchCompleted, pitch, pitch.ProducerId, map[string]any{
			"project_title": project.Title,
			"feedback":      feedback,
		})

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// closeOtherProjectPitches closes every other still-open pitch when one wins.
func (e *PitchWorkflowEngine) closeOtherProjectPitches(tx *gorm.DB, project *models.Project, winnerPitchId int) error {
	var others []*models.Pitch
	err := tx.Where("project_id = ? AND id <> ? AND status IN ?", project.ID, winnerPitchId, []models.PitchStatus{
		models.PitchStatusPending,
		models.PitchStatusInProgress,
		models.PitchStatusReadyForReview,
		models.PitchStatusApproved,
		models.PitchStatusRevisionsRequested,
	}).Find(&others).Error
	if err != nil {
		return err
	}
	for _, other := range others {
		if err := tx.Model(other).Update("status", models.PitchStatusClosed).Error; err != nil {
			return err
		}
		other.Status = models.PitchStatusClosed
		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   other.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   "Pitch closed: another pitch was selected for this project.",
			Status:    other.Status,
		}); err != nil {
			return err
		}
		e.Notifier.Notify(tx, EventPitchClosed, other, other.ProducerId, map[string]any{
			"project_title": project.Title,
		})
	}
	return nil
}

// CancelProjectPitches is the project-cancellation sweep: every pending or
// in-progress pitch is forced to closed, each producer notified, and the
// project marked cancelled. All-or-nothing; no per-pitch confirmation.
func (e *PitchWorkflowEngine) CancelProjectPitches(ctx context.Context, projectId int) (*models.Project, error) {

	db := config.GetDB()

	var project models.Project
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, projectId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if project.Status == models.ProjectStatusCancelled {
			return nil
		}
		if project.Status == models.ProjectStatusCompleted {
			return &InvalidStatusTransitionError{
				Reason: fmt.Sprintf("Project %d is completed and cannot be cancelled.", project.ID),
			}
		}

		var pitches []*models.Pitch
		err := tx.Where("project_id = ? AND status IN ?", project.ID, []models.PitchStatus{
			models.PitchStatusPending,
			models.PitchStatusInProgress,
		}).Find(&pitches).Error
		if err != nil {
			return err
		}

		for _, pitch := range pitches {
			if err := tx.Model(pitch).Update("status", models.PitchStatusClosed).Error; err != nil {
				return err
			}
			pitch.Status = models.PitchStatusClosed
			if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
				PitchId:   pitch.ID,
				EventType: models.PitchEventTypeStatusChange,
				Comment:   "Pitch closed: the project was cancelled.",
				Status:    pitch.Status,
			}); err != nil {
				return err
			}
			e.Notifier.Notify(tx, EventPitchClosed, pitch, pitch.ProducerId, map[string]any{
				"project_title": project.Title,
			})
		}

		if err := tx.Model(&models.Project{}).
			Where("id = ?", project.ID).
			Update("status", models.ProjectStatusCancelled).Error; err != nil {
			return err
		}
		project.Status = models.ProjectStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}
