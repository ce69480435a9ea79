package workflow

import (
	"context"
	"fmt"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"gorm.io/gorm"
)

// ClientApprovePitch is the client portal's approval entry point. It is
// idempotent: an already-completed pitch is returned unchanged with no new
// events and no second payout. Approval completes the pitch and its project
// in one step; payout scheduling is secondary and never blocks completion.
func (e *PitchWorkflowEngine) ClientApprovePitch(ctx context.Context, pitchId int, clientEmail string) (*models.Pitch, error) {

	db := config.GetDB()

	pitch, err := models.GetPitch(ctx, pitchId)
	if err != nil {
		return nil, err
	}
	var project models.Project
	if err := db.WithContext(ctx).First(&project, pitch.ProjectId).Error; err != nil {
		return nil, err
	}

	// Workflow-type gate comes first: a standard-workflow caller gets the
	// authorization error even when the status would also be wrong.
	if !project.IsClientManagement() {
		return nil, &UnauthorizedActionError{Reason: msgClientManagementOnly}
	}
	if pitch.Status == models.PitchStatusCompleted {
		return pitch, nil
	}
	if _, err := RequireTransition(pitch.Status, ActionClientApprove, project.WorkflowType); err != nil {
		return nil, err
	}

	var result *models.Pitch
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		// Re-check under the row lock: a concurrent duplicate (two webhook
		// deliveries, double-clicked portal button) must not double-complete.
		if locked.Status == models.PitchStatusCompleted {
			result = locked
			return nil
		}
		next, err := RequireTransition(locked.Status, ActionClientApprove, project.WorkflowType)
		if err != nil {
			return err
		}

		now := e.Now()
		updates := map[string]any{
			"status":       next,
			"completed_at": now,
		}
		if locked.ApprovedAt == nil {
			updates["approved_at"] = now
			locked.ApprovedAt = &now
		}
		if err := tx.Model(locked).Updates(updates).Error; err != nil {
			return err
		}
		locked.Status = next
		locked.CompletedAt = &now

		if locked.CurrentSnapshotId != nil {
			var snapshot models.PitchSnapshot
			if err := tx.First(&snapshot, *locked.CurrentSnapshotId).Error; err == nil {
				if snapshot.Status == models.SnapshotStatusPending || snapshot.Status == models.SnapshotStatusRevisionsRequested {
					if err := snapshot.SetStatus(tx, models.SnapshotStatusAccepted); err != nil {
						return err
					}
				}
			}
		}

		clientMeta := map[string]any{"client_email": clientEmail}
		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   locked.ID,
			EventType: models.PitchEventTypeClientApproved,
			Comment:   "Client approved the submission.",
			Status:    locked.Status,
			Metadata:  clientMeta,
		}); err != nil {
			return err
		}
		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   locked.ID,
			EventType: models.PitchEventTypeClientCompleted,
			Comment:   "Project automatically completed after client approval.",
			Status:    locked.Status,
			Metadata:  clientMeta,
		}); err != nil {
			return err
		}

		if err := tx.Model(&models.Project{}).
			Where("id = ?", project.ID).
			Updates(map[string]any{"status": models.ProjectStatusCompleted, "completed_at": now}).Error; err != nil {
			return err
		}

		// One combined notification: approved and completed.
		e.Notifier.Notify(tx, EventPitchApprovedAndCompleted, locked, locked.ProducerId, map[string]any{
			"project_title": project.Title,
			"client_email":  clientEmail,
		})

		result = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Payout scheduling is bookkeeping secondary to completion: a failure
	// here is logged, never surfaced, and completion stands.
	if result.PaymentStatus == models.PaymentStatusPaid {
		if _, err := e.Payouts.Schedule(ctx, result.ID); err != nil {
			config.LogError(config.GetLogger(), "workflow", "ClientApprovePitch", "schedule payout", map[string]any{
				"pitch_id": result.ID,
			}, err)
		}
	}

	return result, nil
}

// ClientRequestRevisions records the client's feedback and sends the pitch
// back to the producer.
func (e *PitchWorkflowEngine) ClientRequestRevisions(ctx context.Context, pitchId int, feedback string, clientEmail string) (*models.Pitch, error) {

	if feedback == "" {
		return nil, &SubmissionValidationError{Reason: "Feedback is required to request revisions."}
	}

	db := config.GetDB()

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

		next, err := RequireTransition(pitch.Status, ActionClientRequestRevisions, project.WorkflowType)
		if err != nil {
			return err
		}

		if pitch.CurrentSnapshotId != nil {
			var snapshot models.PitchSnapshot
			if err := tx.First(&snapshot, *pitch.CurrentSnapshotId).Error; err == nil {
				if snapshot.Status == models.SnapshotStatusPending {
					if err := snapshot.SetStatus(tx, models.SnapshotStatusRevisionsRequested); err != nil {
						return err
					}
				}
			}
		}

		if err := tx.Model(pitch).Update("status", next).Error; err != nil {
			return err
		}
		pitch.Status = next

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeClientRevisionsRequested,
			Comment:   fmt.Sprintf("Client requested revisions. Feedback: %s", feedback),
			Status:    pitch.Status,
			Metadata:  map[string]any{"client_email": clientEmail},
		}); err != nil {
			return err
		}

		e.Notifier.Notify(tx, EventPitchClientRevisions, pitch, pitch.ProducerId, map[string]any{
			"feedback":     feedback,
			"client_email": clientEmail,
		})

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
