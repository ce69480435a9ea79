package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

const msgNoFilesAttached = "Cannot submit pitch for review with no files attached."

// PitchWorkflowEngine orchestrates pitch status transitions. Every operation
// runs inside one transaction: the status change, the audit event and any
// snapshot/flag writes commit together or not at all.
type PitchWorkflowEngine struct {
	Notifier Notifier
	Payouts  *PayoutScheduler
	Now      func() time.Time
}

func NewPitchWorkflowEngine() *PitchWorkflowEngine {
	return &PitchWorkflowEngine{
		Notifier: NewOutboxNotifier(),
		Payouts:  NewPayoutScheduler(),
		Now:      time.Now,
	}
}

// SubmitForReview freezes the current working file set into a new snapshot
// and moves the pitch to ready_for_review. The previous current snapshot, if
// any, is marked revision_addressed.
func (e *PitchWorkflowEngine) SubmitForReview(ctx context.Context, pitchId int, responseToFeedback string) (*models.Pitch, error) {

	db := config.GetDB()
	producerId, _ := utils.GetUserIdFromContext(ctx)

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

		next, err := RequireTransition(pitch.Status, ActionSubmit, project.WorkflowType)
		if err != nil {
			return err
		}

		fileCount, err := pitch.ActiveFileCount(tx)
		if err != nil {
			return err
		}
		if fileCount == 0 {
			return &SubmissionValidationError{Reason: msgNoFilesAttached}
		}

		workingFiles, err := models.GetWorkingFiles(tx, pitch.ID)
		if err != nil {
			return err
		}
		fileIds := make([]int, 0, len(workingFiles))
		for _, f := range workingFiles {
			fileIds = append(fileIds, f.ID)
		}

		version, err := pitch.NextSnapshotVersion(tx)
		if err != nil {
			return err
		}
		snapshot, err := models.CreatePitchSnapshot(tx, pitch.ID, version, models.SnapshotData{
			Version:            version,
			FileIds:            fileIds,
			ResponseToFeedback: responseToFeedback,
		})
		if err != nil {
			return err
		}

		// The superseded snapshot becomes history; its terminal status
		// records that the revision round was answered.
		if pitch.CurrentSnapshotId != nil {
			var previous models.PitchSnapshot
			if err := tx.First(&previous, *pitch.CurrentSnapshotId).Error; err == nil {
				if previous.Status == models.SnapshotStatusPending || previous.Status == models.SnapshotStatusRevisionsRequested {
					if err := previous.SetStatus(tx, models.SnapshotStatusRevisionAddressed); err != nil {
						return err
					}
				}
			}
		}

		if err := tx.Model(pitch).Updates(map[string]any{
			"status":              next,
			"current_snapshot_id": snapshot.ID,
		}).Error; err != nil {
			return err
		}
		pitch.Status = next
		pitch.CurrentSnapshotId = &snapshot.ID

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   fmt.Sprintf("Pitch submitted for review (version %d).", version),
			Status:    pitch.Status,
			CreatedBy: &producerId,
			Metadata:  map[string]any{"snapshot_id": snapshot.ID},
		}); err != nil {
			return err
		}

		// The first submission publishes an unpublished project: the client
		// now has something to review.
		if project.Status == models.ProjectStatusUnpublished {
			if err := tx.Model(&models.Project{}).
				Where("id = ?", project.ID).
				Update("status", models.ProjectStatusOpen).Error; err != nil {
				return err
			}
			project.Status = models.ProjectStatusOpen
		}

		// Client-management submissions go to the external client via a signed
		// portal link; everything else notifies the project owner in-app.
		if project.IsClientManagement() && project.ClientEmail != "" {
			portalToken, err := utils.GenerateClientPortalToken(project.ID, project.ClientEmail)
			if err != nil {
				return err
			}
			e.Notifier.NotifyClient(tx, EventPitchClientReviewReady, pitch, project.ClientEmail, map[string]any{
				"snapshot_id":         snapshot.ID,
				"snapshot_version":    version,
				"project_id":          project.ID,
				"client_portal_token": portalToken,
			})
		} else {
			e.Notifier.Notify(tx, EventPitchSubmitted, pitch, project.OwnerId, map[string]any{
				"snapshot_id":      snapshot.ID,
				"snapshot_version": version,
			})
		}

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reviewSnapshot loads and validates the snapshot under review.
func reviewSnapshot(tx *gorm.DB, pitch *models.Pitch, snapshotId int) (*models.PitchSnapshot, error) {
	var snapshot models.PitchSnapshot
	if err := tx.First(&snapshot, snapshotId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if snapshot.PitchId != pitch.ID {
		return nil, &SnapshotError{SnapshotId: snapshotId, Reason: fmt.Sprintf("Snapshot %d does not belong to pitch %d.", snapshotId, pitch.ID)}
	}
	if snapshot.Status != models.SnapshotStatusPending {
		return nil, &SnapshotError{SnapshotId: snapshotId, Reason: fmt.Sprintf("Snapshot %d is not pending review (status: %s).", snapshotId, snapshot.Status)}
	}
	return &snapshot, nil
}

// ApproveSubmittedPitch accepts the pending snapshot and moves the pitch to
// approved.
func (e *PitchWorkflowEngine) ApproveSubmittedPitch(ctx context.Context, pitchId int, snapshotId int) (*models.Pitch, error) {

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

		next, err := RequireTransition(pitch.Status, ActionApprove, project.WorkflowType)
		if err != nil {
			return err
		}
		snapshot, err := reviewSnapshot(tx, pitch, snapshotId)
		if err != nil {
			return err
		}
		if err := snapshot.SetStatus(tx, models.SnapshotStatusAccepted); err != nil {
			return err
		}

		now := e.Now()
		if err := tx.Model(pitch).Updates(map[string]any{
			"status":      next,
			"approved_at": now,
		}).Error; err != nil {
			return err
		}
		pitch.Status = next
		pitch.ApprovedAt = &now

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   "Pitch submission approved.",
			Status:    pitch.Status,
			CreatedBy: &approverId,
			Metadata:  map[string]any{"snapshot_id": snapshot.ID},
		}); err != nil {
			return err
		}

		e.Notifier.Notify(tx, EventPitchApproved, pitch, pitch.ProducerId, map[string]any{
			"snapshot_id": snapshot.ID,
		})

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DenySubmittedPitch denies the pending snapshot. The reason is mandatory and
// recorded verbatim in the audit event.
func (e *PitchWorkflowEngine) DenySubmittedPitch(ctx context.Context, pitchId int, snapshotId int, reason string) (*models.Pitch, error) {

	if reason == "" {
		return nil, &SubmissionValidationError{Reason: "A reason is required to deny a pitch submission."}
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

		next, err := RequireTransition(pitch.Status, ActionDeny, project.WorkflowType)
		if err != nil {
			return err
		}
		snapshot, err := reviewSnapshot(tx, pitch, snapshotId)
		if err != nil {
			return err
		}
		if err := snapshot.SetStatus(tx, models.SnapshotStatusDenied); err != nil {
			return err
		}

		if err := tx.Model(pitch).Update("status", next).Error; err != nil {
			return err
		}
		pitch.Status = next

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   fmt.Sprintf("Pitch submission denied. Reason: %s", reason),
			Status:    pitch.Status,
			CreatedBy: &approverId,
			Metadata:  map[string]any{"snapshot_id": snapshot.ID},
		}); err != nil {
			return err
		}

		e.Notifier.Notify(tx, EventPitchDenied, pitch, pitch.ProducerId, map[string]any{
			"snapshot_id": snapshot.ID,
			"reason":      reason,
		})

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestRevisions sends the pending snapshot back to the producer with
// feedback.
func (e *PitchWorkflowEngine) RequestRevisions(ctx context.Context, pitchId int, snapshotId int, feedback string) (*models.Pitch, error) {

	if feedback == "" {
		return nil, &SubmissionValidationError{Reason: "Feedback is required to request revisions."}
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

		next, err := RequireTransition(pitch.Status, ActionRequestRevisions, project.WorkflowType)
		if err != nil {
			return err
		}
		snapshot, err := reviewSnapshot(tx, pitch, snapshotId)
		if err != nil {
			return err
		}
		if err := snapshot.SetStatus(tx, models.SnapshotStatusRevisionsRequested); err != nil {
			return err
		}

		if err := tx.Model(pitch).Update("status", next).Error; err != nil {
			return err
		}
		pitch.Status = next

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   fmt.Sprintf("Revisions requested. Feedback: %s", feedback),
			Status:    pitch.Status,
			CreatedBy: &approverId,
			Metadata:  map[string]any{"snapshot_id": snapshot.ID},
		}); err != nil {
			return err
		}

		e.Notifier.Notify(tx, EventPitchRevisionsRequested, pitch, pitch.ProducerId, map[string]any{
			"snapshot_id": snapshot.ID,
			"feedback":    feedback,
		})

		result = pitch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelSubmission withdraws a pending review and returns the pitch to the
// producer's desk. The cancelled snapshot stays in history.
func (e *PitchWorkflowEngine) CancelSubmission(ctx context.Context, pitchId int) (*models.Pitch, error) {

	db := config.GetDB()
	producerId, _ := utils.GetUserIdFromContext(ctx)

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

		next, err := RequireTransition(pitch.Status, ActionCancel, project.WorkflowType)
		if err != nil {
			return err
		}

		if pitch.CurrentSnapshotId != nil {
			var snapshot models.PitchSnapshot
			if err := tx.First(&snapshot, *pitch.CurrentSnapshotId).Error; err == nil {
				if snapshot.Status == models.SnapshotStatusPending {
					if err := snapshot.SetStatus(tx, models.SnapshotStatusCancelled); err != nil {
						return err
					}
				}
			}
		}

		if err := tx.Model(pitch).Updates(map[string]any{
			"status":              next,
			"current_snapshot_id": nil,
		}).Error; err != nil {
			return err
		}
		pitch.Status = next
		pitch.CurrentSnapshotId = nil

		if _, err := models.CreatePitchEvent(tx, models.NewPitchEvent{
			PitchId:   pitch.ID,
			EventType: models.PitchEventTypeStatusChange,
			Comment:   "Pitch submission cancelled by producer.",
			Status:    pitch.Status,
			CreatedBy: &producerId,
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
