package models

import "fmt"

type PitchStatus string

const (
	PitchStatusPending                  PitchStatus = "pending"
	PitchStatusInProgress               PitchStatus = "in_progress"
	PitchStatusReadyForReview           PitchStatus = "ready_for_review"
	PitchStatusApproved                 PitchStatus = "approved"
	PitchStatusDenied                   PitchStatus = "denied"
	PitchStatusRevisionsRequested       PitchStatus = "revisions_requested"
	PitchStatusClientRevisionsRequested PitchStatus = "client_revisions_requested"
	PitchStatusCompleted                PitchStatus = "completed"
	PitchStatusClosed                   PitchStatus = "closed"
	PitchStatusContestEntry             PitchStatus = "contest_entry"
	PitchStatusContestWinner            PitchStatus = "contest_winner"
	PitchStatusContestRunnerUp          PitchStatus = "contest_runner_up"
)

// IsTerminal reports statuses that accept no further uploads or transitions.
// Denied pitches are reopened only through a new pitch, never a transition.
func (s PitchStatus) IsTerminal() bool {
	switch s {
	case PitchStatusCompleted, PitchStatusClosed, PitchStatusContestWinner, PitchStatusDenied:
		return true
	}
	return false
}

func (s PitchStatus) Readable() string {
	switch s {
	case PitchStatusPending:
		return "Pending"
	case PitchStatusInProgress:
		return "In Progress"
	case PitchStatusReadyForReview:
		return "Ready for Review"
	case PitchStatusApproved:
		return "Approved"
	case PitchStatusDenied:
		return "Denied"
	case PitchStatusRevisionsRequested:
		return "Revisions Requested"
	case PitchStatusClientRevisionsRequested:
		return "Client Revisions Requested"
	case PitchStatusCompleted:
		return "Completed"
	case PitchStatusClosed:
		return "Closed"
	case PitchStatusContestEntry:
		return "Contest Entry"
	case PitchStatusContestWinner:
		return "Contest Winner"
	case PitchStatusContestRunnerUp:
		return "Contest Runner-Up"
	}
	return string(s)
}

func ParsePitchStatus(s string) (PitchStatus, error) {
	switch PitchStatus(s) {
	case PitchStatusPending, PitchStatusInProgress, PitchStatusReadyForReview,
		PitchStatusApproved, PitchStatusDenied, PitchStatusRevisionsRequested,
		PitchStatusClientRevisionsRequested, PitchStatusCompleted, PitchStatusClosed,
		PitchStatusContestEntry, PitchStatusContestWinner, PitchStatusContestRunnerUp:
		return PitchStatus(s), nil
	}
	return "", fmt.Errorf("invalid pitch status %q", s)
}

type PaymentStatus string

const (
	PaymentStatusNotRequired PaymentStatus = "not_required"
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusPaid        PaymentStatus = "paid"
	PaymentStatusFailed      PaymentStatus = "failed"
)

type SnapshotStatus string

const (
	SnapshotStatusPending            SnapshotStatus = "pending"
	SnapshotStatusAccepted           SnapshotStatus = "accepted"
	SnapshotStatusDenied             SnapshotStatus = "denied"
	SnapshotStatusRevisionsRequested SnapshotStatus = "revisions_requested"
	SnapshotStatusRevisionAddressed  SnapshotStatus = "revision_addressed"
	SnapshotStatusCancelled          SnapshotStatus = "cancelled"
	SnapshotStatusCompleted          SnapshotStatus = "completed"
)

type WorkflowType string

const (
	WorkflowTypeStandard         WorkflowType = "standard"
	WorkflowTypeContest          WorkflowType = "contest"
	WorkflowTypeClientManagement WorkflowType = "client_management"
	WorkflowTypeDirectHire       WorkflowType = "direct_hire"
)

func ParseWorkflowType(s string) (WorkflowType, error) {
	switch WorkflowType(s) {
	case WorkflowTypeStandard, WorkflowTypeContest, WorkflowTypeClientManagement, WorkflowTypeDirectHire:
		return WorkflowType(s), nil
	}
	return "", fmt.Errorf("invalid workflow type %q", s)
}

type ProjectStatus string

const (
	ProjectStatusUnpublished ProjectStatus = "unpublished"
	ProjectStatusOpen        ProjectStatus = "open"
	ProjectStatusCompleted   ProjectStatus = "completed"
	ProjectStatusCancelled   ProjectStatus = "cancelled"
)

type PitchEventType string

const (
	PitchEventTypeStatusChange             PitchEventType = "status_change"
	PitchEventTypeClientApproved           PitchEventType = "client_approved"
	PitchEventTypeClientCompleted          PitchEventType = "client_completed"
	PitchEventTypeProducerComment          PitchEventType = "producer_comment"
	PitchEventTypeClientComment            PitchEventType = "client_comment"
	PitchEventTypeClientRevisionsRequested PitchEventType = "client_revisions_requested"
)

type PayoutStatus string

const (
	PayoutStatusScheduled  PayoutStatus = "scheduled"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending   OutboxPublishStatus = "PENDING"
	OutboxPublishStatusPublished OutboxPublishStatus = "PUBLISHED"
	OutboxPublishStatusDead      OutboxPublishStatus = "DEAD"
)
