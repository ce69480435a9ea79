package workflow

import (
	"fmt"

	"github.com/mixpitch/mixpitch_backend/models"
)

// InvalidStatusTransitionError signals an illegal state change. The message is
// user-facing; handlers return it verbatim.
type InvalidStatusTransitionError struct {
	Current models.PitchStatus
	Target  models.PitchStatus
	Reason  string
}

func (e *InvalidStatusTransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot transition pitch from %s to %s", e.Current.Readable(), e.Target.Readable())
}

// UnauthorizedActionError signals a workflow-type or role mismatch.
type UnauthorizedActionError struct {
	Reason string
}

func (e *UnauthorizedActionError) Error() string {
	return e.Reason
}

// SubmissionValidationError signals a missing prerequisite, e.g. no files.
type SubmissionValidationError struct {
	Reason string
}

func (e *SubmissionValidationError) Error() string {
	return e.Reason
}

// FileVersionConflictError is reserved for concurrent version-number
// collisions; not expected in normal flow.
type FileVersionConflictError struct {
	RootFileId    int
	VersionNumber int
}

func (e *FileVersionConflictError) Error() string {
	return fmt.Sprintf("version %d already exists for file chain %d", e.VersionNumber, e.RootFileId)
}

// SnapshotError signals a snapshot in an unexpected state for the requested review action.
type SnapshotError struct {
	SnapshotId int
	Reason     string
}

func (e *SnapshotError) Error() string {
	return e.Reason
}
