package workflow

import (
	"fmt"

	"github.com/mixpitch/mixpitch_backend/models"
)

// PitchAction is a requested workflow operation, resolved against the
// transition table below.
type PitchAction string

const (
	ActionSubmit                 PitchAction = "submit"
	ActionApprove                PitchAction = "approve"
	ActionDeny                   PitchAction = "deny"
	ActionRequestRevisions       PitchAction = "requestRevisions"
	ActionClientApprove          PitchAction = "clientApprove"
	ActionClientRequestRevisions PitchAction = "clientRequestRevisions"
	ActionComplete               PitchAction = "complete"
	ActionCancel                 PitchAction = "cancel"
)

type transitionKey struct {
	current models.PitchStatus
	action  PitchAction
}

// transitionTable is the fixed rule set: (current status, action) -> next
// status. Anything absent is illegal.
var transitionTable = map[transitionKey]models.PitchStatus{
	{models.PitchStatusInProgress, ActionSubmit}:               models.PitchStatusReadyForReview,
	{models.PitchStatusRevisionsRequested, ActionSubmit}:       models.PitchStatusReadyForReview,
	{models.PitchStatusClientRevisionsRequested, ActionSubmit}: models.PitchStatusReadyForReview,

	{models.PitchStatusReadyForReview, ActionApprove}:          models.PitchStatusApproved,
	{models.PitchStatusReadyForReview, ActionDeny}:             models.PitchStatusDenied,
	{models.PitchStatusReadyForReview, ActionRequestRevisions}: models.PitchStatusRevisionsRequested,

	// ready_for_review and client_revisions_requested are both valid entry
	// points for client approval; a client can approve while a revision
	// round is still pending processing.
	{models.PitchStatusReadyForReview, ActionClientApprove}:           models.PitchStatusCompleted,
	{models.PitchStatusClientRevisionsRequested, ActionClientApprove}: models.PitchStatusCompleted,
	{models.PitchStatusReadyForReview, ActionClientRequestRevisions}:  models.PitchStatusClientRevisionsRequested,

	{models.PitchStatusApproved, ActionComplete}: models.PitchStatusCompleted,

	// Cancelling a submission returns the pitch to the producer's desk.
	{models.PitchStatusReadyForReview, ActionCancel}: models.PitchStatusInProgress,
}

// clientActions additionally require the project's workflow type to be
// client_management.
var clientActions = map[PitchAction]bool{
	ActionClientApprove:          true,
	ActionClientRequestRevisions: true,
}

const msgClientManagementOnly = "Client approval is only applicable for client management projects."
const msgClientApproveWrongStatus = "Pitch must be ready for review (or pending revision processing) for client approval."

// CanTransition reports whether the action is legal from the current status
// under the given workflow type.
func CanTransition(current models.PitchStatus, action PitchAction, workflowType models.WorkflowType) bool {
	if clientActions[action] && workflowType != models.WorkflowTypeClientManagement {
		return false
	}
	_, ok := transitionTable[transitionKey{current, action}]
	return ok
}

// RequireTransition resolves the next status or fails with a typed,
// user-facing error. The workflow-type gate is checked before the status so
// a standard-workflow caller always gets the authorization error.
func RequireTransition(current models.PitchStatus, action PitchAction, workflowType models.WorkflowType) (models.PitchStatus, error) {
	if clientActions[action] && workflowType != models.WorkflowTypeClientManagement {
		return "", &UnauthorizedActionError{Reason: msgClientManagementOnly}
	}
	next, ok := transitionTable[transitionKey{current, action}]
	if !ok {
		if action == ActionClientApprove {
			return "", &InvalidStatusTransitionError{Current: current, Reason: msgClientApproveWrongStatus}
		}
		return "", &InvalidStatusTransitionError{
			Current: current,
			Reason:  fmt.Sprintf("Pitch cannot %s from status %s.", action, current.Readable()),
		}
	}
	return next, nil
}
