package workflow

import (
	"errors"
	"testing"

	"github.com/mixpitch/mixpitch_backend/models"
)

func TestRequireTransitionLegalMoves(t *testing.T) {
	cases := []struct {
		name         string
		current      models.PitchStatus
		action       PitchAction
		workflowType models.WorkflowType
		want         models.PitchStatus
	}{
		{"submit from in_progress", models.PitchStatusInProgress, ActionSubmit, models.WorkflowTypeStandard, models.PitchStatusReadyForReview},
		{"resubmit after revisions", models.PitchStatusRevisionsRequested, ActionSubmit, models.WorkflowTypeStandard, models.PitchStatusReadyForReview},
		{"resubmit after client revisions", models.PitchStatusClientRevisionsRequested, ActionSubmit, models.WorkflowTypeClientManagement, models.PitchStatusReadyForReview},
		{"approve submission", models.PitchStatusReadyForReview, ActionApprove, models.WorkflowTypeStandard, models.PitchStatusApproved},
		{"deny submission", models.PitchStatusReadyForReview, ActionDeny, models.WorkflowTypeStandard, models.PitchStatusDenied},
		{"request revisions", models.PitchStatusReadyForReview, ActionRequestRevisions, models.WorkflowTypeStandard, models.PitchStatusRevisionsRequested},
		{"client approve from ready_for_review", models.PitchStatusReadyForReview, ActionClientApprove, models.WorkflowTypeClientManagement, models.PitchStatusCompleted},
		{"client approve while revisions pending", models.PitchStatusClientRevisionsRequested, ActionClientApprove, models.WorkflowTypeClientManagement, models.PitchStatusCompleted},
		{"client requests revisions", models.PitchStatusReadyForReview, ActionClientRequestRevisions, models.WorkflowTypeClientManagement, models.PitchStatusClientRevisionsRequested},
		{"complete approved pitch", models.PitchStatusApproved, ActionComplete, models.WorkflowTypeStandard, models.PitchStatusCompleted},
		{"cancel submission", models.PitchStatusReadyForReview, ActionCancel, models.WorkflowTypeStandard, models.PitchStatusInProgress},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !CanTransition(tc.current, tc.action, tc.workflowType) {
				t.Fatalf("CanTransition(%s, %s, %s) = false; want true", tc.current, tc.action, tc.workflowType)
			}
			next, err := RequireTransition(tc.current, tc.action, tc.workflowType)
			if err != nil {
				t.Fatalf("RequireTransition(%s, %s, %s): %v", tc.current, tc.action, tc.workflowType, err)
			}
			if next != tc.want {
				t.Fatalf("RequireTransition(%s, %s, %s) = %s; want %s", tc.current, tc.action, tc.workflowType, next, tc.want)
			}
		})
	}
}

func TestRequireTransitionIllegalMoves(t *testing.T) {
	cases := []struct {
		name         string
		current      models.PitchStatus
		action       PitchAction
		workflowType models.WorkflowType
	}{
		{"submit from pending", models.PitchStatusPending, ActionSubmit, models.WorkflowTypeStandard},
		{"submit twice", models.PitchStatusReadyForReview, ActionSubmit, models.WorkflowTypeStandard},
		{"approve from in_progress", models.PitchStatusInProgress, ActionApprove, models.WorkflowTypeStandard},
		{"approve a denied pitch", models.PitchStatusDenied, ActionApprove, models.WorkflowTypeStandard},
		{"complete without approval", models.PitchStatusReadyForReview, ActionComplete, models.WorkflowTypeStandard},
		{"complete twice", models.PitchStatusCompleted, ActionComplete, models.WorkflowTypeStandard},
		{"cancel from in_progress", models.PitchStatusInProgress, ActionCancel, models.WorkflowTypeStandard},
		{"deny a closed pitch", models.PitchStatusClosed, ActionDeny, models.WorkflowTypeStandard},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if CanTransition(tc.current, tc.action, tc.workflowType) {
				t.Fatalf("CanTransition(%s, %s, %s) = true; want false", tc.current, tc.action, tc.workflowType)
			}
			next, err := RequireTransition(tc.current, tc.action, tc.workflowType)
			if err == nil {
				t.Fatalf("RequireTransition(%s, %s, %s) = %s; want error", tc.current, tc.action, tc.workflowType, next)
			}
			var invalid *InvalidStatusTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("RequireTransition(%s, %s, %s) error = %T; want *InvalidStatusTransitionError", tc.current, tc.action, tc.workflowType, err)
			}
		})
	}
}

func TestClientApproveRequiresClientManagementWorkflow(t *testing.T) {
	for _, wt := range []models.WorkflowType{
		models.WorkflowTypeStandard,
		models.WorkflowTypeContest,
		models.WorkflowTypeDirectHire,
	} {
		if CanTransition(models.PitchStatusReadyForReview, ActionClientApprove, wt) {
			t.Fatalf("client approve allowed on %s workflow", wt)
		}
		_, err := RequireTransition(models.PitchStatusReadyForReview, ActionClientApprove, wt)
		var unauthorized *UnauthorizedActionError
		if !errors.As(err, &unauthorized) {
			t.Fatalf("workflow %s: error = %T (%v); want *UnauthorizedActionError", wt, err, err)
		}
		if unauthorized.Reason != "Client approval is only applicable for client management projects." {
			t.Fatalf("workflow %s: unexpected message %q", wt, unauthorized.Reason)
		}
	}
}

// The workflow-type gate is checked before the status, so a standard-workflow
// caller in a wrong status still sees the authorization error, not the
// status one.
func TestClientApproveGateCheckedBeforeStatus(t *testing.T) {
	_, err := RequireTransition(models.PitchStatusInProgress, ActionClientApprove, models.WorkflowTypeStandard)
	var unauthorized *UnauthorizedActionError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("error = %T (%v); want *UnauthorizedActionError", err, err)
	}
}

func TestClientApproveWrongStatusMessage(t *testing.T) {
	_, err := RequireTransition(models.PitchStatusInProgress, ActionClientApprove, models.WorkflowTypeClientManagement)
	var invalid *InvalidStatusTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %T (%v); want *InvalidStatusTransitionError", err, err)
	}
	want := "Pitch must be ready for review (or pending revision processing) for client approval."
	if invalid.Reason != want {
		t.Fatalf("message = %q; want %q", invalid.Reason, want)
	}
}

func TestCompletedAndClosedAreTerminal(t *testing.T) {
	terminal := []models.PitchStatus{
		models.PitchStatusCompleted,
		models.PitchStatusClosed,
		models.PitchStatusDenied,
		models.PitchStatusContestWinner,
	}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
		for _, action := range []PitchAction{ActionSubmit, ActionApprove, ActionComplete, ActionCancel} {
			if CanTransition(status, action, models.WorkflowTypeStandard) {
				t.Fatalf("terminal status %s allows %s", status, action)
			}
		}
	}
	if models.PitchStatusApproved.IsTerminal() {
		t.Fatalf("approved must not be terminal")
	}
}
