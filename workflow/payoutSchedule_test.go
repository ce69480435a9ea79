package workflow

import (
	"errors"
	"testing"

	"github.com/mixpitch/mixpitch_backend/models"
)

func TestAuthorizeHoldBypass(t *testing.T) {
	allowing := func() *models.PayoutHoldSetting {
		s := defaultTestSetting()
		return s
	}
	noBypass := func() *models.PayoutHoldSetting {
		s := defaultTestSetting()
		s.AllowAdminBypass = false
		return s
	}
	noReasonNeeded := func() *models.PayoutHoldSetting {
		s := defaultTestSetting()
		s.RequireBypassReason = false
		return s
	}

	cases := []struct {
		name       string
		isAdmin    bool
		setting    *models.PayoutHoldSetting
		reason     string
		wantReason string
		wantErr    string
	}{
		{"admin with reason", true, allowing(), "fraud check cleared", "fraud check cleared", ""},
		{"reason gets trimmed", true, allowing(), "  cleared  ", "cleared", ""},
		{"non-admin rejected", false, allowing(), "cleared", "", "unauthorized"},
		{"bypass disabled rejects admins too", true, noBypass(), "cleared", "", "unauthorized"},
		{"empty reason rejected", true, allowing(), "", "", "validation"},
		{"whitespace-only reason rejected", true, allowing(), "   ", "", "validation"},
		{"reason optional when not required", true, noReasonNeeded(), "", "", ""},
		{"nil setting defaults to allowed with reason", true, nil, "cleared", "cleared", ""},
		{"nil setting still requires a reason", true, nil, " ", "", "validation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, err := authorizeHoldBypass(tc.isAdmin, tc.setting, tc.reason)
			switch tc.wantErr {
			case "":
				if err != nil {
					t.Fatalf("authorizeHoldBypass: %v", err)
				}
				if reason != tc.wantReason {
					t.Fatalf("reason = %q; want %q", reason, tc.wantReason)
				}
			case "unauthorized":
				var unauthorized *UnauthorizedActionError
				if !errors.As(err, &unauthorized) {
					t.Fatalf("error = %T (%v); want *UnauthorizedActionError", err, err)
				}
			case "validation":
				var validation *SubmissionValidationError
				if !errors.As(err, &validation) {
					t.Fatalf("error = %T (%v); want *SubmissionValidationError", err, err)
				}
			}
		})
	}
}
