package models

import (
	"context"
	"testing"
)

// Malformed processing times are rejected up front, before any row is read or
// written; no database is needed for these cases.
func TestSavePayoutHoldSettingRejectsBadProcessingTime(t *testing.T) {
	cases := []string{"25:00", "12:60", "noon", "", "9", "-1:30"}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			bad := in
			_, err := SavePayoutHoldSetting(context.Background(), &UpdatePayoutHoldSetting{
				ProcessingTime: &bad,
			})
			if err == nil {
				t.Fatalf("SavePayoutHoldSetting accepted processing_time %q", in)
			}
		})
	}
}
