package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlatformCommissionRate(t *testing.T) {
	cases := []struct {
		name     string
		plan     string
		override *decimal.Decimal
		want     string
	}{
		{"free plan", "free", nil, "10"},
		{"pro artist plan", "pro_artist", nil, "8"},
		{"pro engineer plan", "pro_engineer", nil, "6"},
		{"unknown plan falls back to default", "legacy_gold", nil, "10"},
		{"empty plan falls back to default", "", nil, "10"},
		{"override wins over plan", "pro_engineer", decimalPtr("4.5"), "4.5"},
		{"zero override is honored", "free", decimalPtr("0"), "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := User{SubscriptionPlan: tc.plan, CommissionRateOverride: tc.override}
			got := u.PlatformCommissionRate()
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("rate = %s; want %s", got, tc.want)
			}
		})
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
