package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeCommission(t *testing.T) {
	cases := []struct {
		name           string
		gross          string
		ratePercent    string
		wantCommission string
		wantNet        string
	}{
		{"pro artist plan", "500.00", "8", "40.00", "460.00"},
		{"free plan", "500.00", "10", "50.00", "450.00"},
		{"pro engineer plan", "1000.00", "6", "60.00", "940.00"},
		{"zero rate", "250.00", "0", "0.00", "250.00"},
		{"zero gross", "0.00", "10", "0.00", "0.00"},
		{"commission rounds half up", "333.33", "10", "33.33", "300.00"},
		{"sub-cent commission", "0.10", "8", "0.01", "0.09"},
		{"fractional rate", "199.99", "7.5", "15.00", "184.99"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gross := decimal.RequireFromString(tc.gross)
			rate := decimal.RequireFromString(tc.ratePercent)

			commission, net := ComputeCommission(gross, rate)

			if commission.StringFixed(2) != tc.wantCommission {
				t.Fatalf("commission = %s; want %s", commission.StringFixed(2), tc.wantCommission)
			}
			if net.StringFixed(2) != tc.wantNet {
				t.Fatalf("net = %s; want %s", net.StringFixed(2), tc.wantNet)
			}
			// Net is the exact remainder, so the split always reconstructs
			// the gross with no lost cents.
			if sum := commission.Add(net); !sum.Equal(gross) {
				t.Fatalf("commission + net = %s; want gross %s", sum, gross)
			}
		})
	}
}
