package workflow

import (
	"context"

	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/shopspring/decimal"
)

// CommissionRateProvider resolves the platform commission percentage for a
// producer. The billing subsystem owns the real answer; the default provider
// reads the plan rate frozen on the user row.
type CommissionRateProvider interface {
	GetPlatformCommissionRate(ctx context.Context, producer *models.User) (decimal.Decimal, error)
}

type planCommissionProvider struct{}

func NewPlanCommissionProvider() CommissionRateProvider {
	return planCommissionProvider{}
}

func (planCommissionProvider) GetPlatformCommissionRate(ctx context.Context, producer *models.User) (decimal.Decimal, error) {
	return producer.PlatformCommissionRate(), nil
}

// ComputeCommission splits a gross amount at the given percentage rate.
// Commission is rounded to 2 decimal places; net is the exact remainder so
// commission + net always reconstructs gross.
func ComputeCommission(gross decimal.Decimal, ratePercent decimal.Decimal) (commission decimal.Decimal, net decimal.Decimal) {
	commission = gross.Mul(ratePercent).Div(decimal.NewFromInt(100)).Round(2)
	net = gross.Sub(commission)
	return commission, net
}
