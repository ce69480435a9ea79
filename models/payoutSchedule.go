package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutSchedule is created exactly once per completed+paid pitch. Gross and
// commission figures are frozen at creation; only the hold date moves, and
// only through an explicit admin bypass.
type PayoutSchedule struct {
	ID         int    `gorm:"primary_key" json:"id"`
	PitchId    int    `gorm:"not null;uniqueIndex:uniq_payout_pitch" json:"pitch_id"`
	Pitch      *Pitch `gorm:"foreignKey:PitchId" json:"pitch,omitempty"`
	ProducerId int    `gorm:"not null;index" json:"producer_id"`
	Producer   *User  `gorm:"foreignKey:ProducerId" json:"producer,omitempty"`

	GrossAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gross_amount"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"commission_amount"`
	NetAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	Currency         string          `gorm:"size:3;not null;default:'USD'" json:"currency"`

	Status       PayoutStatus `gorm:"size:50;not null;default:'scheduled';index" json:"status"`
	WorkflowType WorkflowType `gorm:"size:50;not null" json:"workflow_type"`

	HoldReleaseDate time.Time `gorm:"not null;index" json:"hold_release_date"`

	HoldBypassed  bool       `gorm:"not null;default:false" json:"hold_bypassed"`
	BypassReason  string     `gorm:"type:text" json:"bypass_reason"`
	BypassAdminId *int       `json:"bypass_admin_id"`
	BypassedAt    *time.Time `json:"bypassed_at"`

	Metadata json.RawMessage `gorm:"type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPayoutSchedule(ctx context.Context, id int, associations ...string) (*PayoutSchedule, error) {
	return utils.FetchModel[PayoutSchedule](ctx, id, associations...)
}

// GetPayoutScheduleByPitch returns the payout for a pitch inside tx, or
// ErrorRecordNotFound when none exists yet.
func GetPayoutScheduleByPitch(tx *gorm.DB, pitchId int) (*PayoutSchedule, error) {
	var payout PayoutSchedule
	err := tx.Where("pitch_id = ?", pitchId).First(&payout).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func GetProducerPayouts(ctx context.Context, producerId int) ([]*PayoutSchedule, error) {
	db := config.GetDB()
	var payouts []*PayoutSchedule
	err := db.WithContext(ctx).
		Where("producer_id = ?", producerId).
		Order("created_at desc").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// GetReleasablePayouts returns scheduled payouts whose hold has elapsed.
func GetReleasablePayouts(ctx context.Context, now time.Time, limit int) ([]*PayoutSchedule, error) {
	db := config.GetDB()
	var payouts []*PayoutSchedule
	err := db.WithContext(ctx).
		Where("status = ? AND hold_release_date <= ?", PayoutStatusScheduled, now).
		Order("hold_release_date asc").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// MarkProcessing moves scheduled -> processing, guarded so a payout picked up
// twice by the release worker transitions only once.
func (p *PayoutSchedule) MarkProcessing(tx *gorm.DB) (bool, error) {
	result := tx.Model(&PayoutSchedule{}).
		Where("id = ? AND status = ?", p.ID, PayoutStatusScheduled).
		Update("status", PayoutStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	p.Status = PayoutStatusProcessing
	return true, nil
}

func GetAllPayouts(ctx context.Context) ([]*PayoutSchedule, error) {
	db := config.GetDB()
	var payouts []*PayoutSchedule
	err := db.WithContext(ctx).
		Preload("Producer").
		Order("created_at desc").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
