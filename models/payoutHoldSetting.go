package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// PayoutHoldSetting is the single-row configuration for payout hold periods.
// A missing row means the legacy behavior: a flat 7 calendar day hold.
type PayoutHoldSetting struct {
	ID      int  `gorm:"primary_key" json:"id"`
	Enabled bool `gorm:"not null;default:true" json:"enabled"`

	StandardHoldDays         int `gorm:"not null;default:2" json:"standard_hold_days"`
	ContestHoldDays          int `gorm:"not null;default:0" json:"contest_hold_days"`
	ClientManagementHoldDays int `gorm:"not null;default:1" json:"client_management_hold_days"`
	DirectHireHoldDays       int `gorm:"not null;default:1" json:"direct_hire_hold_days"`

	BusinessDaysOnly bool `gorm:"not null;default:false" json:"business_days_only"`

	// ProcessingTime is the wall-clock "HH:MM" applied to the computed release date.
	ProcessingTime string `gorm:"size:5;not null;default:'09:00'" json:"processing_time"`

	MinimumHoldHours int `gorm:"not null;default:0" json:"minimum_hold_hours"`

	// AllowAdminBypass is the kill switch for the admin bypass endpoint: when
	// off, even admins cannot shorten a hold.
	AllowAdminBypass    bool `gorm:"not null;default:true" json:"allow_admin_bypass"`
	RequireBypassReason bool `gorm:"not null;default:true" json:"require_bypass_reason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HoldDaysFor returns the configured hold days for a workflow type. Unknown
// types fall back to the standard hold.
func (s *PayoutHoldSetting) HoldDaysFor(workflowType WorkflowType) int {
	switch workflowType {
	case WorkflowTypeContest:
		return s.ContestHoldDays
	case WorkflowTypeClientManagement:
		return s.ClientManagementHoldDays
	case WorkflowTypeDirectHire:
		return s.DirectHireHoldDays
	default:
		return s.StandardHoldDays
	}
}

const payoutHoldSettingCacheKey = "payout_hold_setting"

// GetPayoutHoldSetting loads the setting row, redis-cached for a minute.
// Returns (nil, nil) when no row exists; callers apply the legacy hold.
func GetPayoutHoldSetting(ctx context.Context) (*PayoutHoldSetting, error) {

	var cached PayoutHoldSetting
	found, err := config.GetRedisObject(payoutHoldSettingCacheKey, &cached)
	if err == nil && found {
		return &cached, nil
	}

	db := config.GetDB()
	var setting PayoutHoldSetting
	err = db.WithContext(ctx).Order("id asc").First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	if err := config.SetRedisObject(payoutHoldSettingCacheKey, setting, time.Minute); err != nil {
		config.LogError(config.GetLogger(), "models", "GetPayoutHoldSetting", "cache setting", nil, err)
	}
	return &setting, nil
}

type UpdatePayoutHoldSetting struct {
	Enabled                  *bool   `json:"enabled"`
	StandardHoldDays         *int    `json:"standard_hold_days"`
	ContestHoldDays          *int    `json:"contest_hold_days"`
	ClientManagementHoldDays *int    `json:"client_management_hold_days"`
	DirectHireHoldDays       *int    `json:"direct_hire_hold_days"`
	BusinessDaysOnly         *bool   `json:"business_days_only"`
	ProcessingTime           *string `json:"processing_time"`
	MinimumHoldHours         *int    `json:"minimum_hold_hours"`
	AllowAdminBypass         *bool   `json:"allow_admin_bypass"`
	RequireBypassReason      *bool   `json:"require_bypass_reason"`
}

// SavePayoutHoldSetting upserts the single setting row and invalidates the cache.
func SavePayoutHoldSetting(ctx context.Context, input *UpdatePayoutHoldSetting) (*PayoutHoldSetting, error) {

	if input.ProcessingTime != nil {
		if _, _, ok := utils.ParseClockTime(*input.ProcessingTime); !ok {
			return nil, fmt.Errorf("processing_time must be HH:MM (got %q)", *input.ProcessingTime)
		}
	}

	db := config.GetDB()

	var setting PayoutHoldSetting
	err := db.WithContext(ctx).Order("id asc").First(&setting).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == gorm.ErrRecordNotFound {
		setting = PayoutHoldSetting{
			Enabled:                  true,
			StandardHoldDays:         2,
			ContestHoldDays:          0,
			ClientManagementHoldDays: 1,
			DirectHireHoldDays:       1,
			ProcessingTime:           "09:00",
			AllowAdminBypass:         true,
			RequireBypassReason:      true,
		}
	}

	if input.Enabled != nil {
		setting.Enabled = *input.Enabled
	}
	if input.StandardHoldDays != nil {
		setting.StandardHoldDays = *input.StandardHoldDays
	}
	if input.ContestHoldDays != nil {
		setting.ContestHoldDays = *input.ContestHoldDays
	}
	if input.ClientManagementHoldDays != nil {
		setting.ClientManagementHoldDays = *input.ClientManagementHoldDays
	}
	if input.DirectHireHoldDays != nil {
		setting.DirectHireHoldDays = *input.DirectHireHoldDays
	}
	if input.BusinessDaysOnly != nil {
		setting.BusinessDaysOnly = *input.BusinessDaysOnly
	}
	if input.ProcessingTime != nil {
		setting.ProcessingTime = *input.ProcessingTime
	}
	if input.MinimumHoldHours != nil {
		setting.MinimumHoldHours = *input.MinimumHoldHours
	}
	if input.AllowAdminBypass != nil {
		setting.AllowAdminBypass = *input.AllowAdminBypass
	}
	if input.RequireBypassReason != nil {
		setting.RequireBypassReason = *input.RequireBypassReason
	}

	if err := db.WithContext(ctx).Save(&setting).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(payoutHoldSettingCacheKey); err != nil {
		config.LogError(config.GetLogger(), "models", "SavePayoutHoldSetting", "invalidate cache", nil, err)
	}
	return &setting, nil
}
