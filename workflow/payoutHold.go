package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/utils"
)

// legacyHoldDays applies when no hold setting row exists: flat 7 calendar
// days, the behavior payouts shipped with before holds became configurable.
const legacyHoldDays = 7

// HoldCalculator computes payout release dates. Now is injectable so the
// weekend/processing-time math is testable against fixed clocks.
type HoldCalculator struct {
	Now func() time.Time
}

func NewHoldCalculator() *HoldCalculator {
	return &HoldCalculator{Now: time.Now}
}

// CalculateReleaseDate loads the current hold settings and resolves the
// release timestamp for the given workflow type.
func (c *HoldCalculator) CalculateReleaseDate(ctx context.Context, workflowType models.WorkflowType) (time.Time, error) {
	setting, err := models.GetPayoutHoldSetting(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return c.ReleaseDateWith(setting, workflowType), nil
}

// ReleaseDateWith resolves the release timestamp against an explicit setting.
// A nil setting means the legacy flat hold; a disabled setting collapses to
// the minimum hold only.
func (c *HoldCalculator) ReleaseDateWith(setting *models.PayoutHoldSetting, workflowType models.WorkflowType) time.Time {
	now := c.Now()

	if setting == nil {
		return now.AddDate(0, 0, legacyHoldDays)
	}
	if !setting.Enabled {
		return now.Add(time.Duration(setting.MinimumHoldHours) * time.Hour)
	}

	holdDays := setting.HoldDaysFor(workflowType)
	if holdDays == 0 && setting.MinimumHoldHours == 0 {
		return now
	}

	release := addHoldDays(now, holdDays, setting.BusinessDaysOnly)
	release = atProcessingTime(release, setting.ProcessingTime)

	minimum := now.Add(time.Duration(setting.MinimumHoldHours) * time.Hour)
	if release.Before(minimum) {
		return minimum
	}
	return release
}

// addHoldDays walks forward day by day; in business-days mode Saturdays and
// Sundays do not count toward the hold.
func addHoldDays(from time.Time, days int, businessDaysOnly bool) time.Time {
	if !businessDaysOnly {
		return from.AddDate(0, 0, days)
	}
	result := from
	for added := 0; added < days; {
		result = result.AddDate(0, 0, 1)
		if wd := result.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return result
}

// atProcessingTime pins the wall clock of t to the configured "HH:MM",
// keeping t's date and location. Malformed config leaves t untouched.
func atProcessingTime(t time.Time, processingTime string) time.Time {
	hour, minute, ok := parseProcessingTime(processingTime)
	if !ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

func parseProcessingTime(s string) (hour int, minute int, ok bool) {
	return utils.ParseClockTime(s)
}

// HoldPeriodInfo is the descriptive shape shown on payout dashboards.
type HoldPeriodInfo struct {
	WorkflowType     models.WorkflowType `json:"workflow_type"`
	HoldDays         int                 `json:"hold_days"`
	BusinessDaysOnly bool                `json:"business_days_only"`
	Description      string              `json:"description"`
	ProcessingTime   string              `json:"processing_time"`
	MinimumHoldHours int                 `json:"minimum_hold_hours"`
}

func (c *HoldCalculator) GetHoldPeriodInfo(ctx context.Context, workflowType models.WorkflowType) (*HoldPeriodInfo, error) {
	setting, err := models.GetPayoutHoldSetting(ctx)
	if err != nil {
		return nil, err
	}
	return c.HoldPeriodInfoWith(setting, workflowType), nil
}

func (c *HoldCalculator) HoldPeriodInfoWith(setting *models.PayoutHoldSetting, workflowType models.WorkflowType) *HoldPeriodInfo {
	if setting == nil {
		return &HoldPeriodInfo{
			WorkflowType:   workflowType,
			HoldDays:       legacyHoldDays,
			Description:    fmt.Sprintf("%d days", legacyHoldDays),
			ProcessingTime: "00:00",
		}
	}

	holdDays := setting.HoldDaysFor(workflowType)
	description := "Immediate"
	if holdDays > 0 {
		unit := "days"
		if setting.BusinessDaysOnly {
			unit = "business days"
		}
		description = fmt.Sprintf("%d %s", holdDays, unit)
	}

	return &HoldPeriodInfo{
		WorkflowType:     workflowType,
		HoldDays:         holdDays,
		BusinessDaysOnly: setting.BusinessDaysOnly,
		Description:      description,
		ProcessingTime:   setting.ProcessingTime,
		MinimumHoldHours: setting.MinimumHoldHours,
	}
}
