package workflow

import (
	"testing"
	"time"

	"github.com/mixpitch/mixpitch_backend/models"
)

// fixedClock pins the calculator to Friday 2026-08-28 14:30 UTC so the
// weekend and processing-time math is deterministic.
func fixedClock() time.Time {
	return time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
}

func testCalculator() *HoldCalculator {
	return &HoldCalculator{Now: fixedClock}
}

func defaultTestSetting() *models.PayoutHoldSetting {
	return &models.PayoutHoldSetting{
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

func TestReleaseDateStandardCalendarDays(t *testing.T) {
	c := testCalculator()
	got := c.ReleaseDateWith(defaultTestSetting(), models.WorkflowTypeStandard)

	// Friday + 2 calendar days = Sunday, pinned to the 09:00 processing time.
	want := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}
	if got.Weekday() != time.Sunday {
		t.Fatalf("calendar-day hold must be allowed to land on a weekend; got %s", got.Weekday())
	}
}

func TestReleaseDateBusinessDaysSkipWeekend(t *testing.T) {
	setting := defaultTestSetting()
	setting.BusinessDaysOnly = true

	c := testCalculator()
	got := c.ReleaseDateWith(setting, models.WorkflowTypeStandard)

	// Friday + 2 business days: Saturday and Sunday do not count, so the
	// hold runs through Monday into Tuesday.
	want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}
}

func TestReleaseDateContestImmediate(t *testing.T) {
	c := testCalculator()
	got := c.ReleaseDateWith(defaultTestSetting(), models.WorkflowTypeContest)

	// Zero hold days and zero minimum hold releases immediately, with no
	// processing-time pin.
	if !got.Equal(fixedClock()) {
		t.Fatalf("release = %s; want %s", got, fixedClock())
	}
}

func TestReleaseDateMinimumHoldWins(t *testing.T) {
	setting := defaultTestSetting()
	setting.MinimumHoldHours = 72

	c := testCalculator()
	got := c.ReleaseDateWith(setting, models.WorkflowTypeStandard)

	// The 2-day hold lands Sunday 09:00, but 72 hours from Friday 14:30 is
	// Monday 14:30; the later of the two wins.
	want := fixedClock().Add(72 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}
}

func TestReleaseDateMinimumHoldAppliesToZeroDayHold(t *testing.T) {
	setting := defaultTestSetting()
	setting.MinimumHoldHours = 24

	c := testCalculator()
	got := c.ReleaseDateWith(setting, models.WorkflowTypeContest)

	want := fixedClock().Add(24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}
}

func TestReleaseDateNilSettingLegacyHold(t *testing.T) {
	c := testCalculator()
	got := c.ReleaseDateWith(nil, models.WorkflowTypeStandard)

	// No settings row: flat 7 calendar days, wall clock untouched.
	want := fixedClock().AddDate(0, 0, 7)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}
}

func TestReleaseDateDisabledSettingMinimumHoldOnly(t *testing.T) {
	setting := defaultTestSetting()
	setting.Enabled = false
	setting.MinimumHoldHours = 12

	c := testCalculator()
	got := c.ReleaseDateWith(setting, models.WorkflowTypeStandard)

	want := fixedClock().Add(12 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}

	setting.MinimumHoldHours = 0
	if got := c.ReleaseDateWith(setting, models.WorkflowTypeStandard); !got.Equal(fixedClock()) {
		t.Fatalf("disabled setting with no minimum hold: release = %s; want now", got)
	}
}

func TestReleaseDateMalformedProcessingTimeIgnored(t *testing.T) {
	setting := defaultTestSetting()
	setting.ProcessingTime = "not-a-time"

	c := testCalculator()
	got := c.ReleaseDateWith(setting, models.WorkflowTypeStandard)

	// Date math still applies; only the wall-clock pin is skipped.
	want := fixedClock().AddDate(0, 0, 2)
	if !got.Equal(want) {
		t.Fatalf("release = %s; want %s", got, want)
	}
}

func TestParseProcessingTime(t *testing.T) {
	cases := []struct {
		in        string
		hour, min int
		ok        bool
	}{
		{"09:00", 9, 0, true},
		{"23:59", 23, 59, true},
		{"0:5", 0, 5, true},
		{" 09:00 ", 9, 0, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"noon", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		hour, minute, ok := parseProcessingTime(tc.in)
		if ok != tc.ok || hour != tc.hour || minute != tc.min {
			t.Fatalf("parseProcessingTime(%q) = (%d, %d, %v); want (%d, %d, %v)", tc.in, hour, minute, ok, tc.hour, tc.min, tc.ok)
		}
	}
}

func TestHoldPeriodInfoDescriptions(t *testing.T) {
	c := testCalculator()

	setting := defaultTestSetting()
	info := c.HoldPeriodInfoWith(setting, models.WorkflowTypeStandard)
	if info.Description != "2 days" || info.HoldDays != 2 {
		t.Fatalf("standard info = %+v; want 2 days", info)
	}

	setting.BusinessDaysOnly = true
	info = c.HoldPeriodInfoWith(setting, models.WorkflowTypeStandard)
	if info.Description != "2 business days" {
		t.Fatalf("business-days description = %q; want %q", info.Description, "2 business days")
	}

	info = c.HoldPeriodInfoWith(setting, models.WorkflowTypeContest)
	if info.Description != "Immediate" || info.HoldDays != 0 {
		t.Fatalf("contest info = %+v; want Immediate", info)
	}

	info = c.HoldPeriodInfoWith(nil, models.WorkflowTypeStandard)
	if info.Description != "7 days" || info.HoldDays != 7 || info.ProcessingTime != "00:00" {
		t.Fatalf("nil-setting info = %+v; want legacy 7 days", info)
	}
}
