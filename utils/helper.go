package utils

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// NormalizeFilename lowercases and strips the extension for name matching.
func NormalizeFilename(fileName string) string {
	base := strings.TrimSpace(fileName)
	ext := filepath.Ext(base)
	return strings.ToLower(strings.TrimSuffix(base, ext))
}

// ParseClockTime parses a wall-clock "HH:MM" string.
func ParseClockTime(s string) (hour int, minute int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ConvertToDate truncates a timestamp to midnight in the given timezone (UTC when empty).
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	location := time.UTC
	if timezone != "" {
		var err error
		location, err = time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, err
		}
	}
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location), nil
}
