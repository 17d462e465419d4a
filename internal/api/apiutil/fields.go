package apiutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func ParseNonNegativeIntField(raw string, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be 0 or greater", field)
	}
	return value, nil
}

// ParseStartTime reads a start time from a form or JSON string. Values
// without a zone are read in loc.
func ParseStartTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("startTime is required")
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.In(loc), nil
	}
	layouts := []string{
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("startTime must be a valid date and time")
}
