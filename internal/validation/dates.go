package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the absolute date format accepted by the GA4 Data API.
const DateLayout = "2006-01-02"

var daysAgoPattern = regexp.MustCompile(`^([0-9]+)daysAgo$`)

// IsDateToken reports whether s is a date the GA4 Data API accepts:
// YYYY-MM-DD, "today", "yesterday" or "NdaysAgo".
func IsDateToken(s string, now time.Time) bool {
	_, err := ResolveDate(s, now)
	return err == nil
}

// ResolveDate turns a date token into a calendar day relative to now.
// Relative tokens are only resolved for ordering checks; the original token
// is what gets sent to the backend.
func ResolveDate(s string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch s {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	if m := daysAgoPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative date %q: %w", s, err)
		}
		return today.AddDate(0, 0, -n), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
