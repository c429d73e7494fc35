package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel placings for runs that did not finish normally.
const (
	PositionLast        = 998
	PositionNonFinisher = 999
)

// twoDigitYearPivot: two-digit years up to this value are 20xx, above it 19xx.
const twoDigitYearPivot = 25

var ordinalRe = regexp.MustCompile(`^(\d+)(st|nd|rd|th)`)

var nonFinishers = map[string]struct{}{
	"fell":         {},
	"pulled up":    {},
	"disqualified": {},
	"refused":      {},
}

// CleanPosition converts a placing such as "1st" into a rank. Non-finishers map
// to PositionNonFinisher and "last" to PositionLast.
func CleanPosition(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m := ordinalRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}
	if _, ok := nonFinishers[s]; ok {
		return PositionNonFinisher, true
	}
	if s == "last" {
		return PositionLast, true
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2 Jan 2006",
}

// ParseDate understands RFC3339, ISO dates, and racing-form dates like
// "23 Sep 00" whose two-digit year pivots at 25.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	parts := strings.Fields(s)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if year >= 0 && year <= 99 {
		if year <= twoDigitYearPivot {
			year += 2000
		} else {
			year += 1900
		}
	}
	t, err := time.Parse("2 Jan 2006", parts[0]+" "+parts[1]+" "+strconv.Itoa(year))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
