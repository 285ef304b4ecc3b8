package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var spanPattern = regexp.MustCompile(`(\d+)([hdwmy])`)

// ParseSpan parses compound spans such as "12h", "7d" or "2w3d". Months are
// 30 days and years 365.
func ParseSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	matches := spanPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	var total time.Duration
	consumed := 0
	for _, m := range matches {
		if m[0] != consumed {
			return 0, fmt.Errorf("invalid duration format: %s", s)
		}
		consumed = m[1]

		value, err := strconv.Atoi(s[m[2]:m[3]])
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration: %s", s[m[2]:m[3]])
		}
		day := 24 * time.Hour
		switch s[m[4]:m[5]] {
		case "h":
			total += time.Duration(value) * time.Hour
		case "d":
			total += time.Duration(value) * day
		case "w":
			total += time.Duration(value) * 7 * day
		case "m":
			total += time.Duration(value) * 30 * day
		case "y":
			total += time.Duration(value) * 365 * day
		}
	}
	if consumed != len(s) {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	return total, nil
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimeArg parses an absolute time in the configured timezone, "now",
// or a span looking back from now ("7d", "12h").
func ParseTimeArg(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if strings.EqualFold(s, "now") {
		return now, nil
	}
	for _, layout := range timeLayouts {
		if t, err := GetTimeProvider().ParseInLocation(layout, s); err == nil {
			return t, nil
		}
	}
	span, err := ParseSpan(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want YYYY-MM-DD[THH:MM], \"now\" or a span like 7d", s)
	}
	return now.Add(-span), nil
}
