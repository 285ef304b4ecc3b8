// Package timekey converts between timestamps and the bucket keys used in
// stored time series. Keys are fixed-width so that lexical order equals
// chronological order.
package timekey

import (
	"fmt"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/constants"
	"github.com/penwyp/go-ontrack/internal/util"
)

// Granularity selects hour or day buckets
type Granularity int

const (
	Hour Granularity = iota
	Day
)

const (
	hourKeyLayout   = "2006-01-02T15:00:00"
	parseLayout     = "2006-01-02T15:04:05"
	dayKeyLayout    = "2006-01-02"
	hourLabelLayout = "Jan 02 03PM"
	dayLabelLayout  = "Jan 02"
)

func (g Granularity) String() string {
	if g == Day {
		return "day"
	}
	return "hour"
}

// ForStep returns Day for steps of a day or more, Hour otherwise.
func ForStep(step time.Duration) Granularity {
	if step >= constants.DayBucket {
		return Day
	}
	return Hour
}

// Floor truncates t to the start of its hour or day in the configured zone.
func Floor(t time.Time, g Granularity) time.Time {
	local := util.GetTimeProvider().In(t)
	if g == Day {
		y, m, d := local.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, local.Location())
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, local.Hour(), 0, 0, 0, local.Location())
}

// ToKey maps t to the key of the bucket containing it.
func ToKey(t time.Time, g Granularity) string {
	local := util.GetTimeProvider().In(t)
	if g == Day {
		return local.Format(dayKeyLayout)
	}
	return local.Format(hourKeyLayout)
}

// FromKey returns the start of the bucket named by key. Both hour and day keys
// are accepted.
func FromKey(key string) (time.Time, error) {
	tp := util.GetTimeProvider()
	switch len(key) {
	case len(parseLayout):
		return tp.ParseInLocation(parseLayout, key)
	case len(dayKeyLayout):
		return tp.ParseInLocation(dayKeyLayout, key)
	}
	return time.Time{}, fmt.Errorf("invalid time key %q", key)
}

// ToLabel is the human-facing form of the bucket containing t, e.g.
// "Jan 05 03PM". Labels are lossy and never used as keys.
func ToLabel(t time.Time, g Granularity) string {
	local := util.GetTimeProvider().In(t)
	if g == Day {
		return local.Format(dayLabelLayout)
	}
	return local.Format(hourLabelLayout)
}
