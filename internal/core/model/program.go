package model

import (
	"math"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/timekey"
	"github.com/penwyp/go-ontrack/internal/util"
)

// ProgramData is one tracked activity: its cumulative time and a sparse
// per-hour time series.
type ProgramData struct {
	id           string
	sessionTime  float64
	DisplayName  string
	Time         float64
	TimeSeries   map[string]float64
	Visibility   Visibility
	Category     string
	AFKSensitive bool

	now func() time.Time
}

// NewProgramData creates an empty record in category with default settings.
func NewProgramData(id, category string) *ProgramData {
	return &ProgramData{
		id:           id,
		DisplayName:  DefaultDisplayName(id),
		TimeSeries:   make(map[string]float64),
		Visibility:   VisibilityDefault,
		Category:     category,
		AFKSensitive: true,
		now:          time.Now,
	}
}

// DefaultDisplayName is the name shown for id until the user renames it.
func DefaultDisplayName(id string) string {
	return util.TitleCase(id)
}

func (p *ProgramData) ID() string   { return p.id }
func (p *ProgramData) Name() string { return p.DisplayName }

func (p *ProgramData) TotalTime() float64   { return p.Time }
func (p *ProgramData) SessionTime() float64 { return p.sessionTime }

// IsVisible reports whether the program takes part in aggregates
func (p *ProgramData) IsVisible() bool {
	return p.Visibility != VisibilityHidden
}

// AddTime accrues delta seconds to the hour bucket containing now.
// Non-positive or non-finite deltas are ignored.
func (p *ProgramData) AddTime(delta float64, now time.Time) {
	if !(delta > 0) || math.IsInf(delta, 1) {
		return
	}
	p.Time += delta
	p.sessionTime += delta
	if p.TimeSeries == nil {
		p.TimeSeries = make(map[string]float64)
	}
	p.TimeSeries[timekey.ToKey(now, timekey.Hour)] += delta
}

// BucketedTime splits [start, end) into ceil((end-start)/bucketSize)
// buckets and sums the series into them. Buckets without data are zero.
func (p *ProgramData) BucketedTime(start, end time.Time, bucketSize time.Duration) []float64 {
	n := BucketCount(start, end, bucketSize)
	result := make([]float64, n)
	if n == 0 {
		return result
	}
	for key, v := range p.TimeSeries {
		ts, err := timekey.FromKey(key)
		if err != nil {
			continue
		}
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		result[int(ts.Sub(start)/bucketSize)] += v
	}
	return result
}

// TimeframeTime sums the series entries whose bucket starts in [start, end).
func (p *ProgramData) TimeframeTime(start, end time.Time) float64 {
	total := 0.0
	for key, v := range p.TimeSeries {
		ts, err := timekey.FromKey(key)
		if err != nil {
			continue
		}
		if !ts.Before(start) && ts.Before(end) {
			total += v
		}
	}
	return total
}

// FirstBucket returns the earliest key in the series, or the key of the
// current hour when the program has no history yet.
func (p *ProgramData) FirstBucket() (string, bool) {
	first := ""
	for key := range p.TimeSeries {
		if first == "" || key < first {
			first = key
		}
	}
	if first == "" {
		return timekey.ToKey(p.clock(), timekey.Hour), true
	}
	return first, true
}

// LastBucket returns the latest key in the series, or the key of the
// current hour when the program has no history yet.
func (p *ProgramData) LastBucket() (string, bool) {
	last := ""
	for key := range p.TimeSeries {
		if key > last {
			last = key
		}
	}
	if last == "" {
		return timekey.ToKey(p.clock(), timekey.Hour), true
	}
	return last, true
}

// ResetSession zeroes the session counter
func (p *ProgramData) ResetSession() {
	p.sessionTime = 0
}

// SetClock overrides the clock used for the empty-history sentinel
func (p *ProgramData) SetClock(now func() time.Time) {
	p.now = now
}

func (p *ProgramData) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

// BucketCount returns ceil((end-start)/bucketSize), or 0 for an empty range.
func BucketCount(start, end time.Time, bucketSize time.Duration) int {
	if bucketSize <= 0 || !end.After(start) {
		return 0
	}
	span := end.Sub(start)
	n := span / bucketSize
	if span%bucketSize != 0 {
		n++
	}
	return int(n)
}
