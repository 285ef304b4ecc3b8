package model

import (
	"math"
	"testing"
	"time"

	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useUTC(t *testing.T) {
	t.Helper()
	require.NoError(t, util.InitializeTimeProvider("UTC"))
	t.Cleanup(func() { _ = util.InitializeTimeProvider("Local") })
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func sumSeries(p *ProgramData) float64 {
	total := 0.0
	for _, v := range p.TimeSeries {
		total += v
	}
	return total
}

func TestNewProgramDataDefaults(t *testing.T) {
	p := NewProgramData("visual studio", "Productivity")

	assert.Equal(t, "visual studio", p.ID())
	assert.Equal(t, "Visual Studio", p.Name())
	assert.Equal(t, VisibilityDefault, p.Visibility)
	assert.Equal(t, "Productivity", p.Category)
	assert.True(t, p.AFKSensitive)
	assert.True(t, p.IsVisible())
	assert.Empty(t, p.TimeSeries)
}

func TestAddTime(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")

	deltas := []float64{1.5, 0.25, 600, 3599.75, 12}
	times := []time.Time{at(9, 0), at(9, 59), at(10, 0), at(10, 30), at(23, 59)}
	expected := 0.0
	for i, d := range deltas {
		p.AddTime(d, times[i])
		expected += d
	}

	assert.InDelta(t, expected, p.TotalTime(), 1e-9)
	assert.InDelta(t, expected, p.SessionTime(), 1e-9)
	assert.InDelta(t, p.TotalTime(), sumSeries(p), 1e-9)
	assert.Equal(t, map[string]float64{
		"2024-01-01T09:00:00": 1.75,
		"2024-01-01T10:00:00": 4199.75,
		"2024-01-01T23:00:00": 12,
	}, p.TimeSeries)
}

func TestAddTimeIgnoresNonPositive(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")

	for _, d := range []float64{0, -3, math.NaN(), math.Inf(1), math.Inf(-1)} {
		p.AddTime(d, at(9, 0))
	}

	assert.Zero(t, p.TotalTime())
	assert.Zero(t, p.SessionTime())
	assert.Empty(t, p.TimeSeries)
}

func TestBucketedTime(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")
	p.TimeSeries = map[string]float64{"2024-01-01T10:00:00": 600}

	got := p.BucketedTime(at(9, 0), at(12, 0), time.Hour)
	assert.Equal(t, []float64{0, 600, 0}, got)
}

func TestBucketedTimeRanges(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")
	p.TimeSeries = map[string]float64{
		"2024-01-01T07:00:00": 5,  // before range
		"2024-01-01T08:00:00": 10, // first bucket
		"2024-01-01T09:00:00": 20,
		"2024-01-01T10:00:00": 30,
		"2024-01-01T11:00:00": 40, // last partial bucket
		"2024-01-01T12:00:00": 50, // at end, excluded
		"garbage":             99,
	}

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		step     time.Duration
		expected []float64
	}{
		{name: "hourly", start: at(8, 0), end: at(12, 0), step: time.Hour, expected: []float64{10, 20, 30, 40}},
		{name: "two hour buckets", start: at(8, 0), end: at(12, 0), step: 2 * time.Hour, expected: []float64{30, 70}},
		{name: "ragged end rounds up", start: at(8, 0), end: at(11, 30), step: 2 * time.Hour, expected: []float64{30, 70}},
		{name: "empty range", start: at(8, 0), end: at(8, 0), step: time.Hour, expected: []float64{}},
		{name: "inverted range", start: at(12, 0), end: at(8, 0), step: time.Hour, expected: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.BucketedTime(tt.start, tt.end, tt.step)
			assert.Equal(t, tt.expected, got)
			assert.Len(t, got, BucketCount(tt.start, tt.end, tt.step))
		})
	}
}

func TestBucketedTimeMatchesTimeframeTime(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")
	for h := 0; h < 24; h++ {
		p.AddTime(float64(h*10+1), at(h, 17))
	}

	start, end := at(3, 0), at(21, 0)
	for _, step := range []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour, 6 * time.Hour} {
		buckets := p.BucketedTime(start, end, step)
		total := 0.0
		for _, b := range buckets {
			assert.GreaterOrEqual(t, b, 0.0)
			total += b
		}
		assert.Len(t, buckets, int(end.Sub(start)/step))
		assert.InDelta(t, p.TimeframeTime(start, end), total, 1e-9, "step %s", step)
	}
}

func TestTimeframeTime(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")
	p.TimeSeries = map[string]float64{
		"2024-01-01T08:00:00": 10,
		"2024-01-01T09:00:00": 20,
		"2024-01-01T10:00:00": 30,
	}

	assert.Equal(t, 30.0, p.TimeframeTime(at(8, 0), at(10, 0)))
	assert.Equal(t, 60.0, p.TimeframeTime(at(0, 0), at(23, 0)))
	assert.Equal(t, 0.0, p.TimeframeTime(at(11, 0), at(12, 0)))
}

func TestFirstLastBucket(t *testing.T) {
	useUTC(t)
	p := NewProgramData("code", "Productivity")
	p.SetClock(func() time.Time { return at(17, 45) })

	first, ok := p.FirstBucket()
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01T17:00:00", first)
	last, _ := p.LastBucket()
	assert.Equal(t, "2024-01-01T17:00:00", last)

	p.TimeSeries = map[string]float64{
		"2024-01-02T01:00:00": 1,
		"2023-12-31T23:00:00": 1,
		"2024-01-01T12:00:00": 1,
	}
	first, _ = p.FirstBucket()
	last, _ = p.LastBucket()
	assert.Equal(t, "2023-12-31T23:00:00", first)
	assert.Equal(t, "2024-01-02T01:00:00", last)
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		input    string
		expected Visibility
	}{
		{"default", VisibilityDefault},
		{"pinned", VisibilityPinned},
		{"HIDDEN", VisibilityHidden},
		{" pinned ", VisibilityPinned},
		{"invisible", VisibilityDefault},
		{"", VisibilityDefault},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseVisibility(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestBucketCount(t *testing.T) {
	assert.Equal(t, 3, BucketCount(at(9, 0), at(12, 0), time.Hour))
	assert.Equal(t, 4, BucketCount(at(9, 0), at(12, 1), time.Hour))
	assert.Equal(t, 0, BucketCount(at(9, 0), at(9, 0), time.Hour))
	assert.Equal(t, 0, BucketCount(at(9, 0), at(12, 0), 0))
}
