// Package chart turns profile data into renderer-ready chart descriptions:
// bar charts over time (flat, split by category, or stacked per program)
// and pie breakdowns over a timeframe.
package chart

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/constants"
	"github.com/penwyp/go-ontrack/internal/core/model"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/core/timekey"
	"github.com/penwyp/go-ontrack/internal/data/grouping"
)

// GraphingError reports a request that cannot be charted. Callers show the
// message and render nothing.
type GraphingError struct {
	Reason string
}

func (e *GraphingError) Error() string {
	return "cannot build chart: " + e.Reason
}

func graphingErrorf(format string, args ...interface{}) error {
	return &GraphingError{Reason: fmt.Sprintf(format, args...)}
}

// IsGraphingError reports whether err is, or wraps, a *GraphingError.
func IsGraphingError(err error) bool {
	var ge *GraphingError
	return errors.As(err, &ge)
}

// Kind tells which of the activity chart layouts was built
type Kind string

const (
	KindFlat     Kind = "flat"
	KindCategory Kind = "category"
	KindProgram  Kind = "program"
)

// Request selects the data for an activity chart. Zero Start or End fall
// back to the profile's recorded history. An empty Programs list means
// every visible program.
type Request struct {
	Start           time.Time
	End             time.Time
	Step            time.Duration
	SplitByCategory bool
	SplitByProgram  bool
	Programs        []string
}

// Series is one named row of values, one per time bucket.
type Series struct {
	Key    string
	Label  string
	Color  string
	Values []float64
}

// Total sums the series
func (s Series) Total() float64 {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// ActivityChart is the renderer input for a bar chart over time.
type ActivityChart struct {
	Title         string
	Kind          Kind
	Start         time.Time
	End           time.Time
	Step          time.Duration
	Granularity   timekey.Granularity
	Labels        []string
	ShowLabel     []bool
	LabelRotation float64

	// Series is set for flat and category charts.
	Series []Series
	// Stack is set for program charts.
	Stack *grouping.Stack
}

// NumBuckets returns the number of time buckets on the x axis
func (c *ActivityChart) NumBuckets() int { return len(c.Labels) }

// BuildActivityChart builds a flat, category-split or program-split bar
// chart for req.
func BuildActivityChart(p *profile.Profile, req Request) (*ActivityChart, error) {
	cfg := p.Config()
	if req.Step <= 0 {
		return nil, graphingErrorf("step must be positive, got %s", req.Step)
	}
	start, end, err := resolveRange(p, req.Start, req.End, req.Step)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, graphingErrorf("end time must be after start time")
	}
	programs, err := selectPrograms(p, req.Programs)
	if err != nil {
		return nil, err
	}
	n := model.BucketCount(start, end, req.Step)
	if n > cfg.MaxPlotBuckets {
		return nil, graphingErrorf("too many buckets: (%d > %d)", n, cfg.MaxPlotBuckets)
	}

	gran := timekey.ForStep(req.Step)
	c := &ActivityChart{
		Start:         start,
		End:           end,
		Step:          req.Step,
		Granularity:   gran,
		Labels:        make([]string, n),
		LabelRotation: LabelRotation(n),
	}
	for i := range c.Labels {
		c.Labels[i] = timekey.ToLabel(start.Add(time.Duration(i)*req.Step), gran)
	}
	c.ShowLabel = ThinLabels(n, cfg.MaxPlotLabels)

	switch {
	case req.SplitByProgram:
		c.Kind = KindProgram
		c.Title = "Time Spent by Program"
		stack := buildProgramStack(cfg, programs, start, end, req.Step, n, req.SplitByCategory)
		c.Stack = &stack
	case req.SplitByCategory:
		c.Kind = KindCategory
		c.Title = "Time Spent by Category"
		c.Series = buildCategorySeries(cfg, programs, start, end, req.Step, n)
	default:
		c.Kind = KindFlat
		c.Title = "Activity Over Time"
		c.Series = []Series{buildFlatSeries(cfg, programs, start, end, req.Step, n)}
	}
	return c, nil
}

func buildFlatSeries(cfg *config.Config, programs []*model.ProgramData, start, end time.Time, step time.Duration, n int) Series {
	s := Series{
		Key:    constants.TotalTaskID,
		Label:  constants.TotalTaskID,
		Color:  cfg.Color("active"),
		Values: make([]float64, n),
	}
	for _, prog := range programs {
		addInto(s.Values, prog.BucketedTime(start, end, step))
	}
	return s
}

func buildCategorySeries(cfg *config.Config, programs []*model.ProgramData, start, end time.Time, step time.Duration, n int) []Series {
	series := make([]Series, len(cfg.Categories))
	index := make(map[string]int, len(cfg.Categories))
	for i, category := range cfg.Categories {
		index[category] = i
		series[i] = Series{
			Key:    category,
			Label:  category,
			Color:  cfg.Color(category),
			Values: make([]float64, n),
		}
	}
	for _, prog := range programs {
		i := index[cfg.NormalizeCategory(prog.Category)]
		addInto(series[i].Values, prog.BucketedTime(start, end, step))
	}
	return series
}

func buildProgramStack(cfg *config.Config, programs []*model.ProgramData, start, end time.Time, step time.Duration, n int, byCategory bool) grouping.Stack {
	var slots []string
	if byCategory {
		slots = cfg.Categories
	}
	contributors := make([]grouping.Contributor, 0, len(programs))
	for _, prog := range programs {
		c := grouping.Contributor{
			ID:     prog.ID(),
			Label:  prog.Name(),
			Values: prog.BucketedTime(start, end, step),
		}
		if byCategory {
			c.Slot = cfg.NormalizeCategory(prog.Category)
		}
		contributors = append(contributors, c)
	}
	return grouping.BuildStack(contributors, slots, n, cfg.MinPieceFractionBars, Palette(cfg))
}

// Palette is the cyclic misc palette of cfg with Other in the
// miscellaneous color.
func Palette(cfg *config.Config) grouping.Palette {
	return grouping.Palette{
		Colors:     cfg.MiscColors,
		OtherColor: cfg.Color("miscellaneous"),
	}
}

func addInto(dst, src []float64) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] += src[i]
	}
}

// LabelRotation tilts x labels further as the bucket count grows, from
// 45 degrees up to 4 buckets toward vertical.
func LabelRotation(n int) float64 {
	if n <= 0 {
		return 45
	}
	return math.Max(90-180/float64(n), 45)
}

// ThinLabels keeps every (n/maxLabels)-th label once there are more than
// maxLabels.
func ThinLabels(n, maxLabels int) []bool {
	show := make([]bool, n)
	every := 1
	if maxLabels > 0 && n > maxLabels {
		every = n / maxLabels
	}
	for i := range show {
		show[i] = i%every == 0
	}
	return show
}

// resolveRange fills a zero start or end from the profile's history: the
// first recorded bucket, and one step past the last one.
func resolveRange(p *profile.Profile, start, end time.Time, step time.Duration) (time.Time, time.Time, error) {
	if !start.IsZero() && !end.IsZero() {
		return start, end, nil
	}
	if start.IsZero() {
		key, ok := p.FirstBucket()
		if !ok {
			return start, end, graphingErrorf("no recorded activity to chart")
		}
		t, err := timekey.FromKey(key)
		if err != nil {
			return start, end, graphingErrorf("bad first bucket: %v", err)
		}
		start = timekey.Floor(t, timekey.ForStep(step))
	}
	if end.IsZero() {
		key, ok := p.LastBucket()
		if !ok {
			return start, end, graphingErrorf("no recorded activity to chart")
		}
		t, err := timekey.FromKey(key)
		if err != nil {
			return start, end, graphingErrorf("bad last bucket: %v", err)
		}
		end = t.Add(step)
	}
	return start, end, nil
}

// selectPrograms resolves ids to records. No ids selects every visible
// record. Unknown ids are an error.
func selectPrograms(p *profile.Profile, ids []string) ([]*model.ProgramData, error) {
	if len(ids) == 0 {
		programs := p.Programs(false)
		if len(programs) == 0 {
			return nil, graphingErrorf("no programs selected")
		}
		return programs, nil
	}
	seen := make(map[string]bool, len(ids))
	programs := make([]*model.ProgramData, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		prog, ok := p.Lookup(id)
		if !ok {
			return nil, graphingErrorf("unknown program %q", id)
		}
		programs = append(programs, prog)
	}
	return programs, nil
}
