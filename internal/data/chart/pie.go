package chart

import (
	"fmt"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/constants"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/core/timekey"
	"github.com/penwyp/go-ontrack/internal/data/grouping"
)

// otherExplode is how far the Other slice is pulled out of the pie
const otherExplode = 0.1

// PieRequest selects the data for a point-in-time breakdown.
type PieRequest struct {
	Start           time.Time
	End             time.Time
	SplitByCategory bool
	Programs        []string
}

// Slice is one piece of a pie chart.
type Slice struct {
	Key      string
	Label    string
	Color    string
	Value    float64
	Fraction float64
	Explode  float64
}

// PieChart is the renderer input for a pie chart. Slices are ordered
// smallest first with Other leading.
type PieChart struct {
	Title  string
	Start  time.Time
	End    time.Time
	Total  float64
	Slices []Slice
}

// BuildPie sums each selected program's time within the timeframe, grouped
// by category or by program, and folds pieces under the configured minimum
// fraction of the grand total into Other.
func BuildPie(p *profile.Profile, req PieRequest) (*PieChart, error) {
	cfg := p.Config()
	start, end, err := resolveRange(p, req.Start, req.End, constants.HourBucket)
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

	values := make(map[string]float64)
	labels := map[string]string{constants.GroupingOther: constants.GroupingOtherDisplay}
	if req.SplitByCategory {
		for _, category := range cfg.Categories {
			values[category] = 0
			labels[category] = category
		}
		for _, prog := range programs {
			values[cfg.NormalizeCategory(prog.Category)] += prog.TimeframeTime(start, end)
		}
	} else {
		for _, prog := range programs {
			values[prog.ID()] += prog.TimeframeTime(start, end)
			labels[prog.ID()] = prog.Name()
		}
	}

	total := grouping.Sum(values)
	bucketed := grouping.BucketIntoOther(values, cfg.MinPieceFraction*total, constants.GroupingOther)

	pie := &PieChart{
		Title: fmt.Sprintf("Task Distribution from %s to %s",
			timekey.ToLabel(start, timekey.Day), timekey.ToLabel(end, timekey.Day)),
		Start: start,
		End:   end,
		Total: total,
	}
	misc := 0
	for _, e := range grouping.SortByValue(bucketed, false, constants.GroupingOther) {
		if e.Value == 0 {
			continue
		}
		s := Slice{Key: e.Key, Label: labels[e.Key], Value: e.Value}
		if total > 0 {
			s.Fraction = e.Value / total
		}
		switch {
		case e.Key == constants.GroupingOther:
			s.Color = cfg.Color("miscellaneous")
			s.Explode = otherExplode
		case req.SplitByCategory && cfg.IsCategory(e.Key):
			s.Color = cfg.Color(e.Key)
		default:
			s.Color = cfg.MiscColor(misc)
			misc++
		}
		pie.Slices = append(pie.Slices, s)
	}
	return pie, nil
}
