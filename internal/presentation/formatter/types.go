package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/data/chart"
)

// Formatter renders chart and program data in one output format.
type Formatter interface {
	FormatActivity(c *chart.ActivityChart) error
	FormatPie(p *chart.PieChart) error
	FormatPrograms(rows []ProgramRow) error
}

// ProgramRow is one line of the program listing
type ProgramRow struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Visibility   string  `json:"visibility"`
	AFKSensitive bool    `json:"afk_sensitive"`
	Total        float64 `json:"total_seconds"`
	Session      float64 `json:"session_seconds"`
	Selected     bool    `json:"selected,omitempty"`
}

// ProgramRows lists the profile's programs in display order.
func ProgramRows(p *profile.Profile, includeHidden bool) []ProgramRow {
	progs := p.SortedPrograms(includeHidden)
	rows := make([]ProgramRow, 0, len(progs))
	for _, prog := range progs {
		rows = append(rows, ProgramRow{
			ID:           prog.ID(),
			Name:         prog.Name(),
			Category:     prog.Category,
			Visibility:   string(prog.Visibility),
			AFKSensitive: prog.AFKSensitive,
			Total:        prog.TotalTime(),
			Session:      prog.SessionTime(),
			Selected:     p.SelectedID() == prog.ID(),
		})
	}
	return rows
}

// Formats lists the names accepted by New
var Formats = []string{"table", "json", "csv"}

// New returns the formatter for format writing to w.
func New(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// activityColumn is one value column of a tabulated activity chart.
type activityColumn struct {
	Key   string
	Label string
	Color string
}

// activityRow is one bucket (and slot, for split program charts).
type activityRow struct {
	Bucket int
	Label  string
	Slot   string
	Values []float64
	Total  float64
}

// tabulate flattens an activity chart into rows of bucket values, one
// column per series. Program charts get one row per bar.
func tabulate(c *chart.ActivityChart) ([]activityColumn, []activityRow) {
	if c.Stack != nil {
		return tabulateStack(c)
	}

	cols := make([]activityColumn, 0, len(c.Series))
	for _, s := range c.Series {
		cols = append(cols, activityColumn{Key: s.Key, Label: s.Label, Color: s.Color})
	}
	rows := make([]activityRow, 0, c.NumBuckets())
	for i, label := range c.Labels {
		row := activityRow{Bucket: i, Label: label, Values: make([]float64, len(cols))}
		for j, s := range c.Series {
			if i < len(s.Values) {
				row.Values[j] = s.Values[i]
				row.Total += s.Values[i]
			}
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func tabulateStack(c *chart.ActivityChart) ([]activityColumn, []activityRow) {
	stack := c.Stack
	cols := make([]activityColumn, 0, len(stack.Series))
	index := make(map[string]int, len(stack.Series))
	for i, s := range stack.Series {
		cols = append(cols, activityColumn{Key: s.ID, Label: s.Label, Color: s.Color})
		index[s.ID] = i
	}

	rows := make([]activityRow, 0, len(stack.Bars))
	for _, bar := range stack.Bars {
		row := activityRow{Bucket: bar.Bucket, Slot: bar.Slot, Values: make([]float64, len(cols)), Total: bar.Total}
		if bar.Bucket < len(c.Labels) {
			row.Label = c.Labels[bar.Bucket]
		}
		for _, piece := range bar.Pieces {
			if j, ok := index[piece.ID]; ok {
				row.Values[j] = piece.Value
			}
		}
		rows = append(rows, row)
	}
	return cols, rows
}

// hasSlots reports whether a program chart was split by category
func hasSlots(c *chart.ActivityChart) bool {
	return c.Stack != nil && len(c.Stack.Slots) > 1
}
