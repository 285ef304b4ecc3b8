package formatter

import (
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-ontrack/internal/data/chart"
)

type JSONFormatter struct {
	w io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

// jsonSeries values line up with the chart labels. Charts split by
// category also carry the per-category values.
type jsonSeries struct {
	Key        string               `json:"key"`
	Label      string               `json:"label"`
	Color      string               `json:"color"`
	Values     []float64            `json:"values"`
	SlotValues map[string][]float64 `json:"slot_values,omitempty"`
	Total      float64              `json:"total"`
}

type jsonBar struct {
	Label  string             `json:"label"`
	Slot   string             `json:"slot,omitempty"`
	Total  float64            `json:"total"`
	Pieces map[string]float64 `json:"pieces"`
}

type jsonActivity struct {
	Title       string       `json:"title"`
	Kind        string       `json:"kind"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	StepSeconds float64      `json:"step_seconds"`
	Labels      []string     `json:"labels"`
	Series      []jsonSeries `json:"series"`
	Bars        []jsonBar    `json:"bars,omitempty"`
}

func (f *JSONFormatter) FormatActivity(c *chart.ActivityChart) error {
	out := jsonActivity{
		Title:       c.Title,
		Kind:        string(c.Kind),
		Start:       c.Start,
		End:         c.End,
		StepSeconds: c.Step.Seconds(),
		Labels:      c.Labels,
		Series:      []jsonSeries{},
	}

	if c.Stack == nil {
		for _, s := range c.Series {
			out.Series = append(out.Series, jsonSeries{Key: s.Key, Label: s.Label, Color: s.Color, Values: s.Values, Total: s.Total()})
		}
		return f.encode(out)
	}

	for _, s := range c.Stack.Series {
		js := jsonSeries{Key: s.ID, Label: s.Label, Color: s.Color, Values: c.Stack.Values(s.ID), Total: s.Total}
		if hasSlots(c) {
			js.SlotValues = c.Stack.SlotValues(s.ID)
		}
		out.Series = append(out.Series, js)
	}
	for _, bar := range c.Stack.Bars {
		jb := jsonBar{Slot: bar.Slot, Total: bar.Total, Pieces: make(map[string]float64, len(bar.Pieces))}
		if bar.Bucket < len(c.Labels) {
			jb.Label = c.Labels[bar.Bucket]
		}
		for _, piece := range bar.Pieces {
			jb.Pieces[piece.ID] = piece.Value
		}
		out.Bars = append(out.Bars, jb)
	}
	return f.encode(out)
}

type jsonSlice struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Color    string  `json:"color"`
	Value    float64 `json:"value"`
	Fraction float64 `json:"fraction"`
	Explode  float64 `json:"explode,omitempty"`
}

type jsonPie struct {
	Title  string      `json:"title"`
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Total  float64     `json:"total"`
	Slices []jsonSlice `json:"slices"`
}

func (f *JSONFormatter) FormatPie(p *chart.PieChart) error {
	slices := make([]jsonSlice, 0, len(p.Slices))
	for _, s := range p.Slices {
		slices = append(slices, jsonSlice(s))
	}
	return f.encode(jsonPie{Title: p.Title, Start: p.Start, End: p.End, Total: p.Total, Slices: slices})
}

func (f *JSONFormatter) FormatPrograms(rows []ProgramRow) error {
	if rows == nil {
		rows = []ProgramRow{}
	}
	return f.encode(rows)
}

func (f *JSONFormatter) encode(v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.w.Write(data)
	return err
}
