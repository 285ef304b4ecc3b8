package grouping

import (
	"github.com/penwyp/go-ontrack/internal/core/constants"
)

// Contributor is one series feeding a stacked chart: a value per time
// bucket, filed under a slot (a category, or "" when unsplit).
type Contributor struct {
	ID     string
	Label  string
	Slot   string
	Values []float64
}

// Piece is one visible segment of a stacked bar.
type Piece struct {
	ID     string
	Value  float64
	Bottom float64
}

// Bar is the stack drawn for one slot of one time bucket. Pieces are
// ordered bottom-up.
type Bar struct {
	Bucket int
	Slot   string
	Total  float64
	Pieces []Piece
}

// Series describes a contributor that appears somewhere in the chart.
type Series struct {
	ID    string
	Label string
	Color string
	Total float64
}

// Stack is the output of BuildStack. Bars are ordered by bucket, then by
// slot order. Series are ordered by rank, Other last.
type Stack struct {
	Slots  []string
	Bars   []Bar
	Series []Series
}

// Lookup returns the series for id
func (s *Stack) Lookup(id string) (Series, bool) {
	for _, series := range s.Series {
		if series.ID == id {
			return series, true
		}
	}
	return Series{}, false
}

// NumBuckets returns the number of time buckets the bars cover.
func (s *Stack) NumBuckets() int {
	n := 0
	for _, bar := range s.Bars {
		if bar.Bucket+1 > n {
			n = bar.Bucket + 1
		}
	}
	return n
}

// Values returns the value of id in each bucket, summed over slots.
func (s *Stack) Values(id string) []float64 {
	out := make([]float64, s.NumBuckets())
	for _, bar := range s.Bars {
		out[bar.Bucket] += pieceValue(bar, id)
	}
	return out
}

// SlotValues returns the value of id in each bucket, per slot.
func (s *Stack) SlotValues(id string) map[string][]float64 {
	n := s.NumBuckets()
	out := make(map[string][]float64, len(s.Slots))
	for _, slot := range s.Slots {
		out[slot] = make([]float64, n)
	}
	for _, bar := range s.Bars {
		if values, ok := out[bar.Slot]; ok {
			values[bar.Bucket] += pieceValue(bar, id)
		}
	}
	return out
}

func pieceValue(bar Bar, id string) float64 {
	for _, piece := range bar.Pieces {
		if piece.ID == id {
			return piece.Value
		}
	}
	return 0
}

// BuildStack lays contributors out as stacked bars, one per bucket and slot.
//
// Within each bar, contributors below minFraction of the bar's own total
// are folded into constants.GroupingOther, and the remaining pieces are
// stacked smallest first with Other at the bottom. Contributors are then
// ranked once by their visible total across the whole chart and colored
// from palette in rank order, so a contributor keeps its color in every bar.
// Other always gets palette.OtherColor.
func BuildStack(contributors []Contributor, slots []string, numBuckets int, minFraction float64, palette Palette) Stack {
	if len(slots) == 0 {
		slots = []string{""}
	}
	slotIndex := make(map[string]int, len(slots))
	for i, slot := range slots {
		slotIndex[slot] = i
	}

	// cells[bucket][slot] maps contributor id to value
	cells := make([][]map[string]float64, numBuckets)
	for b := range cells {
		cells[b] = make([]map[string]float64, len(slots))
		for s := range cells[b] {
			cells[b][s] = make(map[string]float64)
		}
	}

	labels := map[string]string{constants.GroupingOther: constants.GroupingOtherDisplay}
	for _, c := range contributors {
		s, ok := slotIndex[c.Slot]
		if !ok {
			continue
		}
		if _, seen := labels[c.ID]; !seen {
			labels[c.ID] = c.Label
		}
		for b := 0; b < numBuckets && b < len(c.Values); b++ {
			cells[b][s][c.ID] += c.Values[b]
		}
	}

	stack := Stack{Slots: slots}
	totals := make(map[string]float64)
	for b := 0; b < numBuckets; b++ {
		for s, slot := range slots {
			values := cells[b][s]
			slotTotal := Sum(values)
			bucketed := BucketIntoOther(values, minFraction*slotTotal, constants.GroupingOther)

			bar := Bar{Bucket: b, Slot: slot}
			bottom := 0.0
			for _, e := range SortByValue(bucketed, false, constants.GroupingOther) {
				if e.Value == 0 {
					continue
				}
				bar.Pieces = append(bar.Pieces, Piece{ID: e.Key, Value: e.Value, Bottom: bottom})
				bottom += e.Value
				totals[e.Key] += e.Value
			}
			bar.Total = bottom
			stack.Bars = append(stack.Bars, bar)
		}
	}

	rank := 0
	for _, e := range SortByValue(totals, true, constants.GroupingOther) {
		series := Series{ID: e.Key, Label: labels[e.Key], Total: e.Value}
		if e.Key == constants.GroupingOther {
			series.Color = palette.OtherColor
		} else {
			series.Color = palette.Color(rank)
			rank++
		}
		stack.Series = append(stack.Series, series)
	}
	return stack
}
