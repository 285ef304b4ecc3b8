package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/core/timekey"
	"github.com/penwyp/go-ontrack/internal/util"
)

// SummaryFormatter prints a plain-text overview of a profile.
type SummaryFormatter struct {
	w           io.Writer
	topPrograms int
}

// NewSummaryFormatter creates a summary listing at most topPrograms programs.
func NewSummaryFormatter(w io.Writer, topPrograms int) *SummaryFormatter {
	return &SummaryFormatter{w: w, topPrograms: topPrograms}
}

// Format writes the report for p.
func (f *SummaryFormatter) Format(p *profile.Profile) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Time Tracking Summary Report")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	start, end, ok := p.Range()
	if !ok {
		fmt.Fprintln(&b, "No data to summarize")
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, rule)
		_, err := io.WriteString(f.w, b.String())
		return err
	}

	first := timekey.ToLabel(start, timekey.Day)
	last := timekey.ToLabel(end.Add(-1), timekey.Day)
	if first == last {
		fmt.Fprintf(&b, "Date Range: %s\n", first)
	} else {
		fmt.Fprintf(&b, "Date Range: %s to %s\n", first, last)
	}
	fmt.Fprintln(&b)

	total := p.TotalTime()
	fmt.Fprintf(&b, "Total Time:   %s\n", util.FormatTimespan(total))
	fmt.Fprintf(&b, "This Session: %s\n", util.FormatClock(p.TotalSessionTime()))
	selected := p.SelectedTask()
	fmt.Fprintf(&b, "Selected:     %s (%s this session)\n", selected.Name(), util.FormatClock(selected.SessionTime()))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Categories:")
	for _, category := range p.Config().Categories {
		t := p.CategoryTime(category)
		if t == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s %12s  %5.1f%%\n", util.PadRight(category, 20), util.FormatTimespan(t), share(t, total))
	}
	fmt.Fprintln(&b)

	progs := p.SortedPrograms(false)
	if len(progs) > 0 {
		fmt.Fprintln(&b, "Programs:")
		fmt.Fprintln(&b, strings.Repeat("-", 60))
		for i, prog := range progs {
			if f.topPrograms > 0 && i >= f.topPrograms {
				fmt.Fprintf(&b, "  ... and %d more\n", len(progs)-i)
				break
			}
			name := util.ShortenName(prog.Name(), 20)
			fmt.Fprintf(&b, "  %s %12s  %5.1f%%  %s\n",
				util.PadRight(name, 20), util.FormatTimespan(prog.TotalTime()), share(prog.TotalTime(), total), prog.Category)
		}
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	_, err := io.WriteString(f.w, b.String())
	return err
}

func share(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}
