package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/penwyp/go-ontrack/internal/data/chart"
	"github.com/penwyp/go-ontrack/internal/util"
)

const swatch = "■"

// TableFormatter draws box tables. Series colors are shown as swatches
// when writing to a terminal.
type TableFormatter struct {
	w     io.Writer
	color bool
}

// NewTableFormatter enables color swatches when w is a terminal.
func NewTableFormatter(w io.Writer) *TableFormatter {
	color := false
	if f, ok := w.(*os.File); ok {
		color = util.IsTerminal(f)
	}
	return &TableFormatter{w: w, color: color}
}

// WithColor forces swatches on or off
func (f *TableFormatter) WithColor(on bool) *TableFormatter {
	f.color = on
	return f
}

func (f *TableFormatter) FormatActivity(c *chart.ActivityChart) error {
	cols, rows := tabulate(c)
	slots := hasSlots(c)

	headers := []string{"Time"}
	if slots {
		headers = append(headers, "Category")
	}
	for _, col := range cols {
		headers = append(headers, f.colored(col.Label, col.Color))
	}
	headers = append(headers, "Total")

	totals := make([]float64, len(cols))
	var grand float64
	body := make([][]string, 0, len(rows)+1)
	for _, row := range rows {
		label := row.Label
		if row.Bucket < len(c.ShowLabel) && !c.ShowLabel[row.Bucket] {
			label = ""
		}
		cells := []string{label}
		if slots {
			cells = append(cells, row.Slot)
		}
		for j, v := range row.Values {
			cells = append(cells, formatSeconds(v))
			totals[j] += v
		}
		cells = append(cells, formatSeconds(row.Total))
		grand += row.Total
		body = append(body, cells)
	}

	footer := []string{"Total"}
	if slots {
		footer = append(footer, "")
	}
	for _, v := range totals {
		footer = append(footer, formatSeconds(v))
	}
	footer = append(footer, formatSeconds(grand))

	if _, err := fmt.Fprintln(f.w, c.Title); err != nil {
		return err
	}
	leftCols := 1
	if slots {
		leftCols = 2
	}
	return f.writeTable(headers, body, footer, leftCols)
}

func (f *TableFormatter) FormatPie(p *chart.PieChart) error {
	headers := []string{"Task", "Time", "Share"}
	body := make([][]string, 0, len(p.Slices))
	for _, s := range p.Slices {
		body = append(body, []string{
			f.colored(s.Label, s.Color),
			formatSeconds(s.Value),
			formatPercent(s.Fraction),
		})
	}
	footer := []string{"Total", formatSeconds(p.Total), formatPercent(1)}
	if p.Total == 0 {
		footer[2] = formatPercent(0)
	}

	if _, err := fmt.Fprintln(f.w, p.Title); err != nil {
		return err
	}
	return f.writeTable(headers, body, footer, 1)
}

func (f *TableFormatter) FormatPrograms(rows []ProgramRow) error {
	headers := []string{"ID", "Name", "Category", "Visibility", "AFK", "Total", "Session"}
	body := make([][]string, 0, len(rows))
	var total, session float64
	for _, r := range rows {
		id := r.ID
		if r.Selected {
			id = "* " + id
		}
		afk := "no"
		if r.AFKSensitive {
			afk = "yes"
		}
		body = append(body, []string{
			id,
			util.ShortenName(r.Name, 30),
			r.Category,
			r.Visibility,
			afk,
			util.FormatTimespan(r.Total),
			util.FormatClock(r.Session),
		})
		total += r.Total
		session += r.Session
	}
	footer := []string{"Total", "", "", "", "", util.FormatTimespan(total), util.FormatClock(session)}
	return f.writeTable(headers, body, footer, 5)
}

func (f *TableFormatter) colored(text, color string) string {
	if !f.color || color == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(swatch) + " " + text
}

// writeTable prints headers, body and a footer row. The first leftCols
// columns are left-aligned, the rest right-aligned.
func (f *TableFormatter) writeTable(headers []string, body [][]string, footer []string, leftCols int) error {
	widths := make([]int, len(headers))
	measure := func(cells []string) {
		for i, cell := range cells {
			if w := displayWidth(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(headers)
	for _, row := range body {
		measure(row)
	}
	measure(footer)

	var b strings.Builder
	f.border(&b, widths, "top")
	f.row(&b, headers, widths, len(headers))
	f.border(&b, widths, "middle")
	for _, row := range body {
		f.row(&b, row, widths, leftCols)
	}
	f.border(&b, widths, "middle")
	f.row(&b, footer, widths, leftCols)
	f.border(&b, widths, "bottom")

	_, err := io.WriteString(f.w, b.String())
	return err
}

func (f *TableFormatter) border(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteString("\n")
}

func (f *TableFormatter) row(b *strings.Builder, values []string, widths []int, leftCols int) {
	b.WriteString("│")
	for i, width := range widths {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		pad := width - displayWidth(value)
		if pad < 0 {
			pad = 0
		}
		if i < leftCols {
			b.WriteString(" " + value + strings.Repeat(" ", pad) + " │")
		} else {
			b.WriteString(" " + strings.Repeat(" ", pad) + value + " │")
		}
	}
	b.WriteString("\n")
}

// displayWidth ignores ANSI styling added by lipgloss
func displayWidth(s string) int {
	return lipgloss.Width(s)
}

func formatSeconds(v float64) string {
	if v == 0 {
		return "-"
	}
	return util.FormatTimespan(v)
}

func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}
