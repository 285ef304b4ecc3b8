package formatter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/penwyp/go-ontrack/internal/data/chart"
)

// CSVFormatter writes raw seconds so the output can be re-aggregated.
type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) FormatActivity(c *chart.ActivityChart) error {
	cols, rows := tabulate(c)
	slots := hasSlots(c)

	headers := []string{"Time"}
	if slots {
		headers = append(headers, "Category")
	}
	for _, col := range cols {
		headers = append(headers, col.Label)
	}
	headers = append(headers, "Total")

	records := [][]string{headers}
	for _, row := range rows {
		record := []string{row.Label}
		if slots {
			record = append(record, row.Slot)
		}
		for _, v := range row.Values {
			record = append(record, seconds(v))
		}
		record = append(record, seconds(row.Total))
		records = append(records, record)
	}
	return f.write(records)
}

func (f *CSVFormatter) FormatPie(p *chart.PieChart) error {
	records := [][]string{{"Key", "Label", "Seconds", "Fraction"}}
	for _, s := range p.Slices {
		records = append(records, []string{s.Key, s.Label, seconds(s.Value), strconv.FormatFloat(s.Fraction, 'f', 4, 64)})
	}
	return f.write(records)
}

func (f *CSVFormatter) FormatPrograms(rows []ProgramRow) error {
	records := [][]string{{"ID", "Name", "Category", "Visibility", "AFK Sensitive", "Total Seconds", "Session Seconds"}}
	for _, r := range rows {
		records = append(records, []string{
			r.ID,
			r.Name,
			r.Category,
			r.Visibility,
			strconv.FormatBool(r.AFKSensitive),
			seconds(r.Total),
			seconds(r.Session),
		})
	}
	return f.write(records)
}

func (f *CSVFormatter) write(records [][]string) error {
	w := csv.NewWriter(f.w)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
