package interaction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/penwyp/go-ontrack/internal/presentation/formatter"
)

// SortField represents the field to sort programs by
type SortField int

const (
	SortByTotal SortField = iota
	SortBySession
	SortByName
	SortByCategory
)

var sortFieldNames = map[string]SortField{
	"total":    SortByTotal,
	"session":  SortBySession,
	"name":     SortByName,
	"category": SortByCategory,
}

// ParseSortField maps a flag value to a SortField
func ParseSortField(s string) (SortField, error) {
	field, ok := sortFieldNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown sort field %q (want total, session, name or category)", s)
	}
	return field, nil
}

// SortOrder represents the sort order
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// ProgramSorter handles sorting of program listings
type ProgramSorter struct {
	field SortField
	order SortOrder
}

// NewProgramSorter creates a sorter. Time fields default to descending.
func NewProgramSorter(field SortField, reverse bool) *ProgramSorter {
	order := SortAscending
	if field == SortByTotal || field == SortBySession {
		order = SortDescending
	}
	if reverse {
		order = 1 - order
	}
	return &ProgramSorter{field: field, order: order}
}

// Sort sorts rows in place. Ties keep their existing order.
func (s *ProgramSorter) Sort(rows []formatter.ProgramRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if s.order == SortDescending {
			a, b = b, a
		}

		switch s.field {
		case SortBySession:
			return a.Session < b.Session
		case SortByName:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case SortByCategory:
			return a.Category < b.Category
		default:
			return a.Total < b.Total
		}
	})
}
