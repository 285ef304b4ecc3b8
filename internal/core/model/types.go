package model

import (
	"strings"
	"time"
)

// Visibility controls whether a program shows up in lists and aggregates.
type Visibility string

const (
	VisibilityDefault Visibility = "default"
	VisibilityPinned  Visibility = "pinned"
	VisibilityHidden  Visibility = "hidden"
)

// ParseVisibility normalizes s, falling back to VisibilityDefault for
// anything unrecognized.
func ParseVisibility(s string) Visibility {
	switch Visibility(strings.ToLower(strings.TrimSpace(s))) {
	case VisibilityPinned:
		return VisibilityPinned
	case VisibilityHidden:
		return VisibilityHidden
	default:
		return VisibilityDefault
	}
}

// IsValid reports whether v is one of the known visibilities
func (v Visibility) IsValid() bool {
	return v == VisibilityDefault || v == VisibilityPinned || v == VisibilityHidden
}

// Task is a uniform view over a single program or an aggregate of
// programs. Aggregates read through to the underlying records on every call.
type Task interface {
	ID() string
	Name() string
	TotalTime() float64
	SessionTime() float64
	TimeframeTime(start, end time.Time) float64
	// FirstBucket and LastBucket return false for an aggregate with no
	// qualifying programs.
	FirstBucket() (string, bool)
	LastBucket() (string, bool)
}
