// Package display renders the live tracking status line.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/penwyp/go-ontrack/internal/application/tracker"
	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/util"
)

const (
	clearLine  = "\r\033[2K"
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
)

// TerminalDisplay redraws a single status line after every tracker tick.
// When the output is not a terminal, a line is printed only when the
// active program or the AFK state changes.
type TerminalDisplay struct {
	mu       sync.Mutex
	w        io.Writer
	cfg      *config.Config
	inPlace  bool
	width    int
	last     tracker.Status
	drawn    bool
	finished bool
}

// NewTerminalDisplay writes to w, redrawing in place when w is a terminal.
func NewTerminalDisplay(w io.Writer, cfg *config.Config) *TerminalDisplay {
	td := &TerminalDisplay{w: w, cfg: cfg, width: 80}
	if f, ok := w.(*os.File); ok && util.IsTerminal(f) {
		td.inPlace = true
		td.width = util.TerminalWidth(f)
	}
	return td
}

// SetConfig swaps the colors used after a config reload
func (td *TerminalDisplay) SetConfig(cfg *config.Config) {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.cfg = cfg
}

// Update draws s. It is safe to use as a tracker status handler.
func (td *TerminalDisplay) Update(s tracker.Status) {
	td.mu.Lock()
	defer td.mu.Unlock()
	if td.finished {
		return
	}

	if !td.inPlace {
		if td.drawn && s.ActivityID == td.last.ActivityID && s.AFK == td.last.AFK {
			td.last = s
			return
		}
		fmt.Fprintln(td.w, td.render(s))
	} else {
		prefix := clearLine
		if !td.drawn {
			prefix = hideCursor + prefix
		}
		fmt.Fprint(td.w, prefix+td.render(s))
	}
	td.last = s
	td.drawn = true
}

// Close ends the status line and restores the cursor
func (td *TerminalDisplay) Close() {
	td.mu.Lock()
	defer td.mu.Unlock()
	if td.finished {
		return
	}
	td.finished = true
	if td.inPlace && td.drawn {
		fmt.Fprint(td.w, "\n"+showCursor)
	}
}

func (td *TerminalDisplay) render(s tracker.Status) string {
	state, color := "active", td.cfg.Color("active")
	switch {
	case s.AFK:
		state, color = "afk", td.cfg.Color("afk")
	case s.ActivityID == "":
		state, color = "idle", td.cfg.Color("idle")
	}
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")

	activity := s.ActivityID
	if activity == "" {
		activity = "-"
	}
	parts := []string{
		fmt.Sprintf("%s %s", dot, util.PadRight(state, 6)),
		util.ShortenName(activity, 24),
		fmt.Sprintf("%s %s", s.Selected, util.FormatClock(s.Session)),
	}
	line := strings.Join(parts, " │ ")
	if td.inPlace && td.width > 0 && lipgloss.Width(line) > td.width {
		line = lipgloss.NewStyle().MaxWidth(td.width).Render(line)
	}
	return line
}
