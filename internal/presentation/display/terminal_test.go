package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/penwyp/go-ontrack/internal/application/tracker"
	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/stretchr/testify/assert"
)

func TestTerminalDisplayPrintsChanges(t *testing.T) {
	cfg := config.DefaultConfig()
	var buf bytes.Buffer
	td := NewTerminalDisplay(&buf, &cfg)

	td.Update(tracker.Status{ActivityID: "code", Selected: "Total", Session: 61})
	td.Update(tracker.Status{ActivityID: "code", Selected: "Total", Session: 62})
	td.Update(tracker.Status{ActivityID: "code", AFK: true, Selected: "Total", Session: 62})
	td.Update(tracker.Status{Selected: "Work", Session: 3661})
	td.Close()
	td.Update(tracker.Status{ActivityID: "late"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "active")
	assert.Contains(t, lines[0], "code")
	assert.Contains(t, lines[0], "Total 00:01:01")
	assert.Contains(t, lines[1], "afk")
	assert.Contains(t, lines[2], "idle")
	assert.Contains(t, lines[2], "Work 01:01:01")
	assert.NotContains(t, buf.String(), "\033[?25l", "no cursor control outside a terminal")
}

func TestTerminalDisplayInPlace(t *testing.T) {
	cfg := config.DefaultConfig()
	var buf bytes.Buffer
	td := &TerminalDisplay{w: &buf, cfg: &cfg, inPlace: true, width: 30}

	td.Update(tracker.Status{ActivityID: "a-program-with-a-rather-long-name", Selected: "Total"})
	td.Update(tracker.Status{ActivityID: "b", Selected: "Total"})
	td.Close()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, hideCursor+clearLine))
	assert.Equal(t, 2, strings.Count(out, clearLine))
	assert.True(t, strings.HasSuffix(out, "\n"+showCursor))
	assert.NotContains(t, out, "rather-long-name")
}
