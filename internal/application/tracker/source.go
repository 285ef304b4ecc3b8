package tracker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/penwyp/go-ontrack/internal/util"
)

// Sample is what an activity source observed at one poll.
type Sample struct {
	// ActivityID is the active program, or "" when nothing is focused.
	ActivityID string
	// Elapsed overrides the tracker's own clock delta when positive.
	Elapsed time.Duration
	// Idle is the time since the last user input, valid when IdleKnown.
	Idle      time.Duration
	IdleKnown bool
}

// ActivitySource reports the currently active program. Poll must not block
// for longer than a poll interval.
type ActivitySource interface {
	Poll(ctx context.Context) (Sample, error)
}

// NormalizeActivityID reduces a process name or path to a program id:
// directories are stripped and everything after the first dot is dropped.
// Names starting with a dot are kept whole.
func NormalizeActivityID(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}

// ParseSampleLine parses "<program>[\t<idle seconds>]".
func ParseSampleLine(line string) Sample {
	line = strings.TrimRight(line, "\r\n")
	id, idle, hasIdle := strings.Cut(line, "\t")
	s := Sample{ActivityID: NormalizeActivityID(id)}
	if !hasIdle {
		return s
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(idle), 64)
	if err != nil || seconds < 0 {
		util.LogDebugf("Ignoring idle field %q", idle)
		return s
	}
	s.Idle = time.Duration(seconds * float64(time.Second))
	s.IdleKnown = true
	return s
}

// LineSource reports the most recent line read from r. A background
// goroutine drains r, so a watcher script can print only when focus
// changes. After r is exhausted the last line is reported once more, then
// Poll returns io.EOF.
type LineSource struct {
	mu     sync.Mutex
	latest Sample
	fresh  bool
	done   bool
	err    error
}

// NewLineSource starts reading r
func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{}
	go s.read(r)
	return s
}

func (s *LineSource) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sample := ParseSampleLine(scanner.Text())
		s.mu.Lock()
		s.latest = sample
		s.fresh = true
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.err = scanner.Err()
}

func (s *LineSource) Poll(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done && !s.fresh {
		if s.err != nil {
			return Sample{}, fmt.Errorf("reading activity input: %w", s.err)
		}
		return Sample{}, io.EOF
	}
	s.fresh = false
	return s.latest, nil
}

// CommandSource runs a shell command on every poll and parses the first
// non-empty line of its output as a sample.
type CommandSource struct {
	command string
	timeout time.Duration
}

// NewCommandSource returns a source running command, killed after timeout
func NewCommandSource(command string, timeout time.Duration) *CommandSource {
	return &CommandSource{command: command, timeout: timeout}
}

func (s *CommandSource) Poll(ctx context.Context) (Sample, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", s.command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", s.command)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 100 * time.Millisecond

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Sample{}, fmt.Errorf("activity command timed out after %s", s.timeout)
		}
		return Sample{}, fmt.Errorf("activity command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			return ParseSampleLine(line), nil
		}
	}
	return Sample{}, nil
}
