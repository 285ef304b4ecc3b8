package tracker

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/model"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/data/store"
	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, source ActivitySource, opts ...Option) (*Tracker, *profile.Profile, store.Store) {
	t.Helper()
	require.NoError(t, util.InitializeTimeProvider("UTC"))
	t.Cleanup(func() { _ = util.InitializeTimeProvider("Local") })

	cfg := config.DefaultConfig()
	cfg.AFKTimeout = 60
	cfg.UpdateInterval = 0.01
	cfg.AutosaveInterval = 0.05
	p := profile.New(&cfg)

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	return New(p, st, source, opts...), p, st
}

func base() time.Time {
	return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
}

func TestNormalizeActivityID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "firefox", want: "firefox"},
		{in: "Code.exe", want: "Code"},
		{in: "archive.tar.gz", want: "archive"},
		{in: `C:\Program Files\Steam\steam.exe`, want: "steam"},
		{in: "/usr/bin/python3.11", want: "python3"},
		{in: ".hidden", want: ".hidden"},
		{in: "  spaced  ", want: "spaced"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeActivityID(tt.in))
		})
	}
}

func TestParseSampleLine(t *testing.T) {
	s := ParseSampleLine("code.exe\t12.5\n")
	assert.Equal(t, "code", s.ActivityID)
	assert.True(t, s.IdleKnown)
	assert.Equal(t, 12500*time.Millisecond, s.Idle)

	s = ParseSampleLine("firefox")
	assert.Equal(t, "firefox", s.ActivityID)
	assert.False(t, s.IdleKnown)

	s = ParseSampleLine("firefox\tlots")
	assert.Equal(t, "firefox", s.ActivityID)
	assert.False(t, s.IdleKnown)

	s = ParseSampleLine("\t3")
	assert.Empty(t, s.ActivityID)
	assert.True(t, s.IdleKnown)
}

func TestTickCreditsElapsedTime(t *testing.T) {
	tr, p, _ := newTracker(t, nil)

	status := tr.Tick(base(), Sample{ActivityID: "code"})
	assert.Zero(t, status.Credited, "first tick only sets the reference time")

	status = tr.Tick(base().Add(2*time.Second), Sample{ActivityID: "code"})
	assert.Equal(t, 2.0, status.Credited)
	tr.Tick(base().Add(3*time.Second), Sample{ActivityID: "firefox"})
	tr.Tick(base().Add(4*time.Second), Sample{})
	tr.Tick(base().Add(9*time.Second), Sample{ActivityID: "code", Elapsed: 500 * time.Millisecond})

	code, ok := p.Lookup("code")
	require.True(t, ok)
	assert.Equal(t, 2.5, code.Time)
	assert.Equal(t, map[string]float64{"2024-01-01T10:00:00": 2.5}, code.TimeSeries)
	firefox, _ := p.Lookup("firefox")
	assert.Equal(t, 1.0, firefox.Time)
	assert.Equal(t, 3.5, p.TotalTime())
}

func TestTickRespectsAFK(t *testing.T) {
	tr, p, _ := newTracker(t, nil)
	music := p.GetProgram("music")
	music.AFKSensitive = false

	tr.Tick(base(), Sample{ActivityID: "code"})
	status := tr.Tick(base().Add(time.Second), Sample{ActivityID: "code", Idle: 120 * time.Second, IdleKnown: true})
	assert.True(t, status.AFK)
	assert.Zero(t, status.Credited)
	assert.Equal(t, 120.0, p.AFKTime)

	status = tr.Tick(base().Add(2*time.Second), Sample{ActivityID: "music"})
	assert.True(t, status.AFK, "AFK time persists until input is seen")
	assert.Equal(t, 1.0, status.Credited)

	status = tr.Tick(base().Add(3*time.Second), Sample{ActivityID: "code", Idle: time.Second, IdleKnown: true})
	assert.False(t, status.AFK)
	assert.Equal(t, 1.0, status.Credited)

	code, _ := p.Lookup("code")
	assert.Equal(t, 1.0, code.Time)
	assert.Equal(t, 1.0, music.Time)
}

func TestTickReportsSelectedTask(t *testing.T) {
	var got []Status
	tr, p, _ := newTracker(t, nil, WithStatusHandler(func(s Status) { got = append(got, s) }))
	p.GetProgram("code")
	require.NoError(t, p.SelectByID("code"))

	tr.Tick(base(), Sample{ActivityID: "code"})
	tr.Tick(base().Add(5*time.Second), Sample{ActivityID: "code"})

	require.Len(t, got, 2)
	assert.Equal(t, "Code", got[1].Selected)
	assert.Equal(t, 5.0, got[1].Session)
}

func TestTickHiddenProgramsStillAccrue(t *testing.T) {
	tr, p, _ := newTracker(t, nil)

	tr.Tick(base(), Sample{ActivityID: `C:\Windows\explorer`})
	tr.Tick(base().Add(time.Second), Sample{ActivityID: `C:\Windows\explorer`})

	prog, ok := p.Lookup(`C:\Windows\explorer`)
	require.True(t, ok)
	assert.Equal(t, model.VisibilityHidden, prog.Visibility)
	assert.Equal(t, 1.0, prog.Time)
	assert.Zero(t, p.TotalTime())
}

func TestLineSource(t *testing.T) {
	src := NewLineSource(strings.NewReader("code\nfirefox\t4\n"))

	var samples []Sample
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := src.Poll(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		samples = append(samples, s)
		require.True(t, time.Now().Before(deadline), "source never reached EOF")
		time.Sleep(time.Millisecond)
	}

	require.NotEmpty(t, samples)
	last := samples[len(samples)-1]
	assert.Equal(t, "firefox", last.ActivityID)
	assert.Equal(t, 4*time.Second, last.Idle)
}

func TestLineSourceHoldsLatestLine(t *testing.T) {
	r, w := io.Pipe()
	src := NewLineSource(r)
	defer w.Close()

	_, err := w.Write([]byte("code\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, err := src.Poll(context.Background())
		return err == nil && s.ActivityID == "code"
	}, 2*time.Second, time.Millisecond)

	s, err := src.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "code", s.ActivityID, "focus stays until the next line")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandSource(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	s, err := NewCommandSource(`printf '\n/usr/bin/vim\t2\n'`, time.Second).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vim", s.ActivityID)
	assert.Equal(t, 2*time.Second, s.Idle)

	_, err = NewCommandSource("echo boom >&2; exit 3", time.Second).Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = NewCommandSource("sleep 5", 50*time.Millisecond).Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

type scriptedSource struct {
	mu      sync.Mutex
	samples []Sample
	polls   int
}

func (s *scriptedSource) Poll(ctx context.Context) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polls >= len(s.samples) {
		return Sample{}, io.EOF
	}
	sample := s.samples[s.polls]
	s.polls++
	return sample, nil
}

func TestRunSavesOnExhaustedInput(t *testing.T) {
	clock := base()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	src := &scriptedSource{samples: []Sample{{ActivityID: "code"}, {ActivityID: "code"}, {ActivityID: "code"}}}
	tr, _, st := newTracker(t, src, WithClock(now))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Run(ctx))

	data, err := st.Load()
	require.NoError(t, err)
	loaded, err := profile.Decode(tr.profile.Config(), data)
	require.NoError(t, err)
	code, ok := loaded.Lookup("code")
	require.True(t, ok)
	assert.Equal(t, 3.0, code.Time)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	src := NewLineSource(r)

	tr, _, st := newTracker(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop")
	}

	_, err := st.Load()
	assert.NoError(t, err, "final save happened")
}

func TestApplyConfig(t *testing.T) {
	tr, p, _ := newTracker(t, nil)
	pollTicker := time.NewTicker(time.Hour)
	defer pollTicker.Stop()
	saveTicker := time.NewTicker(time.Hour)
	defer saveTicker.Stop()

	cfg := config.DefaultConfig()
	cfg.AFKTimeout = 999
	cfg.UpdateInterval = 0.01
	tr.applyConfig(&config.LoadResult{Config: cfg, Warnings: []string{"unknown config key: \"x\""}}, pollTicker, saveTicker)

	assert.Equal(t, 999.0, p.Config().AFKTimeout)
	select {
	case <-pollTicker.C:
	case <-time.After(5 * time.Second):
		t.Fatal("poll ticker was not reset to the new interval")
	}
}

func TestApplyConfigKeepsOverrides(t *testing.T) {
	tr, p, _ := newTracker(t, nil, WithConfigAdjuster(func(cfg *config.Config) {
		cfg.Storage.Path = "/override/db.json"
	}))
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	tr.applyConfig(&config.LoadResult{Config: config.DefaultConfig()}, ticker, ticker)
	assert.Equal(t, "/override/db.json", p.Config().Storage.Path)
}
