// Package tracker drives time accrual: it polls an activity source, credits
// the active program, and saves the profile periodically.
package tracker

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/data/store"
	"github.com/penwyp/go-ontrack/internal/util"
)

// Status is reported after every tick
type Status struct {
	ActivityID string
	AFK        bool
	Credited   float64
	Selected   string
	Session    float64
}

// Tracker owns the profile while it runs. Polling, autosaving and config
// reloads all happen on the goroutine calling Run, so a save always sees a
// consistent profile.
type Tracker struct {
	profile *profile.Profile
	store   store.Store
	source  ActivitySource
	watcher *config.Watcher
	now     func() time.Time

	lastTick time.Time
	onTick   func(Status)
	adjust   func(*config.Config)
}

// Option customizes a Tracker
type Option func(*Tracker)

// WithConfigWatcher applies config reloads from w while running.
func WithConfigWatcher(w *config.Watcher) Option {
	return func(t *Tracker) { t.watcher = w }
}

// WithConfigAdjuster applies fn to every reloaded config before it is used,
// so command-line overrides survive a reload.
func WithConfigAdjuster(fn func(*config.Config)) Option {
	return func(t *Tracker) { t.adjust = fn }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithStatusHandler registers fn to be called after every tick.
func WithStatusHandler(fn func(Status)) Option {
	return func(t *Tracker) { t.onTick = fn }
}

func New(p *profile.Profile, st store.Store, source ActivitySource, opts ...Option) *Tracker {
	t := &Tracker{
		profile: p,
		store:   st,
		source:  source,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tick credits the time since the previous tick to the sample's program.
// Nothing is credited on the first tick, when no program is active, or
// when an AFK-sensitive program is active while the user is away.
func (t *Tracker) Tick(now time.Time, sample Sample) Status {
	cfg := t.profile.Config()

	elapsed := sample.Elapsed
	if elapsed <= 0 && !t.lastTick.IsZero() {
		elapsed = now.Sub(t.lastTick)
	}
	t.lastTick = now

	if sample.IdleKnown {
		t.profile.AFKTime = sample.Idle.Seconds()
	}
	afk := cfg.AFKTimeout > 0 && t.profile.AFKTime >= cfg.AFKTimeout

	status := Status{ActivityID: sample.ActivityID, AFK: afk}
	if sample.ActivityID != "" && elapsed > 0 {
		prog := t.profile.GetProgram(sample.ActivityID)
		if !(prog.AFKSensitive && afk) {
			prog.AddTime(elapsed.Seconds(), now)
			status.Credited = elapsed.Seconds()
		}
	}

	selected := t.profile.SelectedTask()
	status.Selected = selected.Name()
	status.Session = selected.SessionTime()
	if t.onTick != nil {
		t.onTick(status)
	}
	return status
}

// Save writes the profile to the store
func (t *Tracker) Save() error {
	return t.profile.Save(t.store)
}

// Run polls until ctx is cancelled or the source is exhausted, then saves
// one final time.
func (t *Tracker) Run(ctx context.Context) error {
	cfg := t.profile.Config()
	util.LogInfo("Tracker started",
		util.F("store", t.store.Location()),
		util.F("update_interval", cfg.UpdateEvery().String()),
		util.F("autosave_interval", cfg.AutosaveEvery().String()))

	pollTicker := time.NewTicker(cfg.UpdateEvery())
	defer pollTicker.Stop()
	saveTicker := time.NewTicker(cfg.AutosaveEvery())
	defer saveTicker.Stop()

	var reloads <-chan *config.LoadResult
	if t.watcher != nil {
		reloads = t.watcher.Updates()
	}

	t.lastTick = t.now()
	runErr := t.loop(ctx, pollTicker, saveTicker, reloads)

	if err := t.Save(); err != nil {
		util.LogErrorf("Final save failed: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	util.LogInfo("Tracker stopped")
	return runErr
}

func (t *Tracker) loop(ctx context.Context, pollTicker, saveTicker *time.Ticker, reloads <-chan *config.LoadResult) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-pollTicker.C:
			sample, err := t.source.Poll(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					util.LogInfo("Activity input ended")
					return nil
				}
				if ctx.Err() != nil {
					return nil
				}
				util.LogWarnf("Poll failed: %v", err)
				continue
			}
			t.Tick(t.now(), sample)

		case <-saveTicker.C:
			if err := t.Save(); err != nil {
				util.LogErrorf("Autosave failed: %v", err)
			}

		case result := <-reloads:
			t.applyConfig(result, pollTicker, saveTicker)
		}
	}
}

func (t *Tracker) applyConfig(result *config.LoadResult, pollTicker, saveTicker *time.Ticker) {
	for _, w := range result.Warnings {
		util.LogWarn(w)
	}
	old := t.profile.Config()
	cfg := result.Config
	if t.adjust != nil {
		t.adjust(&cfg)
	}
	t.profile.SetConfig(&cfg)

	if cfg.UpdateInterval != old.UpdateInterval {
		pollTicker.Reset(cfg.UpdateEvery())
	}
	if cfg.AutosaveInterval != old.AutosaveInterval {
		saveTicker.Reset(cfg.AutosaveEvery())
	}
	if cfg.Storage != old.Storage {
		util.LogWarnf("Storage settings changed; restart to use %s:%s", cfg.Storage.Backend, cfg.Storage.Path)
	}
	util.LogInfo("Config reloaded", util.F("afk_timeout", cfg.AFKTimeout), util.F("categories", len(cfg.Categories)))
}
