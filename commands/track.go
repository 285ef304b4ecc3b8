package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penwyp/go-ontrack/internal/application/tracker"
	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/data/store"
	"github.com/penwyp/go-ontrack/internal/presentation/display"
	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/spf13/cobra"
)

var (
	trackCommand     string
	trackPollTimeout time.Duration
	trackQuiet       bool
	trackNoWatch     bool
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record time spent in the active program",
	Long: `Polls an activity source every update_interval seconds and credits the
elapsed time to the program in focus. The profile is saved every
autosave_interval seconds and once more on exit.

Activity input is one line per sample: the program name or path, optionally
followed by a tab and the seconds since the last user input. By default lines
are read from stdin; with --command the command is run on every poll instead.`,
	Args: cobra.NoArgs,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVar(&trackCommand, "command", "",
		"Shell command printing the active program on each poll")
	trackCmd.Flags().DurationVar(&trackPollTimeout, "poll-timeout", 2*time.Second,
		"Kill the --command probe after this long")
	trackCmd.Flags().BoolVarP(&trackQuiet, "quiet", "q", false,
		"Do not draw the status line")
	trackCmd.Flags().BoolVar(&trackNoWatch, "no-watch", false,
		"Do not reload the config file when it changes")
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer st.Close()
	if err := st.Lock(); err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("%w: is another tracker running on %s?", err, st.Location())
		}
		return err
	}

	p, err := profile.Load(st, cfg)
	if err != nil {
		return err
	}

	var source tracker.ActivitySource
	if trackCommand != "" {
		source = tracker.NewCommandSource(trackCommand, trackPollTimeout)
	} else {
		source = tracker.NewLineSource(cmd.InOrStdin())
	}

	opts := []tracker.Option{tracker.WithConfigAdjuster(func(c *config.Config) {
		c.Storage = cfg.Storage
		if timezone != "" {
			c.Timezone = timezone
		}
	})}

	if !trackNoWatch {
		watcher, err := config.NewWatcher(resolvedConfigPath())
		if err != nil {
			util.LogWarnf("Config reload disabled: %v", err)
		} else {
			defer watcher.Close()
			opts = append(opts, tracker.WithConfigWatcher(watcher))
		}
	}

	if !trackQuiet {
		td := display.NewTerminalDisplay(cmd.ErrOrStderr(), cfg)
		defer td.Close()
		opts = append(opts, tracker.WithStatusHandler(func(s tracker.Status) {
			td.SetConfig(p.Config())
			td.Update(s)
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tracker.New(p, st, source, opts...).Run(ctx)
}
