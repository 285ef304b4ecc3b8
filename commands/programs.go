package commands

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/model"
	"github.com/penwyp/go-ontrack/internal/core/profile"
	"github.com/penwyp/go-ontrack/internal/data/store"
	"github.com/penwyp/go-ontrack/internal/presentation/formatter"
	"github.com/penwyp/go-ontrack/internal/presentation/interaction"
	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/spf13/cobra"
)

var (
	programsAll     bool
	programsSort    string
	programsReverse bool
	programsOutput  string

	setVisibility   string
	setCategory     string
	setName         string
	setAFKSensitive bool
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List and edit tracked programs",
}

var programsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked programs",
	Args:  cobra.NoArgs,
	RunE:  runProgramsList,
}

var programsSetCmd = &cobra.Command{
	Use:   "set ID",
	Short: "Change a program's visibility, category, name or AFK handling",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgramsSet,
}

var programsSelectCmd = &cobra.Command{
	Use:   "select ID",
	Short: "Select the task shown by the tracker (a program id, CATEGORY_<name> or Total)",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgramsSelect,
}

func init() {
	rootCmd.AddCommand(programsCmd)
	programsCmd.AddCommand(programsListCmd, programsSetCmd, programsSelectCmd)

	programsListCmd.Flags().BoolVarP(&programsAll, "all", "a", false,
		"Include hidden programs")
	programsListCmd.Flags().StringVar(&programsSort, "sort", "",
		"Sort by total, session, name or category (default: pinned first, then by total)")
	programsListCmd.Flags().BoolVarP(&programsReverse, "reverse", "r", false,
		"Reverse the --sort order")
	programsListCmd.Flags().StringVarP(&programsOutput, "output", "o", "table",
		"Output format (table, json, csv)")

	programsSetCmd.Flags().StringVar(&setVisibility, "visibility", "",
		"default, pinned or hidden")
	programsSetCmd.Flags().StringVar(&setCategory, "category", "",
		"One of the configured categories")
	programsSetCmd.Flags().StringVar(&setName, "name", "",
		"Display name")
	programsSetCmd.Flags().BoolVar(&setAFKSensitive, "afk-sensitive", true,
		"Stop counting time while the user is away")
}

func runProgramsList(cmd *cobra.Command, args []string) error {
	f, err := formatter.New(programsOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	p, st, err := openProfile()
	if err != nil {
		return err
	}
	defer st.Close()

	rows := formatter.ProgramRows(p, programsAll)
	if programsSort != "" {
		field, err := interaction.ParseSortField(programsSort)
		if err != nil {
			return err
		}
		interaction.NewProgramSorter(field, programsReverse).Sort(rows)
	}
	return f.FormatPrograms(rows)
}

func runProgramsSet(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("visibility") && !flags.Changed("category") &&
		!flags.Changed("name") && !flags.Changed("afk-sensitive") {
		return fmt.Errorf("nothing to change: pass --visibility, --category, --name or --afk-sensitive")
	}

	return editProfile(func(p *profile.Profile, cfg *config.Config) error {
		prog, ok := p.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown program %q", args[0])
		}

		if flags.Changed("visibility") {
			v := model.Visibility(strings.ToLower(strings.TrimSpace(setVisibility)))
			if !v.IsValid() {
				return fmt.Errorf("invalid visibility %q: want default, pinned or hidden", setVisibility)
			}
			prog.Visibility = v
		}
		if flags.Changed("category") {
			if !cfg.IsCategory(setCategory) {
				return fmt.Errorf("unknown category %q (configured: %s)", setCategory, strings.Join(cfg.Categories, ", "))
			}
			prog.Category = setCategory
		}
		if flags.Changed("name") {
			name := strings.TrimSpace(setName)
			if name == "" {
				name = model.DefaultDisplayName(prog.ID())
			}
			prog.DisplayName = name
		}
		if flags.Changed("afk-sensitive") {
			prog.AFKSensitive = setAFKSensitive
		}

		util.LogInfo("Program updated",
			util.F("id", prog.ID()),
			util.F("visibility", string(prog.Visibility)),
			util.F("category", prog.Category))
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", prog.ID())
		return nil
	})
}

func runProgramsSelect(cmd *cobra.Command, args []string) error {
	return editProfile(func(p *profile.Profile, cfg *config.Config) error {
		if err := p.SelectByID(args[0]); err != nil {
			return err
		}
		task := p.SelectedTask()
		fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (%s total)\n", task.Name(), util.FormatTimespan(task.TotalTime()))
		return nil
	})
}

// editProfile loads the profile under the store lock, applies fn and saves.
func editProfile(fn func(p *profile.Profile, cfg *config.Config) error) error {
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
		return fmt.Errorf("cannot edit the profile while a tracker is running: %w", err)
	}

	p, err := profile.Load(st, cfg)
	if err != nil {
		return err
	}
	if err := fn(p, cfg); err != nil {
		return err
	}
	return p.Save(st)
}
