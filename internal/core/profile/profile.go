package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/constants"
	"github.com/penwyp/go-ontrack/internal/core/model"
	"github.com/penwyp/go-ontrack/internal/core/timekey"
	"github.com/penwyp/go-ontrack/internal/data/store"
	"github.com/penwyp/go-ontrack/internal/util"
)

// Profile owns every tracked program and the user's selected task.
type Profile struct {
	cfg        *config.Config
	programs   map[string]*model.ProgramData
	selectedID string

	// AFKTime is the time spent away from the keyboard this session.
	AFKTime float64

	now func() time.Time
}

// New returns an empty profile bound to cfg.
func New(cfg *config.Config) *Profile {
	return &Profile{
		cfg:      cfg,
		programs: make(map[string]*model.ProgramData),
		now:      time.Now,
	}
}

// Config returns the configuration the profile was built with
func (p *Profile) Config() *config.Config { return p.cfg }

// SetConfig swaps the configuration after a reload. Existing records keep
// their category even if it is no longer configured.
func (p *Profile) SetConfig(cfg *config.Config) { p.cfg = cfg }

// SetClock overrides the clock used for brand-new records.
func (p *Profile) SetClock(now func() time.Time) {
	p.now = now
	for _, prog := range p.programs {
		prog.SetClock(now)
	}
}

// GetProgram returns the record for id, creating it on first use.
// Blank ids and ids matching an autohide rule start hidden.
func (p *Profile) GetProgram(id string) *model.ProgramData {
	if prog, ok := p.programs[id]; ok {
		return prog
	}
	prog := model.NewProgramData(id, p.cfg.DefaultCategory)
	if p.now != nil {
		prog.SetClock(p.now)
	}
	if strings.TrimSpace(id) == "" || p.cfg.ShouldAutohide(id) {
		prog.Visibility = model.VisibilityHidden
	}
	p.programs[id] = prog
	util.LogDebugf("New program %q (visibility %s)", id, prog.Visibility)
	return prog
}

// Lookup returns the record for id without creating it.
func (p *Profile) Lookup(id string) (*model.ProgramData, bool) {
	prog, ok := p.programs[id]
	return prog, ok
}

// Len returns the number of records, hidden ones included
func (p *Profile) Len() int { return len(p.programs) }

// Programs returns the visible records, or every record when includeHidden is set.
func (p *Profile) Programs(includeHidden bool) []*model.ProgramData {
	out := make([]*model.ProgramData, 0, len(p.programs))
	for _, prog := range p.programs {
		if includeHidden || prog.IsVisible() {
			out = append(out, prog)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SortedPrograms orders records for display: pinned first, then by
// descending total time, ties broken by id.
func (p *Profile) SortedPrograms(includeHidden bool) []*model.ProgramData {
	out := p.Programs(includeHidden)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ap, bp := a.Visibility == model.VisibilityPinned, b.Visibility == model.VisibilityPinned
		if ap != bp {
			return ap
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.ID() < b.ID()
	})
	return out
}

func (p *Profile) visibleIn(category string) []*model.ProgramData {
	var out []*model.ProgramData
	for _, prog := range p.programs {
		if !prog.IsVisible() {
			continue
		}
		if category != "" && prog.Category != category {
			continue
		}
		out = append(out, prog)
	}
	return out
}

// CategoryTime sums total time over visible records in category.
// An empty category means every visible record.
func (p *Profile) CategoryTime(category string) float64 {
	total := 0.0
	for _, prog := range p.visibleIn(category) {
		total += prog.Time
	}
	return total
}

// CategorySessionTime is CategoryTime for the current session.
func (p *Profile) CategorySessionTime(category string) float64 {
	total := 0.0
	for _, prog := range p.visibleIn(category) {
		total += prog.SessionTime()
	}
	return total
}

func (p *Profile) TotalTime() float64        { return p.CategoryTime("") }
func (p *Profile) TotalSessionTime() float64 { return p.CategorySessionTime("") }

// FirstBucket returns the earliest bucket key of any visible record.
func (p *Profile) FirstBucket() (string, bool) {
	return bucketBound(p.visibleIn(""), true)
}

// LastBucket returns the latest bucket key of any visible record.
func (p *Profile) LastBucket() (string, bool) {
	return bucketBound(p.visibleIn(""), false)
}

func bucketBound(progs []*model.ProgramData, first bool) (string, bool) {
	best, found := "", false
	for _, prog := range progs {
		var key string
		if first {
			key, _ = prog.FirstBucket()
		} else {
			key, _ = prog.LastBucket()
		}
		if !found || (first && key < best) || (!first && key > best) {
			best, found = key, true
		}
	}
	return best, found
}

// Range returns the span covered by visible history, from the start of the
// first bucket to the end of the last one.
func (p *Profile) Range() (time.Time, time.Time, bool) {
	firstKey, ok := p.FirstBucket()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	lastKey, _ := p.LastBucket()
	first, err := timekey.FromKey(firstKey)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	last, err := timekey.FromKey(lastKey)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return first, last.Add(constants.HourBucket), true
}

// ResetSession zeroes session counters and AFK time.
func (p *Profile) ResetSession() {
	for _, prog := range p.programs {
		prog.ResetSession()
	}
	p.AFKTime = 0
}

// SelectedTask resolves the stored selection. An unknown program id falls
// back to the Total task.
func (p *Profile) SelectedTask() model.Task {
	task, err := p.resolveTask(p.selectedID)
	if err != nil {
		return p.TotalTask()
	}
	return task
}

// Select stores task as the selection
func (p *Profile) Select(task model.Task) {
	p.selectedID = task.ID()
}

// SelectByID validates and stores a selection given as a program id,
// CATEGORY_<name> or Total. The category must be configured.
func (p *Profile) SelectByID(id string) error {
	if name, ok := strings.CutPrefix(id, constants.CategoryTaskPrefix); ok && !p.cfg.IsCategory(name) {
		return fmt.Errorf("%w: %q is not a configured category", errUnknownTask, name)
	}
	task, err := p.resolveTask(id)
	if err != nil {
		return err
	}
	p.Select(task)
	return nil
}

// SelectedID returns the raw stored selection
func (p *Profile) SelectedID() string { return p.selectedID }

var errUnknownTask = errors.New("unknown task")

func (p *Profile) resolveTask(id string) (model.Task, error) {
	switch {
	case id == constants.TotalTaskID:
		return p.TotalTask(), nil
	case strings.HasPrefix(id, constants.CategoryTaskPrefix):
		return p.CategoryTask(strings.TrimPrefix(id, constants.CategoryTaskPrefix)), nil
	}
	if prog, ok := p.programs[id]; ok {
		return prog, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownTask, id)
}

// IsUnknownTask reports whether err came from selecting a task that does not exist.
func IsUnknownTask(err error) bool {
	return errors.Is(err, errUnknownTask)
}

// CategoryTask returns a live view over the visible records of category.
func (p *Profile) CategoryTask(category string) model.Task {
	return &aggregateTask{
		profile:  p,
		category: category,
		id:       constants.CategoryTaskPrefix + category,
		name:     category,
	}
}

// TotalTask returns a live view over every visible record.
func (p *Profile) TotalTask() model.Task {
	return &aggregateTask{
		profile: p,
		id:      constants.TotalTaskID,
		name:    constants.TotalTaskID,
	}
}

// aggregateTask reads through to the profile on every call. An empty
// category selects all visible records.
type aggregateTask struct {
	profile  *Profile
	category string
	id       string
	name     string
}

func (t *aggregateTask) ID() string           { return t.id }
func (t *aggregateTask) Name() string         { return t.name }
func (t *aggregateTask) TotalTime() float64   { return t.profile.CategoryTime(t.category) }
func (t *aggregateTask) SessionTime() float64 { return t.profile.CategorySessionTime(t.category) }

func (t *aggregateTask) TimeframeTime(start, end time.Time) float64 {
	total := 0.0
	for _, prog := range t.profile.visibleIn(t.category) {
		total += prog.TimeframeTime(start, end)
	}
	return total
}

func (t *aggregateTask) FirstBucket() (string, bool) {
	return bucketBound(t.profile.visibleIn(t.category), true)
}

func (t *aggregateTask) LastBucket() (string, bool) {
	return bucketBound(t.profile.visibleIn(t.category), false)
}

// Load reads the profile from st. A missing document yields an empty
// profile. A malformed one is moved aside first, then an empty profile is
// returned. Only an unsupported schema version is an error.
func Load(st store.Store, cfg *config.Config) (*Profile, error) {
	data, err := st.Load()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.LogInfof("No profile at %s, starting fresh", st.Location())
			return New(cfg), nil
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	p, err := Decode(cfg, data)
	if err == nil {
		util.LogInfo("Profile loaded", util.F("location", st.Location()), util.F("programs", p.Len()))
		return p, nil
	}
	if errors.Is(err, ErrUnsupportedVersion) {
		return nil, err
	}

	where, qerr := st.Quarantine()
	if qerr != nil {
		return nil, fmt.Errorf("profile is unreadable (%v) and could not be moved aside: %w", err, qerr)
	}
	util.LogErrorf("Error loading profile: %v; moved it to %s", err, where)
	return New(cfg), nil
}

// Save replaces the stored document with the current state.
func (p *Profile) Save(st store.Store) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	if err := st.Save(data); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	util.LogDebugf("Profile saved to %s (%d bytes)", st.Location(), len(data))
	return nil
}
