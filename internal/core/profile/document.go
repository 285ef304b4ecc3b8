package profile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-ontrack/internal/core/config"
	"github.com/penwyp/go-ontrack/internal/core/model"
	"github.com/penwyp/go-ontrack/internal/util"
)

// CurrentSchemaVersion is the version written by Encode
const CurrentSchemaVersion = 1

// ErrUnsupportedVersion is returned for documents written by a newer release
var ErrUnsupportedVersion = errors.New("unsupported profile schema version")

type document struct {
	Version         int                        `json:"version"`
	Programs        map[string]programDocument `json:"programs"`
	SelectedProgram string                     `json:"selected_program"`
}

type programDocument struct {
	Time         float64            `json:"time"`
	TimeSeries   map[string]float64 `json:"time_series"`
	Visibility   string             `json:"visibility,omitempty"`
	ProgramType  string             `json:"program_type,omitempty"`
	DisplayName  string             `json:"display_name,omitempty"`
	AFKSensitive *bool              `json:"afk_sensitive,omitempty"`
}

var (
	knownDocumentFields = map[string]bool{"version": true, "programs": true, "selected_program": true}
	knownProgramFields  = map[string]bool{
		"time": true, "time_series": true, "visibility": true,
		"program_type": true, "display_name": true, "afk_sensitive": true,
	}
)

// migrator upgrades a raw document by exactly one schema version
type migrator func(raw map[string]interface{}) (map[string]interface{}, error)

var migrations = map[int]migrator{
	0: migrateV0ToV1,
}

// migrateV0ToV1 converts the original flat {id: seconds} layout.
func migrateV0ToV1(raw map[string]interface{}) (map[string]interface{}, error) {
	programs := make(map[string]interface{}, len(raw))
	for id, v := range raw {
		if id == "version" {
			continue
		}
		seconds, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("v0 entry %q: expected seconds, got %T", id, v)
		}
		programs[id] = map[string]interface{}{
			"time":        seconds,
			"time_series": map[string]interface{}{},
		}
	}
	return map[string]interface{}{
		"version":  float64(1),
		"programs": programs,
	}, nil
}

func documentVersion(raw map[string]interface{}) (int, error) {
	v, ok := raw["version"]
	if !ok {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) || f < 0 {
		return 0, fmt.Errorf("invalid version field %v", v)
	}
	return int(f), nil
}

// upgrade walks the migration table until the document is current.
func upgrade(raw map[string]interface{}) (map[string]interface{}, error) {
	for {
		version, err := documentVersion(raw)
		if err != nil {
			return nil, err
		}
		if version == CurrentSchemaVersion {
			return raw, nil
		}
		migrate, ok := migrations[version]
		if !ok {
			return nil, fmt.Errorf("%w: %d (this build reads up to %d)", ErrUnsupportedVersion, version, CurrentSchemaVersion)
		}
		util.LogInfof("Converting profile from schema version %d", version)
		raw, err = migrate(raw)
		if err != nil {
			return nil, fmt.Errorf("migrating from version %d: %w", version, err)
		}
	}
}

// Decode parses a persisted profile, migrating older schema versions.
func Decode(cfg *config.Config, data []byte) (*Profile, error) {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	raw, err := upgrade(raw)
	if err != nil {
		return nil, err
	}
	warnUnknownFields(raw)

	// Round-trip through the typed document now that the shape is known.
	buf, err := sonic.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding profile: %w", err)
	}
	var doc document
	if err := sonic.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	p := New(cfg)
	for id, pd := range doc.Programs {
		p.programs[id] = programFromDocument(cfg, id, pd)
	}
	p.selectedID = doc.SelectedProgram
	return p, nil
}

func warnUnknownFields(raw map[string]interface{}) {
	for _, key := range sortedKeys(raw) {
		if !knownDocumentFields[key] {
			util.LogWarnf("Dropping unknown profile field %q", key)
		}
	}
	programs, _ := raw["programs"].(map[string]interface{})
	for _, id := range sortedKeys(programs) {
		fields, _ := programs[id].(map[string]interface{})
		for _, key := range sortedKeys(fields) {
			if !knownProgramFields[key] {
				util.LogWarnf("Dropping unknown field %q of program %q", key, id)
			}
		}
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func programFromDocument(cfg *config.Config, id string, pd programDocument) *model.ProgramData {
	p := model.NewProgramData(id, cfg.NormalizeCategory(pd.ProgramType))
	if pd.ProgramType == "" {
		p.Category = cfg.DefaultCategory
	} else if p.Category != pd.ProgramType {
		util.LogDebugf("Program %q has unknown category %q, using %q", id, pd.ProgramType, p.Category)
	}
	p.Time = pd.Time
	if pd.TimeSeries != nil {
		p.TimeSeries = pd.TimeSeries
	}
	p.Visibility = model.ParseVisibility(pd.Visibility)
	if pd.DisplayName != "" {
		p.DisplayName = pd.DisplayName
	}
	if pd.AFKSensitive != nil {
		p.AFKSensitive = *pd.AFKSensitive
	}
	return p
}

func programToDocument(cfg *config.Config, p *model.ProgramData) programDocument {
	series := p.TimeSeries
	if series == nil {
		series = map[string]float64{}
	}
	pd := programDocument{
		Time:       p.Time,
		TimeSeries: series,
	}
	if p.Visibility != model.VisibilityDefault {
		pd.Visibility = string(p.Visibility)
	}
	if p.Category != cfg.DefaultCategory {
		pd.ProgramType = p.Category
	}
	if p.DisplayName != model.DefaultDisplayName(p.ID()) {
		pd.DisplayName = p.DisplayName
	}
	if !p.AFKSensitive {
		f := false
		pd.AFKSensitive = &f
	}
	return pd
}

// Encode serializes the whole profile at the current schema version.
func (p *Profile) Encode() ([]byte, error) {
	doc := document{
		Version:         CurrentSchemaVersion,
		Programs:        make(map[string]programDocument, len(p.programs)),
		SelectedProgram: p.selectedID,
	}
	for id, prog := range p.programs {
		doc.Programs[id] = programToDocument(p.cfg, prog)
	}
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	return data, nil
}
