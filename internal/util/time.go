package util

import (
	"fmt"
	"sync"
	"time"
)

// TimeProvider holds the timezone in which bucket keys and labels are
// computed. Changing it changes which wall-clock hour a key names, so it is
// set once at startup.
type TimeProvider struct {
	location *time.Location
	mu       sync.RWMutex
}

var (
	globalTimeProvider *TimeProvider
	tpMu               sync.Mutex
)

// InitializeTimeProvider installs the global provider for timezone
func InitializeTimeProvider(timezone string) error {
	provider := &TimeProvider{}
	if err := provider.SetTimezone(timezone); err != nil {
		return err
	}

	tpMu.Lock()
	globalTimeProvider = provider
	tpMu.Unlock()
	return nil
}

// GetTimeProvider returns the global provider, defaulting to Local
func GetTimeProvider() *TimeProvider {
	tpMu.Lock()
	defer tpMu.Unlock()
	if globalTimeProvider == nil {
		globalTimeProvider = &TimeProvider{location: time.Local}
	}
	return globalTimeProvider
}

// SetTimezone updates the timezone; "" and "Local" select the system zone
func (tp *TimeProvider) SetTimezone(timezone string) error {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Europe/London", timezone, err)
		}
		loc = l
	}

	tp.mu.Lock()
	tp.location = loc
	tp.mu.Unlock()
	return nil
}

// Location returns the configured location
func (tp *TimeProvider) Location() *time.Location {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.location
}

// Now returns the current time in the configured timezone
func (tp *TimeProvider) Now() time.Time {
	return time.Now().In(tp.Location())
}

// In converts a time to the configured timezone
func (tp *TimeProvider) In(t time.Time) time.Time {
	return t.In(tp.Location())
}

// ParseInLocation parses value with layout in the configured timezone
func (tp *TimeProvider) ParseInLocation(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, tp.Location())
}
