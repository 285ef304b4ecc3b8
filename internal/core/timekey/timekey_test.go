package timekey

import (
	"sort"
	"testing"
	"time"

	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTimezone(t *testing.T, tz string) {
	t.Helper()
	require.NoError(t, util.InitializeTimeProvider(tz))
	t.Cleanup(func() { _ = util.InitializeTimeProvider("Local") })
}

func TestToKey(t *testing.T) {
	useTimezone(t, "UTC")
	ts := time.Date(2024, 1, 5, 15, 42, 7, 0, time.UTC)

	assert.Equal(t, "2024-01-05T15:00:00", ToKey(ts, Hour))
	assert.Equal(t, "2024-01-05", ToKey(ts, Day))
}

func TestToKeyUsesConfiguredZone(t *testing.T) {
	useTimezone(t, "Asia/Tokyo")
	ts := time.Date(2024, 1, 5, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-06T05:00:00", ToKey(ts, Hour))
	assert.Equal(t, "2024-01-06", ToKey(ts, Day))
}

func TestRoundTrip(t *testing.T) {
	for _, tz := range []string{"UTC", "America/New_York"} {
		t.Run(tz, func(t *testing.T) {
			useTimezone(t, tz)
			loc := util.GetTimeProvider().Location()
			start := time.Date(2024, 3, 8, 21, 13, 0, 0, loc)

			// Three days in 37 minute steps crosses hour and day boundaries
			// and, for New York, the DST switch on March 10th.
			for ts := start; ts.Before(start.Add(72 * time.Hour)); ts = ts.Add(37 * time.Minute) {
				for _, g := range []Granularity{Hour, Day} {
					got, err := FromKey(ToKey(ts, g))
					require.NoError(t, err)
					assert.True(t, Floor(ts, g).Equal(got), "%s %s: got %s want %s", ts, g, got, Floor(ts, g))
				}
			}
		})
	}
}

func TestKeysSortChronologically(t *testing.T) {
	useTimezone(t, "UTC")
	base := time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC)

	var keys []string
	for i := 0; i < 30; i++ {
		keys = append(keys, ToKey(base.Add(time.Duration(i)*time.Hour), Hour))
	}
	assert.True(t, sort.StringsAreSorted(keys))
	assert.Equal(t, "2023-12-31T22:00:00", keys[0])
	assert.Equal(t, "2024-01-01T00:00:00", keys[2])
}

func TestFromKeyInvalid(t *testing.T) {
	useTimezone(t, "UTC")
	for _, key := range []string{"", "yesterday", "2024-13-01", "2024-01-01T25:00:00"} {
		_, err := FromKey(key)
		assert.Error(t, err, key)
	}
}

func TestToLabel(t *testing.T) {
	useTimezone(t, "UTC")
	ts := time.Date(2024, 1, 5, 15, 42, 0, 0, time.UTC)

	assert.Equal(t, "Jan 05 03PM", ToLabel(ts, Hour))
	assert.Equal(t, "Jan 05", ToLabel(ts, Day))
}

func TestForStep(t *testing.T) {
	assert.Equal(t, Hour, ForStep(time.Hour))
	assert.Equal(t, Hour, ForStep(6*time.Hour))
	assert.Equal(t, Day, ForStep(24*time.Hour))
	assert.Equal(t, Day, ForStep(7*24*time.Hour))
}
