package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTimeProvider(t *testing.T) {
	t.Cleanup(func() { _ = InitializeTimeProvider("Local") })

	tests := []struct {
		name     string
		timezone string
		wantErr  bool
		wantLoc  string
	}{
		{name: "local timezone", timezone: "Local", wantLoc: time.Local.String()},
		{name: "UTC timezone", timezone: "UTC", wantLoc: "UTC"},
		{name: "named timezone", timezone: "America/New_York", wantLoc: "America/New_York"},
		{name: "empty defaults to Local", timezone: "", wantLoc: time.Local.String()},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitializeTimeProvider(tt.timezone)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid timezone")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLoc, GetTimeProvider().Location().String())
		})
	}
}

func TestTimeProviderParseInLocation(t *testing.T) {
	t.Cleanup(func() { _ = InitializeTimeProvider("Local") })
	require.NoError(t, InitializeTimeProvider("Asia/Tokyo"))

	tp := GetTimeProvider()
	parsed, err := tp.ParseInLocation("2006-01-02T15:04:05", "2024-01-01T09:00:00")
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", parsed.Location().String())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), parsed.UTC())
	assert.Equal(t, 9, tp.In(parsed.UTC()).Hour())
}
