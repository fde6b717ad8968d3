package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		spec     string
		expected time.Time
		wantErr  bool
	}{
		{name: "duration", spec: "90m", expected: now.Add(-90 * time.Minute)},
		{name: "days", spec: "7d", expected: time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)},
		{name: "date", spec: "2025-10-29", expected: time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", spec: "2025-10-29T13:00:00Z", expected: time.Date(2025, 10, 29, 13, 0, 0, 0, time.UTC)},
		{name: "empty", spec: "", wantErr: true},
		{name: "garbage", spec: "yesterday", wantErr: true},
		{name: "negative days", spec: "-3d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	since, until, err := ParseRange("30d", "1d", now)
	require.NoError(t, err)
	assert.True(t, since.Before(until))

	since, until, err = ParseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, since.IsZero())
	assert.True(t, until.IsZero())

	_, _, err = ParseRange("1d", "30d", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since must be before --until")

	_, _, err = ParseRange("soon", "", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")
}
