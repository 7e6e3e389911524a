package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateAt(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name        string
		input       string
		expected    time.Time
		expectError bool
	}{
		{name: "empty", input: "  ", expected: time.Time{}},
		{name: "today", input: "Today", expected: now},
		{name: "yesterday", input: "yesterday", expected: now.AddDate(0, 0, -1)},
		{name: "tomorrow", input: "tomorrow", expected: now.AddDate(0, 0, 1)},
		{name: "days ahead", input: "+3d", expected: now.AddDate(0, 0, 3)},
		{name: "weeks back", input: "-2W", expected: now.AddDate(0, 0, -14)},
		{name: "iso", input: "2026-01-31", expected: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{name: "european", input: "31.01.2026", expected: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{name: "slashed", input: "31/01/2026", expected: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{name: "with time", input: "2026-01-31  08:15", expected: time.Date(2026, 1, 31, 8, 15, 0, 0, time.UTC)},
		{name: "rfc3339", input: "2026-01-31T08:15:00Z", expected: time.Date(2026, 1, 31, 8, 15, 0, 0, time.UTC)},
		{name: "month name", input: "Jan 5, 2026", expected: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{name: "garbage", input: "someday", expectError: true},
		{name: "bad offset unit", input: "+3m", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateAt(tt.input, now)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}
}

func TestFormatDate(t *testing.T) {
	date := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-03", FormatDate(date, ""))
	assert.Equal(t, "03.02.2026", FormatDate(date, DateLayoutEuropean))
	assert.Equal(t, "", FormatDate(time.Time{}, DateLayoutISO))
}

func TestCompareDates(t *testing.T) {
	morning := time.Date(2026, 2, 3, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 2, 3, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, CompareDates(morning, evening))
	assert.Equal(t, -1, CompareDates(morning, evening.AddDate(0, 0, 1)))
	assert.Equal(t, 1, CompareDates(morning.AddDate(1, 0, 0), evening))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsOverdue(time.Time{}, now))
	assert.False(t, IsOverdue(now.Add(-time.Hour), now), "same day is not overdue")
	assert.True(t, IsOverdue(now.AddDate(0, 0, -1), now))
	assert.False(t, IsOverdue(now.AddDate(0, 0, 1), now))
}
