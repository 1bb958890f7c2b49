package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeOffset(t *testing.T) {
	assert.Equal(t, 16, ComputeOffset(2013, 1997))
	assert.Equal(t, 0, ComputeOffset(1996, 1996))
	assert.Equal(t, -3, ComputeOffset(1994, 1997))
}

func TestComputeOffset_Idempotent(t *testing.T) {
	first := ComputeOffset(2013, 1996)
	second := ComputeOffset(2013, 1996)
	assert.Equal(t, first, second)
}

func TestShiftDate(t *testing.T) {
	tests := []struct {
		name   string
		in     time.Time
		offset int
		want   time.Time
	}{
		{"forward", date(1997, time.June, 1), 16, date(2013, time.June, 1)},
		{"backward", date(2013, time.August, 31), -16, date(1997, time.August, 31)},
		{"zero", date(1997, time.January, 15), 0, date(1997, time.January, 15)},
		{"leap to leap", date(1996, time.February, 29), 4, date(2000, time.February, 29)},
		{"leap to non-leap clamps", date(1996, time.February, 29), 1, date(1997, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShiftDate(tt.in, tt.offset))
		})
	}
}

func TestShiftDate_RoundTrip(t *testing.T) {
	// Shifting forward then back is the identity everywhere except across
	// the Feb-29 clamp.
	for _, d := range []time.Time{
		date(1996, time.January, 1),
		date(1997, time.June, 15),
		date(1998, time.December, 31),
	} {
		for _, offset := range []int{1, 4, 16, -7} {
			assert.Equal(t, d, ShiftDate(ShiftDate(d, offset), -offset), "d=%v offset=%d", d, offset)
		}
	}
}

func TestResolveSeason(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"summer", date(1997, time.June, 1), date(1997, time.August, 31)},
		{"Spring", date(1997, time.March, 1), date(1997, time.May, 31)},
		{"autumn", date(1997, time.September, 1), date(1997, time.November, 30)},
		{"fall", date(1997, time.September, 1), date(1997, time.November, 30)},
		{"winter", date(1997, time.December, 1), date(1998, time.February, 28)},
		{"Q1", date(1997, time.January, 1), date(1997, time.March, 31)},
		{"q4", date(1997, time.October, 1), date(1997, time.December, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := ResolveSeason(tt.name, 1997)
			require.True(t, ok)
			assert.Equal(t, tt.start, r.Start)
			assert.Equal(t, tt.end, r.End)
		})
	}
}

func TestResolveSeason_WinterLeap(t *testing.T) {
	r, ok := ResolveSeason("winter", 1999)
	require.True(t, ok)
	assert.Equal(t, date(2000, time.February, 29), r.End)
}

func TestResolveSeason_Unknown(t *testing.T) {
	_, ok := ResolveSeason("monsoon", 1997)
	assert.False(t, ok)
}

func TestShiftRange_SummerScenario(t *testing.T) {
	r, ok := ResolveSeason("summer", 1997)
	require.True(t, ok)

	shifted := ShiftRange(r, ComputeOffset(2013, 1997))
	assert.Equal(t, date(2013, time.June, 1), shifted.Start)
	assert.Equal(t, date(2013, time.August, 31), shifted.End)
}
