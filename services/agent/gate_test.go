package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestGateHourWindow(t *testing.T) {
	cfg := TimesConfig{StartHour: 9, FinishHour: 17}

	testCases := []struct {
		hour    int
		allowed bool
	}{
		{0, false},
		{8, false},
		{9, true},
		{12, true},
		{16, true},
		{17, false},
		{23, false},
	}

	for _, test := range testCases {
		// 2026-08-31 is a Monday
		clock := fixedClock{now: time.Date(2026, 8, 31, test.hour, 30, 0, 0, time.UTC)}
		gate := NewGate(cfg, clock)

		reason, allowed := gate.Check()
		require.Equal(t, test.allowed, allowed, "hour %d", test.hour)
		if !allowed {
			require.Equal(t, SkipOutsideHours, reason, "hour %d", test.hour)
		}
	}
}

func TestGateDaysOff(t *testing.T) {
	cfg := TimesConfig{StartHour: 0, FinishHour: 24, DaysOff: []int{6, 7}}

	// Sunday
	gate := NewGate(cfg, fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)})
	reason, allowed := gate.Check()
	require.False(t, allowed)
	require.Equal(t, SkipDayOff, reason)

	// Saturday
	gate = NewGate(cfg, fixedClock{now: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)})
	_, allowed = gate.Check()
	require.False(t, allowed)

	// Monday
	gate = NewGate(cfg, fixedClock{now: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)})
	_, allowed = gate.Check()
	require.True(t, allowed)
}
