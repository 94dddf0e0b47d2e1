package agent

import (
	"time"
)

// Clock is the supervisor's notion of time, swapped out in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	location *time.Location
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.location)
}

// NewSystemClock resolves the configured timezone, defaulting to UTC.
func NewSystemClock(timezone string) (Clock, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return systemClock{location: location}, nil
}

type SkipReason string

const (
	SkipOutsideHours SkipReason = "outside_allowed_hours"
	SkipDayOff       SkipReason = "day_off"
)

// Gate decides whether a run may start right now.
type Gate struct {
	startHour  int
	finishHour int
	daysOff    map[int]bool
	clock      Clock
}

func NewGate(cfg TimesConfig, clock Clock) Gate {
	daysOff := map[int]bool{}
	for _, d := range cfg.DaysOff {
		daysOff[d] = true
	}
	return Gate{
		startHour:  cfg.StartHour,
		finishHour: cfg.FinishHour,
		daysOff:    daysOff,
		clock:      clock,
	}
}

// Check allows a run iff start_hour <= hour < finish_hour and today is
// not a configured day off. Weekdays are numbered 1 (Monday) through
// 7 (Sunday).
func (g Gate) Check() (SkipReason, bool) {
	now := g.clock.Now()

	h := now.Hour()
	if h < g.startHour || h >= g.finishHour {
		return SkipOutsideHours, false
	}

	d := int(now.Weekday())
	if d == 0 {
		d = 7
	}
	if g.daysOff[d] {
		return SkipDayOff, false
	}

	return "", true
}
