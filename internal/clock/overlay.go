/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import "sync"

// State describes which parts of the overlay are simulated.
type State string

const (
	StateReal               State = "real"
	StateTimeOverride       State = "time_override"
	StateTimeAndDayOverride State = "time_and_day_override"
	StateDayOverride        State = "day_override"
)

// Overlay layers simulated time and day over a base clock. A single Overlay
// is shared process wide: an override is visible to every caller until
// Clear is called, it never expires.
type Overlay struct {
	base Clock

	mu   sync.RWMutex
	time string // "" when not simulated
	day  int    // 0 when not simulated
}

// NewOverlay wraps base. A nil base uses the local wall clock.
func NewOverlay(base Clock) *Overlay {
	if base == nil {
		base = RealClock{}
	}
	return &Overlay{base: base}
}

// ActiveTime returns the simulated time if set, otherwise the real "HH:MM".
func (o *Overlay) ActiveTime() string {
	t, _ := o.Active()
	return t
}

// ActiveDay returns the simulated day if set, otherwise the real ISO weekday.
func (o *Overlay) ActiveDay() int {
	_, d := o.Active()
	return d
}

// Active implements Source.
func (o *Overlay) Active() (string, int) {
	now := o.base.Now()

	o.mu.RLock()
	defer o.mu.RUnlock()

	activeTime := FormatTime(now)
	if o.time != "" {
		activeTime = o.time
	}
	activeDay := ISOWeekday(now)
	if o.day != 0 {
		activeDay = o.day
	}
	return activeTime, activeDay
}

// SetTime simulates hhmm and, when day is non-nil, the day as well. A day set
// earlier through SetDay is kept when day is nil. Inputs are validated
// before anything changes. It returns the normalized time.
func (o *Overlay) SetTime(hhmm string, day *int) (string, error) {
	normalized, err := NormalizeTime(hhmm)
	if err != nil {
		return "", err
	}
	if day != nil {
		if err := ValidateDay(*day); err != nil {
			return "", err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.time = normalized
	if day != nil {
		o.day = *day
	}
	return normalized, nil
}

// SetDay simulates the day only.
func (o *Overlay) SetDay(day int) error {
	if err := ValidateDay(day); err != nil {
		return err
	}
	o.mu.Lock()
	o.day = day
	o.mu.Unlock()
	return nil
}

// Clear drops all overrides.
func (o *Overlay) Clear() {
	o.mu.Lock()
	o.time = ""
	o.day = 0
	o.mu.Unlock()
}

// State reports the current override state.
func (o *Overlay) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stateLocked()
}

func (o *Overlay) stateLocked() State {
	switch {
	case o.time != "" && o.day != 0:
		return StateTimeAndDayOverride
	case o.time != "":
		return StateTimeOverride
	case o.day != 0:
		return StateDayOverride
	default:
		return StateReal
	}
}

// Snapshot is a consistent view of real, simulated and active values.
type Snapshot struct {
	State         State
	Simulated     bool
	SimulatedTime string
	SimulatedDay  int
	RealTime      string
	RealDay       int
	ActiveTime    string
	ActiveDay     int
}

// Snapshot reads everything under one lock.
func (o *Overlay) Snapshot() Snapshot {
	now := o.base.Now()

	o.mu.RLock()
	defer o.mu.RUnlock()

	s := Snapshot{
		State:         o.stateLocked(),
		SimulatedTime: o.time,
		SimulatedDay:  o.day,
		RealTime:      FormatTime(now),
		RealDay:       ISOWeekday(now),
	}
	s.Simulated = s.State != StateReal
	s.ActiveTime = s.RealTime
	if o.time != "" {
		s.ActiveTime = o.time
	}
	s.ActiveDay = s.RealDay
	if o.day != 0 {
		s.ActiveDay = o.day
	}
	return s
}
