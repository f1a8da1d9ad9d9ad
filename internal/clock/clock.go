/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/friendsincode/slotbell/internal/daytime"
)

// Clock yields the current instant.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in Location (time.Local when nil).
type RealClock struct {
	Location *time.Location
}

// Now implements Clock.
func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Func adapts a function to Clock.
type Func func() time.Time

// Now implements Clock.
func (f Func) Now() time.Time { return f() }

// Source is what the trigger pipeline consumes: the active time of day as
// "HH:MM" and the active ISO weekday (1=Monday .. 7=Sunday).
type Source interface {
	ActiveTime() string
	ActiveDay() int
	// Active returns both values read under one lock.
	Active() (string, int)
}

var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// NormalizeTime validates a 24-hour "H:MM" or "HH:MM" string and returns it
// zero padded.
func NormalizeTime(s string) (string, error) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return "", daytime.Invalid("time", s, "use HH:MM (24-hour format)")
	}
	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", hour, m[2]), nil
}

// FormatTime renders t as "HH:MM".
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// ISOWeekday maps Go's Sunday=0 weekday to 7, leaving Monday..Saturday as 1..6.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ValidateDay accepts 1..7.
func ValidateDay(day int) error {
	if day < 1 || day > 7 {
		return daytime.Invalid("day", strconv.Itoa(day), "must be between 1 (Monday) and 7 (Sunday)")
	}
	return nil
}

// InvalidDayName is shown for day numbers outside 1..7.
const InvalidDayName = "Invalid Day"

// WeekdayName names an ISO weekday, Sunday included. It returns
// InvalidDayName outside 1..7.
func WeekdayName(day int) string {
	if ValidateDay(day) != nil {
		return InvalidDayName
	}
	return time.Weekday(day % 7).String()
}
