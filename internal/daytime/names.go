/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package daytime

import (
	"fmt"
	"strconv"
	"strings"
)

var dayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
}

// DayName maps 1..6 to Monday..Saturday. Anything else, Sunday included,
// is a ValidationError so display and codec paths share one policy.
func DayName(day int) (string, error) {
	if err := checkDay(day); err != nil {
		return "", err
	}
	return dayNames[day], nil
}

// DayNumber is the inverse of DayName. Matching ignores case.
func DayNumber(name string) (int, error) {
	for n, candidate := range dayNames {
		if strings.EqualFold(candidate, strings.TrimSpace(name)) {
			return n, nil
		}
	}
	return 0, Invalid("day name", name, "must be Monday through Saturday")
}

// SlotName returns "Slot N".
func SlotName(slot int) (string, error) {
	if err := checkSlot(slot); err != nil {
		return "", err
	}
	return fmt.Sprintf("Slot %d", slot), nil
}

// DayOptions returns the operating days keyed by their string number, the
// shape shown to operators alongside the simulation status.
func DayOptions() map[string]string {
	out := make(map[string]string, len(dayNames))
	for n, name := range dayNames {
		out[strconv.Itoa(n)] = name
	}
	return out
}
