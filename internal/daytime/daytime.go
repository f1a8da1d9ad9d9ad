/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package daytime encodes and decodes the compact schedule keys used by the
// timetable ("day:slot") and by attendance logs ("DDMMYY:slot").
package daytime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bounds of the weekly timetable grid.
const (
	MinDay  = 1
	MaxDay  = 6
	MinSlot = 1
	MaxSlot = 6
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports malformed time, day, slot or key input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError. Other packages use it so the whole
// pipeline shares one error taxonomy.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// KeyKind tags which encoding family a key belongs to.
type KeyKind string

const (
	KindDayTime  KeyKind = "day_time"
	KindDateSlot KeyKind = "date_slot"
)

// Key is implemented by DayTimeKey and DateSlotKey. The wire form stays a
// plain string; the kind travels with the value so a stored key is always
// decoded by its own decoder.
type Key interface {
	Kind() KeyKind
	String() string
}

// DayTimeKey identifies a recurring weekly slot.
type DayTimeKey struct {
	Day  int
	Slot int
}

func (k DayTimeKey) Kind() KeyKind { return KindDayTime }

// String returns the "day:slot" form. It does not validate; use
// EncodeDayTime when the values come from outside.
func (k DayTimeKey) String() string { return fmt.Sprintf("%d:%d", k.Day, k.Slot) }

// Validate checks both components are inside the grid.
func (k DayTimeKey) Validate() error {
	if err := checkDay(k.Day); err != nil {
		return err
	}
	return checkSlot(k.Slot)
}

// DateSlotKey identifies one calendar occurrence of a slot. Date is DD/MM/YY.
type DateSlotKey struct {
	Date string
	Slot int
}

func (k DateSlotKey) Kind() KeyKind { return KindDateSlot }

// String returns the "DDMMYY:slot" form without validating.
func (k DateSlotKey) String() string {
	return strings.ReplaceAll(k.Date, "/", "") + ":" + strconv.Itoa(k.Slot)
}

// NewDayTimeKey validates and builds a DayTimeKey.
func NewDayTimeKey(day, slot int) (DayTimeKey, error) {
	k := DayTimeKey{Day: day, Slot: slot}
	if err := k.Validate(); err != nil {
		return DayTimeKey{}, err
	}
	return k, nil
}

// EncodeDayTime returns "day:slot" for day and slot in [1,6].
func EncodeDayTime(day, slot int) (string, error) {
	k, err := NewDayTimeKey(day, slot)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}

// DecodeDayTime parses a "day:slot" key.
func DecodeDayTime(key string) (DayTimeKey, error) {
	left, right, err := splitKey("day_time key", key)
	if err != nil {
		return DayTimeKey{}, err
	}

	day, err := parseDigits("day", left)
	if err != nil {
		return DayTimeKey{}, err
	}
	slot, err := parseDigits("slot", right)
	if err != nil {
		return DayTimeKey{}, err
	}
	return NewDayTimeKey(day, slot)
}

// EncodeDateSlot turns ("18/01/26", 3) into "180126:3".
func EncodeDateSlot(date string, slot int) (string, error) {
	if err := checkSlot(slot); err != nil {
		return "", err
	}
	if err := checkDate(date); err != nil {
		return "", err
	}
	return DateSlotKey{Date: date, Slot: slot}.String(), nil
}

// DecodeDateSlot parses "DDMMYY:slot" and restores the slashes in the date.
func DecodeDateSlot(key string) (DateSlotKey, error) {
	left, right, err := splitKey("date_slot key", key)
	if err != nil {
		return DateSlotKey{}, err
	}
	if len(left) != 6 || !allDigits(left) {
		return DateSlotKey{}, Invalid("date", left, "date portion must be 6 digits (DDMMYY)")
	}
	slot, err := parseDigits("slot", right)
	if err != nil {
		return DateSlotKey{}, err
	}
	if err := checkSlot(slot); err != nil {
		return DateSlotKey{}, err
	}
	return DateSlotKey{
		Date: left[0:2] + "/" + left[2:4] + "/" + left[4:6],
		Slot: slot,
	}, nil
}

// DateSlotFor builds the occurrence key for t's calendar date.
func DateSlotFor(t time.Time, slot int) (DateSlotKey, error) {
	if err := checkSlot(slot); err != nil {
		return DateSlotKey{}, err
	}
	return DateSlotKey{Date: t.Format("02/01/06"), Slot: slot}, nil
}

// ParseKey decodes raw with the decoder for kind only.
func ParseKey(kind KeyKind, raw string) (Key, error) {
	switch kind {
	case KindDayTime:
		return DecodeDayTime(raw)
	case KindDateSlot:
		return DecodeDateSlot(raw)
	default:
		return nil, Invalid("key kind", string(kind), "unknown key kind")
	}
}

func splitKey(field, key string) (string, string, error) {
	if key == "" {
		return "", "", Invalid(field, key, "must be a non-empty string")
	}
	parts := strings.Split(key, ":")
	if len(parts) != 2 {
		return "", "", Invalid(field, key, "must contain exactly one ':' separator")
	}
	return parts[0], parts[1], nil
}

func parseDigits(field, s string) (int, error) {
	if s == "" || !allDigits(s) {
		return 0, Invalid(field, s, "must be an integer")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, Invalid(field, s, "must be an integer")
	}
	return n, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func checkDay(day int) error {
	if day < MinDay || day > MaxDay {
		return Invalid("day", strconv.Itoa(day), "must be between 1 (Monday) and 6 (Saturday)")
	}
	return nil
}

func checkSlot(slot int) error {
	if slot < MinSlot || slot > MaxSlot {
		return Invalid("slot", strconv.Itoa(slot), "must be between 1 and 6")
	}
	return nil
}

func checkDate(date string) error {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return Invalid("date", date, "must be in DD/MM/YY format")
	}
	for _, p := range parts {
		if len(p) != 2 || !allDigits(p) {
			return Invalid("date", date, "date parts must be 2 digits each (DD/MM/YY)")
		}
	}
	return nil
}
