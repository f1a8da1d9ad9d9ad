/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package daytime

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDayTimeRoundTrip(t *testing.T) {
	for day := MinDay; day <= MaxDay; day++ {
		for slot := MinSlot; slot <= MaxSlot; slot++ {
			key, err := EncodeDayTime(day, slot)
			if err != nil {
				t.Fatalf("EncodeDayTime(%d, %d) error: %v", day, slot, err)
			}
			if want := fmt.Sprintf("%d:%d", day, slot); key != want {
				t.Fatalf("EncodeDayTime(%d, %d) = %q, want %q", day, slot, key, want)
			}
			got, err := DecodeDayTime(key)
			if err != nil {
				t.Fatalf("DecodeDayTime(%q) error: %v", key, err)
			}
			if got.Day != day || got.Slot != slot {
				t.Fatalf("DecodeDayTime(%q) = %+v, want day=%d slot=%d", key, got, day, slot)
			}
		}
	}
}

func TestEncodeDayTimeBoundaries(t *testing.T) {
	tests := []struct {
		day, slot int
	}{
		{0, 1},
		{7, 1},
		{1, 0},
		{1, 7},
		{-1, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.day, tt.slot), func(t *testing.T) {
			_, err := EncodeDayTime(tt.day, tt.slot)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("EncodeDayTime(%d, %d) err = %v, want validation error", tt.day, tt.slot, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestDecodeDayTimeRejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"1",
		"1:2:3",
		"a:1",
		"1:b",
		"1:",
		":1",
		"+1:2",
		" 1:2",
		"7:1",
		"1:7",
		"0:0",
		"180126:3",
	}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			if _, err := DecodeDayTime(key); !errors.Is(err, ErrValidation) {
				t.Fatalf("DecodeDayTime(%q) err = %v, want validation error", key, err)
			}
		})
	}
}

func TestDateSlotRoundTrip(t *testing.T) {
	dates := []string{"18/01/26", "25/12/25", "01/01/24", "31/10/99", "00/00/00"}

	for _, date := range dates {
		for slot := MinSlot; slot <= MaxSlot; slot++ {
			key, err := EncodeDateSlot(date, slot)
			if err != nil {
				t.Fatalf("EncodeDateSlot(%q, %d) error: %v", date, slot, err)
			}
			got, err := DecodeDateSlot(key)
			if err != nil {
				t.Fatalf("DecodeDateSlot(%q) error: %v", key, err)
			}
			if got.Date != date || got.Slot != slot {
				t.Fatalf("DecodeDateSlot(%q) = %+v, want %s/%d", key, got, date, slot)
			}
		}
	}
}

func TestEncodeDateSlot(t *testing.T) {
	tests := []struct {
		date    string
		slot    int
		want    string
		wantErr bool
	}{
		{date: "18/01/26", slot: 3, want: "180126:3"},
		{date: "25/12/25", slot: 6, want: "251225:6"},
		{date: "1/01/26", slot: 3, wantErr: true},
		{date: "18-01-26", slot: 3, wantErr: true},
		{date: "18/01/2026", slot: 3, wantErr: true},
		{date: "aa/01/26", slot: 3, wantErr: true},
		{date: "18/01/26", slot: 0, wantErr: true},
		{date: "18/01/26", slot: 7, wantErr: true},
		{date: "", slot: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.date, tt.slot), func(t *testing.T) {
			got, err := EncodeDateSlot(tt.date, tt.slot)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("EncodeDateSlot() err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeDateSlot() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeDateSlot() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeDateSlotRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "18012:3", "1801266:3", "18a126:3", "180126:0", "180126:9", "180126", "1:3", "180126:3:1"} {
		if _, err := DecodeDateSlot(key); !errors.Is(err, ErrValidation) {
			t.Errorf("DecodeDateSlot(%q) err = %v, want validation error", key, err)
		}
	}
}

func TestParseKeyUsesDeclaredKind(t *testing.T) {
	k, err := ParseKey(KindDayTime, "3:2")
	if err != nil {
		t.Fatalf("ParseKey day_time: %v", err)
	}
	if k.Kind() != KindDayTime || k.String() != "3:2" {
		t.Fatalf("unexpected key %v (%s)", k, k.Kind())
	}

	k, err = ParseKey(KindDateSlot, "180126:3")
	if err != nil {
		t.Fatalf("ParseKey date_slot: %v", err)
	}
	if k.Kind() != KindDateSlot || k.(DateSlotKey).Date != "18/01/26" {
		t.Fatalf("unexpected key %v", k)
	}

	if _, err := ParseKey(KindDateSlot, "3:2"); err == nil {
		t.Fatal("expected day_time string to be rejected by date_slot decoder")
	}
	if _, err := ParseKey(KindDayTime, "180126:3"); err == nil {
		t.Fatal("expected date_slot string to be rejected by day_time decoder")
	}
	if _, err := ParseKey("bogus", "1:1"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestDateSlotFor(t *testing.T) {
	ts := time.Date(2026, time.January, 18, 9, 0, 0, 0, time.UTC)
	k, err := DateSlotFor(ts, 3)
	if err != nil {
		t.Fatalf("DateSlotFor: %v", err)
	}
	if k.String() != "180126:3" {
		t.Fatalf("DateSlotFor = %q, want 180126:3", k.String())
	}
	if _, err := DateSlotFor(ts, 8); err == nil {
		t.Fatal("expected invalid slot to fail")
	}
}

func TestDayNames(t *testing.T) {
	for day, want := range map[int]string{1: "Monday", 6: "Saturday"} {
		got, err := DayName(day)
		if err != nil || got != want {
			t.Errorf("DayName(%d) = %q, %v; want %q", day, got, err, want)
		}
		n, err := DayNumber(want)
		if err != nil || n != day {
			t.Errorf("DayNumber(%q) = %d, %v; want %d", want, n, err, day)
		}
	}

	for _, day := range []int{0, 7, 42} {
		if _, err := DayName(day); !errors.Is(err, ErrValidation) {
			t.Errorf("DayName(%d) err = %v, want validation error", day, err)
		}
	}
	if _, err := DayNumber("Sunday"); err == nil {
		t.Error("DayNumber(Sunday) should fail")
	}
	if n, _ := DayNumber("wednesday"); n != 3 {
		t.Errorf("DayNumber(wednesday) = %d, want 3", n)
	}

	if name, _ := SlotName(4); name != "Slot 4" {
		t.Errorf("SlotName(4) = %q", name)
	}
	if _, err := SlotName(0); err == nil {
		t.Error("SlotName(0) should fail")
	}
	if opts := DayOptions(); len(opts) != 6 || opts["1"] != "Monday" {
		t.Errorf("DayOptions() = %v", opts)
	}
}
