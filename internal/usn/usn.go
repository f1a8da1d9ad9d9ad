/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package usn expands inclusive roll-number ranges such as
// 1RV21CS001..1RV21CS005 into the explicit list of student identifiers.
package usn

import (
	"strconv"
	"strings"
)

// MaxRange caps a single expansion. Class ranges are a few hundred at most;
// anything larger is a data-entry error and would otherwise flood the
// downstream receiver.
const MaxRange = 10000

// Parts is a roll number split at its trailing digit run.
type Parts struct {
	Prefix string
	Number uint64
	Width  int
}

// Parse splits usn into the prefix before the final maximal digit run and
// that run's value and width. ok is false when there is no trailing digit.
func Parse(usn string) (Parts, bool) {
	i := len(usn)
	for i > 0 && usn[i-1] >= '0' && usn[i-1] <= '9' {
		i--
	}
	digits := usn[i:]
	if digits == "" {
		return Parts{}, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return Parts{}, false
	}
	return Parts{Prefix: usn[:i], Number: n, Width: len(digits)}, true
}

// Format renders n with p's prefix, zero padded to p's width.
func (p Parts) Format(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if pad := p.Width - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return p.Prefix + s
}

// Expand returns every roll number from start to end inclusive, using
// start's prefix and suffix width. It returns nil when either bound has no
// trailing digits, when end is below start, or when the range exceeds
// MaxRange. Prefix equality is not checked.
func Expand(start, end string) []string {
	from, ok := Parse(start)
	if !ok {
		return nil
	}
	to, ok := Parse(end)
	if !ok {
		return nil
	}
	if to.Number < from.Number || to.Number-from.Number >= MaxRange {
		return nil
	}

	out := make([]string, 0, to.Number-from.Number+1)
	for n := from.Number; n <= to.Number; n++ {
		out = append(out, from.Format(n))
	}
	return out
}

// Count is the display head count of a range: end suffix minus start suffix
// plus one. Unparsable or reversed ranges count as zero.
func Count(start, end string) int {
	from, ok := Parse(start)
	if !ok {
		return 0
	}
	to, ok := Parse(end)
	if !ok || to.Number < from.Number {
		return 0
	}
	return int(to.Number-from.Number) + 1
}
