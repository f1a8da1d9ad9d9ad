/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package state

import (
	"sync"
	"time"
)

// Record summarises one finished evaluation.
type Record struct {
	EvaluationID string    `json:"evaluationId"`
	Source       string    `json:"source"`
	Triggered    bool      `json:"triggered"`
	Slot         int       `json:"slot,omitempty"`
	Time         string    `json:"time"`
	Day          int       `json:"day"`
	DayTime      string    `json:"encodedDayTime,omitempty"`
	Tasks        int       `json:"tasks"`
	MasterStatus string    `json:"masterStatus,omitempty"`
	Message      string    `json:"message,omitempty"`
	At           time.Time `json:"at"`
}

// Store keeps the most recent evaluations in memory for the status view.
type Store struct {
	mu     sync.RWMutex
	recent []Record
	limit  int
}

// NewStore creates a store that retains at most limit records.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 128
	}
	return &Store{recent: make([]Record, 0, limit), limit: limit}
}

// Add registers an evaluation, dropping the oldest past the limit.
func (s *Store) Add(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == s.limit {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:len(s.recent)-1]
	}
	s.recent = append(s.recent, rec)
}

// Recent returns a snapshot, newest first.
func (s *Store) Recent() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.recent))
	for i, rec := range s.recent {
		out[len(out)-1-i] = rec
	}
	return out
}

// Last returns the newest record.
func (s *Store) Last() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.recent) == 0 {
		return Record{}, false
	}
	return s.recent[len(s.recent)-1], true
}

// Prune removes entries older than cutoff.
func (s *Store) Prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.recent[:0]
	for _, rec := range s.recent {
		if rec.At.After(cutoff) {
			filtered = append(filtered, rec)
		}
	}
	s.recent = filtered
}
