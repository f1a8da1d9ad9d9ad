/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule answers "which classes meet at this day and slot, where,
// and with which roll range".
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/slotbell/internal/daytime"
	"github.com/friendsincode/slotbell/internal/telemetry"
)

// ErrLookup wraps store failures.
var ErrLookup = errors.New("schedule lookup failed")

// Entry is one class scheduled at a DayTimeKey. Room and the range bounds
// are empty when the class has no class_student_map row or the column is
// null.
type Entry struct {
	DayTime    string `json:"dayTime"`
	Class      string `json:"class"`
	Room       string `json:"room"`
	RangeStart string `json:"USNStart"`
	RangeEnd   string `json:"USNEnd"`
}

// Complete reports whether the entry carries everything a task needs.
func (e Entry) Complete() bool {
	return e.Room != "" && e.RangeStart != "" && e.RangeEnd != ""
}

// Store reads schedule entries for a key.
type Store interface {
	EntriesFor(ctx context.Context, key daytime.DayTimeKey) ([]Entry, error)
}

// GormStore reads the timetable tables maintained by the attendance admin.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

type entryRow struct {
	DayTime    string  `gorm:"column:day_time"`
	Class      string  `gorm:"column:class"`
	Room       *string `gorm:"column:room"`
	RangeStart *string `gorm:"column:range_start"`
	RangeEnd   *string `gorm:"column:range_end"`
}

// EntriesFor returns every subject_time_map row at key joined with its
// class's room and roll range. Classes without a class_student_map row are
// still returned, with empty room and range.
func (s *GormStore) EntriesFor(ctx context.Context, key daytime.DayTimeKey) ([]Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var rows []entryRow
	err := entriesQuery(s.db.WithContext(ctx), key).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLookup, key, err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			DayTime:    r.DayTime,
			Class:      r.Class,
			Room:       deref(r.Room),
			RangeStart: deref(r.RangeStart),
			RangeEnd:   deref(r.RangeEnd),
		})
	}
	return entries, nil
}

// entriesQuery builds the lookup. The timetable columns are mixed case, so
// every identifier goes through the dialect's quoting; Postgres would fold
// them to lower case otherwise.
func entriesQuery(tx *gorm.DB, key daytime.DayTimeKey) *gorm.DB {
	col := func(table, name string) string {
		return tx.Statement.Quote(clause.Column{Table: table, Name: name})
	}
	return tx.
		Table("subject_time_map AS stm").
		Select(fmt.Sprintf("%s AS day_time, %s AS class, %s AS room, %s AS range_start, %s AS range_end",
			col("stm", "DTime"), col("stm", "class"), col("csm", "defaultRoom"), col("csm", "USNStart"), col("csm", "USNEnd"))).
		Joins(fmt.Sprintf("LEFT JOIN class_student_map csm ON %s = %s", col("stm", "class"), col("csm", "class"))).
		Where(col("stm", "DTime")+" = ?", key.String()).
		Order(col("stm", "id") + " ASC")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Query wraps a Store and degrades failures to an empty result.
type Query struct {
	store  Store
	logger zerolog.Logger
}

// NewQuery creates a lookup over store.
func NewQuery(store Store, logger zerolog.Logger) *Query {
	return &Query{
		store:  store,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Lookup returns the entries at key. A failing store is logged, counted and
// reported as no entries so the evaluation can finish.
func (q *Query) Lookup(ctx context.Context, key daytime.DayTimeKey) []Entry {
	ctx, span := telemetry.StartSpan(ctx, "schedule", "lookup", attribute.String("day_time", key.String()))
	defer span.End()

	entries, err := q.store.EntriesFor(ctx, key)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ScheduleLookupFailuresTotal.Inc()
		q.logger.Error().Err(err).Str("day_time", key.String()).Msg("schedule lookup failed, treating as empty")
		return []Entry{}
	}

	telemetry.ScheduleEntriesFound.Observe(float64(len(entries)))
	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries
}

// StaticStore serves fixed entries keyed by DayTimeKey string.
type StaticStore struct {
	Entries map[string][]Entry
	Err     error
}

func (s StaticStore) EntriesFor(_ context.Context, key daytime.DayTimeKey) ([]Entry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Entries[key.String()], nil
}
