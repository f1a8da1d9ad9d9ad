/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/slotbell/internal/telemetry"
)

const startTimeKey = "slotbell:start_time"

// RegisterCallbacks times queries and inserts, the only operations the
// trigger pipeline performs.
func RegisterCallbacks(db *gorm.DB) error {
	query := db.Callback().Query()
	if err := query.Before("gorm:query").Register("telemetry:before_query", beforeCallback); err != nil {
		return fmt.Errorf("register query callback: %w", err)
	}
	if err := query.After("gorm:query").Register("telemetry:after_query", afterCallback("query")); err != nil {
		return fmt.Errorf("register query callback: %w", err)
	}

	create := db.Callback().Create()
	if err := create.Before("gorm:create").Register("telemetry:before_create", beforeCallback); err != nil {
		return fmt.Errorf("register create callback: %w", err)
	}
	if err := create.After("gorm:create").Register("telemetry:after_create", afterCallback("create")); err != nil {
		return fmt.Errorf("register create callback: %w", err)
	}
	return nil
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.StoreQueryDuration.WithLabelValues(operation, table).Observe(time.Since(started).Seconds())

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.StoreErrorsTotal.WithLabelValues(operation).Inc()
		}
	}
}

// UpdateConnectionMetrics samples the pool size.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	telemetry.StoreConnectionsOpen.Set(float64(sqlDB.Stats().OpenConnections))
}
