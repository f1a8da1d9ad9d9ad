/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/slotbell/internal/models"
)

// Migrate creates or updates the tables the trigger pipeline reads and writes.
// The timetable tables are normally owned by the data-entry application;
// migrating them here is harmless when they already exist.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.SubjectTimeMap{},
		&models.ClassStudentMap{},
		&models.DispatchLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
