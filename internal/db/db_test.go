/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"github.com/friendsincode/slotbell/internal/config"
	"github.com/friendsincode/slotbell/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		DBBackend:   config.DatabaseSQLite,
		DBDSN:       "file::memory:?cache=shared",
	}

	database, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer Close(database)

	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := Ping(context.Background(), database); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	room := "R101"
	if err := database.Create(&models.ClassStudentMap{Class: "CS5A", USNStart: "1RV21CS001", USNEnd: "1RV21CS003", DefaultRoom: &room}).Error; err != nil {
		t.Fatalf("create class: %v", err)
	}
	var got models.ClassStudentMap
	if err := database.First(&got, "class = ?", "CS5A").Error; err != nil {
		t.Fatalf("load class: %v", err)
	}
	if got.DefaultRoom == nil || *got.DefaultRoom != "R101" {
		t.Fatalf("defaultRoom = %v", got.DefaultRoom)
	}

	UpdateConnectionMetrics(database)
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("oracle", "", logger.Silent); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}

func TestConnectDoesNotDialUnreachableStore(t *testing.T) {
	tests := []struct {
		name    string
		backend config.DatabaseBackend
		dsn     string
	}{
		{name: "mysql", backend: config.DatabaseMySQL, dsn: "u:p@tcp(127.0.0.1:1)/attendance"},
		{name: "postgres", backend: config.DatabasePostgres, dsn: "host=127.0.0.1 port=1 user=u password=p dbname=attendance sslmode=disable connect_timeout=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, err := Connect(&config.Config{Environment: "test", DBBackend: tt.backend, DBDSN: tt.dsn})
			if err != nil {
				t.Fatalf("Connect should not need a reachable store: %v", err)
			}
			defer Close(database)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := Ping(ctx, database); err == nil {
				t.Fatal("expected ping against a refused port to fail")
			}
		})
	}
}
