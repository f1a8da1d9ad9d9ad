/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
// The slot table itself lives in SlotConfigPath and is reread on every
// evaluation.
type Config struct {
	Environment     string
	HTTPBind        string
	HTTPPort        int
	DBBackend       DatabaseBackend
	DBDSN           string
	DBAutoMigrate   bool
	SlotConfigPath  string
	DispatchTimeout time.Duration
	Timezone        string
	Location        *time.Location
	LogBufferSize   int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// Event mirroring; empty disables it
	NATSURL string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     getEnvAny([]string{"SLOTBELL_ENV", "NODE_ENV"}, "development"),
		HTTPBind:        getEnvAny([]string{"SLOTBELL_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:        getEnvIntAny([]string{"SLOTBELL_HTTP_PORT", "PORT"}, 5000),
		DBBackend:       DatabaseBackend(getEnvAny([]string{"SLOTBELL_DB_BACKEND"}, string(DatabaseMySQL))),
		DBDSN:           getEnvAny([]string{"SLOTBELL_DB_DSN"}, ""),
		DBAutoMigrate:   getEnvBoolAny([]string{"SLOTBELL_DB_AUTO_MIGRATE"}, false),
		SlotConfigPath:  getEnvAny([]string{"SLOTBELL_SLOT_CONFIG"}, "config/slotConfig.json"),
		DispatchTimeout: getEnvDurationAny([]string{"SLOTBELL_DISPATCH_TIMEOUT"}, 5*time.Second),
		Timezone:        getEnvAny([]string{"SLOTBELL_TIMEZONE", "TZ"}, ""),
		LogBufferSize:   getEnvIntAny([]string{"SLOTBELL_LOG_BUFFER_SIZE"}, 2000),

		TracingEnabled:    getEnvBoolAny([]string{"SLOTBELL_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"SLOTBELL_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"SLOTBELL_TRACING_SAMPLE_RATE"}, 1.0),

		LeaderElectionEnabled: getEnvBoolAny([]string{"SLOTBELL_LEADER_ELECTION_ENABLED"}, false),
		RedisAddr:             getEnvAny([]string{"SLOTBELL_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:         getEnvAny([]string{"SLOTBELL_REDIS_PASSWORD"}, ""),
		RedisDB:               getEnvIntAny([]string{"SLOTBELL_REDIS_DB"}, 0),
		InstanceID:            getEnvAny([]string{"SLOTBELL_INSTANCE_ID"}, ""),

		NATSURL: getEnvAny([]string{"SLOTBELL_NATS_URL"}, ""),
	}

	if cfg.DBDSN == "" {
		dsn, ok := mysqlDSNFromParts()
		if !ok {
			return nil, fmt.Errorf("SLOTBELL_DB_DSN (or DB_HOST/DB_USER/DB_NAME) must be provided")
		}
		cfg.DBDSN = dsn
	}

	switch cfg.DBBackend {
	case DatabaseMySQL, DatabasePostgres, DatabaseSQLite:
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DispatchTimeout <= 0 {
		return nil, fmt.Errorf("SLOTBELL_DISPATCH_TIMEOUT must be positive, got %s", cfg.DispatchTimeout)
	}

	cfg.Location = time.Local
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()
	return cfg, nil
}

// mysqlDSNFromParts builds a DSN from the DB_* variables the timetable
// editor already uses, so both programs can share one .env file.
func mysqlDSNFromParts() (string, bool) {
	host := getEnv("DB_HOST", "")
	user := getEnv("DB_USER", "")
	name := getEnv("DB_NAME", "")
	if host == "" || user == "" || name == "" {
		return "", false
	}
	port := getEnvInt("DB_PORT", 3306)
	pass := getEnv("DB_PASSWORD", "")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", user, pass, host, port, name), true
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"MASTER_ROUTER_ADDRESS": "set master_router_address in the slot config file",
		"SLOT_CONFIG":           "use SLOTBELL_SLOT_CONFIG",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go durations ("5s") or bare milliseconds ("5000").
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}
