// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package database opens the embedded SQLite store and applies migrations.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinovest/sqlx"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

const defaultDSN = "./data/secureflow.db"

// dsnDefaults are connection parameters appended to every DSN unless the
// caller already set them. Foreign keys must stay on: cascade deletes on
// incidents, comments, answers, and role assignments depend on it.
var dsnDefaults = [...][2]string{
	{"_txlock", "immediate"},
	{"_busy_timeout", "5000"},
	{"_foreign_keys", "on"},
}

// startupPragmas tune SQLite for a single-node web workload.
var startupPragmas = [...]string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA mmap_size = 134217728",
	"PRAGMA journal_size_limit = 27103364",
	"PRAGMA cache_size = 2000",
}

// Open connects to the SQLite database at dsn, applies tuning pragmas,
// and brings the schema up to date. An empty dsn uses the default
// on-disk location.
func Open(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	if onDisk(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", withDefaults(dsn))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	for _, pragma := range startupPragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := RunMigrations(conn.DB); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func onDisk(dsn string) bool {
	return !strings.HasPrefix(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory")
}

func withDefaults(dsn string) string {
	for _, kv := range dsnDefaults {
		if strings.Contains(dsn, kv[0]) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + kv[0] + "=" + kv[1]
	}
	return dsn
}
