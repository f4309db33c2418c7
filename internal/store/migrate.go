// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package store implements the Subscription Store and Task Store against
// a modernc.org/sqlite handle, with no ORM layer.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rss (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT UNIQUE NOT NULL,
	title      TEXT,
	rss_type   TEXT NOT NULL DEFAULT 'mikan',
	enabled    INTEGER NOT NULL DEFAULT 1,
	season     INTEGER,
	filters    TEXT,
	description TEXT,
	category   TEXT
);

CREATE TABLE IF NOT EXISTS download_task (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	rss_id        INTEGER,
	torrent_hash  TEXT UNIQUE NOT NULL,
	torrent_url   TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	status        TEXT NOT NULL,
	show_name     TEXT NOT NULL,
	episode_name  TEXT,
	display_name  TEXT,
	season        INTEGER NOT NULL,
	episode       INTEGER NOT NULL,
	category      TEXT,
	renamed       INTEGER NOT NULL DEFAULT 0,
	download_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_download_task_url ON download_task(torrent_url);
`

// Open opens (creating if absent) the sqlite database at dsn and applies
// Migrate. Callers should open it once and share the *sql.DB.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid pool contention on a single file.
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the rss and download_task tables if they do not already
// exist. Idempotent; runs once at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}
