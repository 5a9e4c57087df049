package store

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// sqliteSchema mirrors migrations/000001_carrom.up.sql for local sqlite files,
// which are not managed by golang-migrate.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS carrom_matches (
	token        TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	status       TEXT NOT NULL,
	seat1_name   TEXT NOT NULL DEFAULT '',
	seat2_name   TEXT NOT NULL DEFAULT '',
	winner       INTEGER NOT NULL DEFAULT 0,
	win_reason   TEXT NOT NULL DEFAULT '',
	score1       INTEGER NOT NULL DEFAULT 0,
	score2       INTEGER NOT NULL DEFAULT 0,
	shot_count   INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS carrom_shots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	match_token TEXT NOT NULL REFERENCES carrom_matches(token) ON DELETE CASCADE,
	shot_number INTEGER NOT NULL,
	player      INTEGER NOT NULL,
	striker_x   REAL NOT NULL,
	angle       REAL NOT NULL,
	power       REAL NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	UNIQUE (match_token, shot_number)
);

CREATE TABLE IF NOT EXISTS carrom_queue (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	queue_token  TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	match_token  TEXT,
	seat         INTEGER,
	created_at   TIMESTAMP NOT NULL,
	expires_at   TIMESTAMP NOT NULL,
	matched_at   TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_carrom_queue_status ON carrom_queue (status, created_at);
`

// EnsureSQLiteSchema creates the tables in a sqlite database if they are missing.
func EnsureSQLiteSchema(db *sqlx.DB) error {
	if db.DriverName() != "sqlite3" {
		return fmt.Errorf("EnsureSQLiteSchema called on %s", db.DriverName())
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	log.Println("[DB] SQLite schema ready")
	return nil
}
