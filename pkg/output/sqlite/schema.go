package sqlite

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 1

const createReadingsSQL = `
CREATE TABLE IF NOT EXISTS readings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	tick      INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	name      TEXT    NOT NULL,
	value     REAL
);
CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);
`

const insertReadingSQL = `INSERT INTO readings (tick, timestamp, name, value) VALUES (?, ?, ?, ?)`

func ensureSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, SchemaVersion)
	}
	if _, err := db.Exec(createReadingsSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}
