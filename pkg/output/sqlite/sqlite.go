// Package sqlite stores readings as timestamped rows in a SQLite database,
// one row per reading, grouped by tick.
package sqlite

import (
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

type SQLiteOutput struct {
	db   *sql.DB
	now  func() time.Time
	tick int64
}

func New(path string, now func() time.Time) (*SQLiteOutput, error) {
	if path == "" {
		return nil, errors.Newf(errors.ErrInitStorage, "sqlite path is empty")
	}
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errors.Wrapf(errors.ErrInitStorage, err, "create directory")
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInitStorage, err, "open database")
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrInitStorage, err)
	}

	var last sql.NullInt64
	if err := db.QueryRow("SELECT MAX(tick) FROM readings").Scan(&last); err != nil {
		db.Close()
		return nil, errors.Wrapf(errors.ErrInitStorage, err, "read last tick")
	}

	logger.Info().
		Str("path", path).
		Int("schema_version", SchemaVersion).
		Int64("last_tick", last.Int64).
		Msg("SQLite storage initialized")

	return &SQLiteOutput{db: db, now: now, tick: last.Int64}, nil
}

// OutputData writes every reading of the tick in one transaction. NaN
// readings are stored as NULL.
func (s *SQLiteOutput) OutputData(names []string, values []float64) {
	s.tick++
	ts := s.now().Unix()

	tx, err := s.db.Begin()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to begin transaction")
		return
	}
	stmt, err := tx.Prepare(insertReadingSQL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return
	}
	defer stmt.Close()

	for i, v := range values {
		var value any = v
		if math.IsNaN(v) {
			value = nil
		}
		if _, err := stmt.Exec(s.tick, ts, names[i], value); err != nil {
			logger.Error().Err(err).Str("name", names[i]).Msg("Failed to insert reading")
			if err := tx.Rollback(); err != nil {
				logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Error().Err(err).Msg("Failed to commit readings")
	}
}

func (s *SQLiteOutput) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Warn().Err(err).Msg("Failed to checkpoint WAL")
	}
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrClose, err)
	}
	return nil
}
