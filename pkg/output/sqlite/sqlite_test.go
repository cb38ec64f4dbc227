package sqlite

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	tick  int64
	ts    int64
	name  string
	value sql.NullFloat64
}

func readRows(t *testing.T, path string) []row {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT tick, timestamp, name, value FROM readings ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.tick, &r.ts, &r.name, &r.value))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestOutputDataWritesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "readings.db")
	now := func() time.Time { return time.Unix(1700000000, 0) }

	s, err := New(path, now)
	require.NoError(t, err)
	s.OutputData([]string{"tempC", "humidity"}, []float64{21.5, math.NaN()})
	s.OutputData([]string{"tempC", "humidity"}, []float64{22, 41})
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, row{1, 1700000000, "tempC", sql.NullFloat64{Float64: 21.5, Valid: true}}, rows[0])
	assert.Equal(t, "humidity", rows[1].name)
	assert.False(t, rows[1].value.Valid)
	assert.Equal(t, int64(2), rows[3].tick)
}

func TestTickResumesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")

	s, err := New(path, nil)
	require.NoError(t, err)
	s.OutputData([]string{"a"}, []float64{1})
	require.NoError(t, s.Close())

	s, err = New(path, nil)
	require.NoError(t, err)
	s.OutputData([]string{"a"}, []float64{2})
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1].tick)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}
