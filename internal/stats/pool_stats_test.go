package stats

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestFromDBStats(t *testing.T) {
	s := FromDBStats("dm", sql.DBStats{
		MaxOpenConnections: 4,
		OpenConnections:    3,
		InUse:              2,
		Idle:               1,
		WaitCount:          2,
		WaitDuration:       30 * time.Millisecond,
	})
	assert.Equal(t, "dm: 2/4 active, 1 idle, 2 waits (15.0ms avg)", s.String())
}

func TestStringUnlimitedWithoutWaits(t *testing.T) {
	s := PoolStats{DBType: "sqlite"}
	assert.Equal(t, "sqlite: 0/unlimited active, 0 idle, 0 waits (0.0ms avg)", s.String())
}

func TestFromDB(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(2)
	require.NoError(t, db.Ping())

	s := FromDB("sqlite", db)
	assert.Equal(t, 2, s.MaxConns)
	assert.Equal(t, 1, s.OpenConns)
	assert.Equal(t, 1, s.IdleConns)
}
