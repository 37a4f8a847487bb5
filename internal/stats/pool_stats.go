// Package stats summarizes database/sql pool statistics for logging.
package stats

import (
	"database/sql"
	"fmt"
)

// PoolStats contains connection pool statistics for logging.
type PoolStats struct {
	DBType      string // "dm", "postgres", "mssql" or "sqlite"
	MaxConns    int    // Maximum connections allowed, 0 for unlimited
	OpenConns   int    // Established connections, in use or idle
	ActiveConns int    // Currently active/in-use connections
	IdleConns   int    // Currently idle connections
	WaitCount   int64  // Total number of times a connection was waited for
	WaitTimeMs  int64  // Total time spent waiting for connections (milliseconds)
}

// FromDB reads the current statistics of db.
func FromDB(dbType string, db *sql.DB) PoolStats {
	return FromDBStats(dbType, db.Stats())
}

// FromDBStats converts database/sql statistics.
func FromDBStats(dbType string, s sql.DBStats) PoolStats {
	return PoolStats{
		DBType:      dbType,
		MaxConns:    s.MaxOpenConnections,
		OpenConns:   s.OpenConnections,
		ActiveConns: s.InUse,
		IdleConns:   s.Idle,
		WaitCount:   s.WaitCount,
		WaitTimeMs:  s.WaitDuration.Milliseconds(),
	}
}

// String returns a formatted string for logging pool stats.
func (s PoolStats) String() string {
	limit := "unlimited"
	if s.MaxConns > 0 {
		limit = fmt.Sprint(s.MaxConns)
	}
	return fmt.Sprintf("%s: %d/%s active, %d idle, %d waits (%.1fms avg)",
		s.DBType, s.ActiveConns, limit, s.IdleConns,
		s.WaitCount, float64(s.WaitTimeMs)/float64(max(s.WaitCount, 1)))
}

func max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
