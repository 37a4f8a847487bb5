package checkpoint

import (
	"path/filepath"
	"strings"
	"time"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run is one application of a blueprint file to a connection.
type Run struct {
	ID          string
	File        string
	Connection  string
	Schema      string
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Backend persists run history.
// Implementations include SQLite (full history) and a YAML file (last run only).
type Backend interface {
	CreateRun(id, file, connection, schema string) error
	CompleteRun(id, status, errorMsg string) error

	// LastIncompleteRun returns the newest running run for file on
	// connection, or nil.
	LastIncompleteRun(file, connection string) (*Run, error)

	MarkTableComplete(runID, table string) error
	CompletedTables(runID string) (map[string]bool, error)

	// MarkStatements records that the first n statements of table ran.
	MarkStatements(runID, table string, n int) error
	// PartialTables returns, for tables started but not complete, how many
	// statements ran.
	PartialTables(runID string) (map[string]int, error)

	// History (file backend returns at most one run)
	AllRuns() ([]Run, error)
	GetRun(id string) (*Run, error)

	Close() error
}

var (
	_ Backend = (*State)(nil)
	_ Backend = (*FileState)(nil)
)

// Open picks a backend for path: a .yaml or .yml file uses FileState,
// anything else is treated as a SQLite data directory.
func Open(path string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewFileState(path)
	default:
		return New(path)
	}
}
