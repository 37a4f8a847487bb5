package checkpoint

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	_ "github.com/johndauphine/go-dm/internal/driver/sqlite"
	"github.com/johndauphine/go-dm/internal/gormdm"
	"github.com/johndauphine/go-dm/internal/naming"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02 15:04:05.000000"

type runRecord struct {
	ID           string  `gorm:"primaryKey;size:36"`
	File         string  `gorm:"not null;index"`
	Connection   string  `gorm:"not null"`
	SchemaName   string  `gorm:"not null;default:''"`
	Status       string  `gorm:"size:16;not null;index"`
	ErrorMessage string  `gorm:"not null;default:''"`
	StartedAt    string  `gorm:"size:32;not null"`
	CompletedAt  *string `gorm:"size:32"`
}

func (runRecord) TableName() string { return "runs" }

type tableRecord struct {
	RunID      string `gorm:"primaryKey;size:36"`
	Name       string `gorm:"primaryKey;column:table_name"`
	Statements int    `gorm:"not null;default:0"`
	Complete   bool   `gorm:"not null;default:false"`
	RecordedAt string `gorm:"size:32;not null"`
}

func (tableRecord) TableName() string { return "run_tables" }

// State keeps run history in SQLite through gorm.
type State struct {
	sqlDB *sql.DB
	db    *gorm.DB
}

// New opens (and creates) dmctl.db in dataDir.
func New(dataDir string) (*State, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "dmctl.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db, err := gorm.Open(gormdm.New(gormdm.Config{DriverName: "sqlite", Conn: sqlDB}), &gorm.Config{
		NamingStrategy:         gormdm.NewNamingStrategy("", naming.DefaultMaxLength),
		Logger:                 gormdm.NewLogger(),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &State{sqlDB: sqlDB, db: db}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// migrate creates missing tables. Existing tables are left alone.
func (s *State) migrate() error {
	m := s.db.Migrator()
	for _, model := range []any{&runRecord{}, &tableRecord{}} {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.sqlDB.Close()
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func (r runRecord) run() *Run {
	run := &Run{
		ID:         r.ID,
		File:       r.File,
		Connection: r.Connection,
		Schema:     r.SchemaName,
		Status:     r.Status,
		Error:      r.ErrorMessage,
	}
	run.StartedAt, _ = time.Parse(timeLayout, r.StartedAt)
	if r.CompletedAt != nil {
		t, _ := time.Parse(timeLayout, *r.CompletedAt)
		run.CompletedAt = &t
	}
	return run
}

// CreateRun records a new running run.
func (s *State) CreateRun(id, file, connection, schema string) error {
	return s.db.Create(&runRecord{
		ID:         id,
		File:       file,
		Connection: connection,
		SchemaName: schema,
		Status:     StatusRunning,
		StartedAt:  now(),
	}).Error
}

// CompleteRun sets the final status of a run.
func (s *State) CompleteRun(id, status, errorMsg string) error {
	completed := now()
	res := s.db.Model(&runRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status":        status,
		"error_message": errorMsg,
		"completed_at":  completed,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

func (s *State) newestFirst() *gorm.DB {
	return s.db.Order("started_at DESC").Order("rowid DESC")
}

// LastIncompleteRun returns the newest running run for file on connection.
func (s *State) LastIncompleteRun(file, connection string) (*Run, error) {
	var recs []runRecord
	err := s.newestFirst().
		Where(&runRecord{File: file, Connection: connection, Status: StatusRunning}).
		Limit(1).
		Find(&recs).Error
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0].run(), nil
}

// GetRun returns a run by ID, or nil.
func (s *State) GetRun(id string) (*Run, error) {
	var recs []runRecord
	if err := s.db.Where("id = ?", id).Limit(1).Find(&recs).Error; err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0].run(), nil
}

// AllRuns returns every run, newest first.
func (s *State) AllRuns() ([]Run, error) {
	var recs []runRecord
	if err := s.newestFirst().Find(&recs).Error; err != nil {
		return nil, err
	}
	runs := make([]Run, len(recs))
	for i, r := range recs {
		runs[i] = *r.run()
	}
	return runs, nil
}

// upsertTable inserts rec or updates columns of the existing row.
func (s *State) upsertTable(rec *tableRecord, columns ...string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "table_name"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "recorded_at")),
	}).Create(rec).Error
}

// MarkTableComplete records that table was created in runID.
func (s *State) MarkTableComplete(runID, table string) error {
	return s.upsertTable(&tableRecord{RunID: runID, Name: table, Complete: true, RecordedAt: now()}, "complete")
}

// MarkStatements records that the first n statements of table ran.
func (s *State) MarkStatements(runID, table string, n int) error {
	return s.upsertTable(&tableRecord{RunID: runID, Name: table, Statements: n, RecordedAt: now()}, "statements")
}

// PartialTables returns statement counts for tables of runID that are not
// complete.
func (s *State) PartialTables(runID string) (map[string]int, error) {
	var recs []tableRecord
	if err := s.db.Where("run_id = ? AND complete = ?", runID, false).Find(&recs).Error; err != nil {
		return nil, err
	}
	partial := make(map[string]int, len(recs))
	for _, r := range recs {
		partial[r.Name] = r.Statements
	}
	return partial, nil
}

// CompletedTables returns the tables created in runID.
func (s *State) CompletedTables(runID string) (map[string]bool, error) {
	var names []string
	if err := s.db.Model(&tableRecord{}).Where("run_id = ? AND complete = ?", runID, true).Pluck("table_name", &names).Error; err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(names))
	for _, n := range names {
		done[n] = true
	}
	return done, nil
}
