package checkpoint

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileState implements Backend with a single YAML file holding the last
// run. It suits CI jobs where a SQLite file is impractical.
type FileState struct {
	path  string
	mu    sync.RWMutex
	state *fileStateData
}

type fileStateData struct {
	RunID       string         `yaml:"run_id"`
	File        string         `yaml:"file"`
	Connection  string         `yaml:"connection"`
	Schema      string         `yaml:"schema,omitempty"`
	Status      string         `yaml:"status"`
	Error       string         `yaml:"error,omitempty"`
	StartedAt   time.Time      `yaml:"started_at"`
	CompletedAt *time.Time     `yaml:"completed_at,omitempty"`
	Tables      []string       `yaml:"tables"`
	Partial     map[string]int `yaml:"partial,omitempty"`
}

// NewFileState loads path if it exists.
func NewFileState(path string) (*FileState, error) {
	fs := &FileState{path: path, state: &fileStateData{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	if err := yaml.Unmarshal(data, fs.state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return fs, nil
}

func (fs *FileState) save() error {
	data, err := yaml.Marshal(fs.state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// CreateRun replaces the stored run.
func (fs *FileState) CreateRun(id, file, connection, schema string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.state = &fileStateData{
		RunID:      id,
		File:       file,
		Connection: connection,
		Schema:     schema,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	return fs.save()
}

// CompleteRun sets the final status of the stored run.
func (fs *FileState) CompleteRun(id, status, errorMsg string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.state.RunID != id {
		return fmt.Errorf("run ID mismatch: expected %s, got %s", fs.state.RunID, id)
	}
	now := time.Now().UTC()
	fs.state.Status = status
	fs.state.Error = errorMsg
	fs.state.CompletedAt = &now
	return fs.save()
}

func (fs *FileState) run() *Run {
	return &Run{
		ID:          fs.state.RunID,
		File:        fs.state.File,
		Connection:  fs.state.Connection,
		Schema:      fs.state.Schema,
		Status:      fs.state.Status,
		Error:       fs.state.Error,
		StartedAt:   fs.state.StartedAt,
		CompletedAt: fs.state.CompletedAt,
	}
}

// LastIncompleteRun returns the stored run when it is still running and
// matches file and connection.
func (fs *FileState) LastIncompleteRun(file, connection string) (*Run, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	s := fs.state
	if s.RunID == "" || s.Status != StatusRunning || s.File != file || s.Connection != connection {
		return nil, nil
	}
	return fs.run(), nil
}

// GetRun returns the stored run when its ID matches.
func (fs *FileState) GetRun(id string) (*Run, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.state.RunID == "" || fs.state.RunID != id {
		return nil, nil
	}
	return fs.run(), nil
}

// AllRuns returns the stored run, if any.
func (fs *FileState) AllRuns() ([]Run, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.state.RunID == "" {
		return nil, nil
	}
	return []Run{*fs.run()}, nil
}

// MarkTableComplete records table against the stored run.
func (fs *FileState) MarkTableComplete(runID, table string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.state.RunID != runID {
		return fmt.Errorf("run ID mismatch: expected %s, got %s", fs.state.RunID, runID)
	}
	for _, t := range fs.state.Tables {
		if t == table {
			return nil
		}
	}
	fs.state.Tables = append(fs.state.Tables, table)
	delete(fs.state.Partial, table)
	return fs.save()
}

// MarkStatements records that the first n statements of table ran.
func (fs *FileState) MarkStatements(runID, table string, n int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.state.RunID != runID {
		return fmt.Errorf("run ID mismatch: expected %s, got %s", fs.state.RunID, runID)
	}
	if fs.state.Partial == nil {
		fs.state.Partial = make(map[string]int)
	}
	fs.state.Partial[table] = n
	return fs.save()
}

// PartialTables returns the statement counts recorded for runID.
func (fs *FileState) PartialTables(runID string) (map[string]int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	partial := make(map[string]int)
	if fs.state.RunID != runID {
		return partial, nil
	}
	for t, n := range fs.state.Partial {
		partial[t] = n
	}
	return partial, nil
}

// CompletedTables returns the tables recorded for runID.
func (fs *FileState) CompletedTables(runID string) (map[string]bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	done := make(map[string]bool)
	if fs.state.RunID != runID {
		return done, nil
	}
	for _, t := range fs.state.Tables {
		done[t] = true
	}
	return done, nil
}

// Close is a no-op; every change is already on disk.
func (fs *FileState) Close() error {
	return nil
}
