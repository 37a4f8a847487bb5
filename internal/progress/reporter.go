package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/johndauphine/go-dm/internal/logging"
)

// ProgressUpdate represents a JSON progress update for scripts and schedulers.
type ProgressUpdate struct {
	Timestamp          string  `json:"timestamp"`
	Phase              string  `json:"phase"` // compile, apply, done
	TablesComplete     int     `json:"tables_complete"`
	TablesTotal        int     `json:"tables_total"`
	StatementsExecuted int64   `json:"statements_executed"`
	StatementsTotal    int64   `json:"statements_total,omitempty"`
	ProgressPct        float64 `json:"progress_pct"`
	CurrentTable       string  `json:"current_table,omitempty"`
	ErrorCount         int     `json:"error_count,omitempty"`
}

// Percent returns done/total as a percentage, or 0 when total is 0.
func Percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) * 100 / float64(total)
}

// Reporter receives progress updates while a build runs.
type Reporter interface {
	Report(update ProgressUpdate)          // may be throttled
	ReportImmediate(update ProgressUpdate) // never throttled
	Close()
}

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	writer     io.Writer
	mu         sync.Mutex
	interval   time.Duration
	lastReport time.Time
	closed     bool
}

// NewJSONReporter writes to writer, or stderr when writer is nil, at most
// once per interval for throttled updates.
func NewJSONReporter(writer io.Writer, interval time.Duration) *JSONReporter {
	if writer == nil {
		writer = os.Stderr
	}
	return &JSONReporter{
		writer:   writer,
		interval: interval,
	}
}

// Report writes update unless the previous line went out less than the
// reporter's interval ago.
func (r *JSONReporter) Report(update ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.interval > 0 && time.Since(r.lastReport) < r.interval {
		return
	}
	r.emit(update)
}

// ReportImmediate writes update regardless of the interval. Builders use
// it for phase changes and failures.
func (r *JSONReporter) ReportImmediate(update ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(update)
}

func (r *JSONReporter) emit(update ProgressUpdate) {
	if r.closed {
		return
	}
	now := time.Now()
	if update.Timestamp == "" {
		update.Timestamp = now.Format(time.RFC3339)
	}
	data, err := json.Marshal(update)
	if err != nil {
		logging.Warn("Failed to marshal progress update: %v", err)
		return
	}
	fmt.Fprintf(r.writer, "%s\n", data)
	r.lastReport = now
}

// Close marks the reporter as closed.
func (r *JSONReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// NullReporter discards updates.
type NullReporter struct{}

func (*NullReporter) Report(ProgressUpdate)          {}
func (*NullReporter) ReportImmediate(ProgressUpdate) {}
func (*NullReporter) Close()                         {}
