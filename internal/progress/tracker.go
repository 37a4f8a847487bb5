package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/johndauphine/go-dm/internal/logging"
)

// Tracker tracks DDL statement execution
type Tracker struct {
	bar       *progressbar.ProgressBar
	out       io.Writer
	total     int64
	current   atomic.Int64
	startTime time.Time
}

// New creates a new progress tracker that draws to stderr when stderr
// is a terminal and stays silent otherwise.
func New() *Tracker {
	var out io.Writer
	if term.IsTerminal(int(os.Stderr.Fd())) {
		out = os.Stderr
	}
	return NewWithWriter(out)
}

// NewWithWriter creates a tracker drawing to w. A nil writer disables the bar.
func NewWithWriter(w io.Writer) *Tracker {
	return &Tracker{
		out:       w,
		startTime: time.Now(),
	}
}

// SetTotal sets the total number of statements to execute
func (t *Tracker) SetTotal(total int64) {
	t.total = total
	if t.out == nil {
		return
	}
	t.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetDescription("Applying"),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Add increments the progress counter
func (t *Tracker) Add(n int64) {
	t.current.Add(n)
	if t.bar != nil {
		_ = t.bar.Add64(n)
	}
}

// StartTable updates the description with the table being applied
func (t *Tracker) StartTable(tableName string) {
	if t.bar != nil {
		t.bar.Describe(fmt.Sprintf("Applying %s", tableName))
	}
}

// Current returns the current count
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Total returns the total set by SetTotal
func (t *Tracker) Total() int64 {
	return t.total
}

// Finish marks the progress as complete
func (t *Tracker) Finish() {
	if t.bar != nil {
		_ = t.bar.Finish()
		fmt.Fprintln(t.out)
	}

	logging.Info("Schema applied: %d statements in %s",
		t.current.Load(), time.Since(t.startTime).Round(time.Millisecond))
}
