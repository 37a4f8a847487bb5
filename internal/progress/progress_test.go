package progress

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf, time.Hour)

	r.Report(ProgressUpdate{Phase: "apply", StatementsExecuted: 1})
	r.Report(ProgressUpdate{Phase: "apply", StatementsExecuted: 2})
	r.ReportImmediate(ProgressUpdate{Phase: "done", StatementsExecuted: 3})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var last ProgressUpdate
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.Equal(t, "done", last.Phase)
	assert.Equal(t, int64(3), last.StatementsExecuted)
	assert.NotEmpty(t, last.Timestamp)
}

func TestJSONReporterClosed(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf, 0)
	r.Close()
	r.ReportImmediate(ProgressUpdate{Phase: "apply"})
	assert.Empty(t, buf.String())
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(1, 0))
	assert.Equal(t, 50.0, Percent(2, 4))
}

func TestTrackerWithoutWriter(t *testing.T) {
	tr := NewWithWriter(nil)
	tr.SetTotal(3)
	tr.StartTable("users")
	tr.Add(2)
	tr.Finish()
	assert.Equal(t, int64(2), tr.Current())
	assert.Equal(t, int64(3), tr.Total())
}

func TestTrackerDrawsToWriter(t *testing.T) {
	var buf bytes.Buffer
	tr := NewWithWriter(&buf)
	tr.SetTotal(2)
	tr.StartTable("users")
	tr.Add(2)
	tr.Finish()
	assert.Contains(t, buf.String(), "Applying")
}
