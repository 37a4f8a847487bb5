package schema

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/johndauphine/go-dm/internal/connection"
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/logging"
	"github.com/johndauphine/go-dm/internal/progress"
)

// Builder runs schema changes through a connection.
type Builder struct {
	conn     *connection.Connection
	grammar  *Grammar
	tracker  *progress.Tracker
	reporter progress.Reporter
	created  func(bp *Blueprint) error
	ran      func(bp *Blueprint, n int) error
	resume   map[string]int
}

// NewBuilder returns a builder for conn. Generated names honor the
// connection's identifier limit.
func NewBuilder(conn *connection.Connection) (*Builder, error) {
	d, err := driver.Get(conn.Config().Driver)
	if err != nil {
		return nil, err
	}
	return &Builder{
		conn:     conn,
		grammar:  NewGrammar(d).WithIdentifierLimit(conn.IdentifierMaxLength()),
		reporter: &progress.NullReporter{},
	}, nil
}

// WithProgress draws a progress bar while statements run.
func (b *Builder) WithProgress(t *progress.Tracker) *Builder {
	b.tracker = t
	return b
}

// WithReporter emits JSON progress updates while statements run.
func (b *Builder) WithReporter(r progress.Reporter) *Builder {
	if r != nil {
		b.reporter = r
	}
	return b
}

// OnCreated registers fn to run after each table's statements succeed.
// An error from fn stops the build.
func (b *Builder) OnCreated(fn func(bp *Blueprint) error) *Builder {
	b.created = fn
	return b
}

// OnStatement registers fn to run after each statement succeeds, with the
// number of the table's statements run so far. An error from fn stops the
// build.
func (b *Builder) OnStatement(fn func(bp *Blueprint, n int) error) *Builder {
	b.ran = fn
	return b
}

// Resume continues an interrupted build. done holds, per prefixed table
// name, how many of the table's statements already ran; those are skipped.
// CREATE TABLE is also skipped when the table already exists.
func (b *Builder) Resume(done map[string]int) *Builder {
	if done == nil {
		done = map[string]int{}
	}
	b.resume = done
	return b
}

// resumeFrom returns the index of the first statement of bp still to run.
func (b *Builder) resumeFrom(ctx context.Context, bp *Blueprint, stmts []string) (int, error) {
	if b.resume == nil {
		return 0, nil
	}
	table := bp.PrefixedTable()
	n := b.resume[table]
	if n == 0 {
		exists, err := b.tableExists(ctx, table)
		if err != nil {
			return 0, fmt.Errorf("checking table %s: %w", table, err)
		}
		if exists {
			logging.Warn("Table %s already exists, skipping CREATE TABLE", table)
			n = 1
		}
	}
	return min(n, len(stmts)), nil
}

// Grammar returns the builder's grammar.
func (b *Builder) Grammar() *Grammar { return b.grammar }

// Blueprint returns an empty blueprint carrying the connection's table prefix.
func (b *Builder) Blueprint(table string) *Blueprint {
	bp := NewBlueprint(table)
	bp.SetTablePrefix(b.conn.TablePrefix())
	return bp
}

// Create declares a table with fn and creates it.
func (b *Builder) Create(ctx context.Context, table string, fn func(*Blueprint)) error {
	bp := b.Blueprint(table)
	fn(bp)
	return b.Build(ctx, bp)
}

// Compile returns the statements for bps without running them.
func (b *Builder) Compile(bps ...*Blueprint) ([][]string, error) {
	out := make([][]string, len(bps))
	for i, bp := range bps {
		stmts, err := b.grammar.CompileCreate(bp, b.conn.Schema())
		if err != nil {
			return nil, err
		}
		out[i] = stmts
	}
	return out, nil
}

// Build creates every blueprint's table, in order. Statements are compiled
// up front so a naming error leaves the database untouched.
func (b *Builder) Build(ctx context.Context, bps ...*Blueprint) error {
	defer logging.Elapsed(time.Now(), fmt.Sprintf("Built %d tables", len(bps)))

	b.reporter.ReportImmediate(progress.ProgressUpdate{Phase: "compile", TablesTotal: len(bps)})
	compiled, err := b.Compile(bps...)
	if err != nil {
		b.reporter.ReportImmediate(progress.ProgressUpdate{Phase: "compile", TablesTotal: len(bps), ErrorCount: 1})
		return err
	}

	var total int64
	for _, stmts := range compiled {
		total += int64(len(stmts))
	}
	if b.tracker != nil {
		b.tracker.SetTotal(total)
	}

	var executed int64
	for i, stmts := range compiled {
		table := bps[i].PrefixedTable()
		if b.tracker != nil {
			b.tracker.StartTable(table)
		}
		logging.Debug("Creating table %s (%d statements)", table, len(stmts))

		from, err := b.resumeFrom(ctx, bps[i], stmts)
		if err != nil {
			return err
		}
		if from > 0 {
			logging.Info("Resuming %s at statement %d of %d", table, from+1, len(stmts))
			executed += int64(from)
			if b.tracker != nil {
				b.tracker.Add(int64(from))
			}
		}

		for j := from; j < len(stmts); j++ {
			stmt := stmts[j]
			if err := b.conn.Statement(ctx, stmt); err != nil {
				b.reporter.ReportImmediate(progress.ProgressUpdate{
					Phase:              "apply",
					TablesComplete:     i,
					TablesTotal:        len(bps),
					StatementsExecuted: executed,
					StatementsTotal:    total,
					ProgressPct:        progress.Percent(executed, total),
					CurrentTable:       table,
					ErrorCount:         1,
				})
				return fmt.Errorf("creating table %s: %w", table, err)
			}
			executed++
			if b.tracker != nil {
				b.tracker.Add(1)
			}
			b.reporter.Report(progress.ProgressUpdate{
				Phase:              "apply",
				TablesComplete:     i,
				TablesTotal:        len(bps),
				StatementsExecuted: executed,
				StatementsTotal:    total,
				ProgressPct:        progress.Percent(executed, total),
				CurrentTable:       table,
			})
			if b.ran != nil {
				if err := b.ran(bps[i], j+1); err != nil {
					return fmt.Errorf("recording table %s: %w", table, err)
				}
			}
		}
		if b.created != nil {
			if err := b.created(bps[i]); err != nil {
				return fmt.Errorf("recording table %s: %w", table, err)
			}
		}
	}

	if b.tracker != nil {
		b.tracker.Finish()
	}
	b.reporter.ReportImmediate(progress.ProgressUpdate{
		Phase:              "done",
		TablesComplete:     len(bps),
		TablesTotal:        len(bps),
		StatementsExecuted: executed,
		StatementsTotal:    total,
		ProgressPct:        100,
	})
	return nil
}

// Drop drops a table. The connection's prefix is applied.
func (b *Builder) Drop(ctx context.Context, table string) error {
	return b.conn.Statement(ctx, b.grammar.CompileDrop(b.conn.Schema(), b.conn.TablePrefix()+table))
}

// DropIfExists drops a table when it exists.
func (b *Builder) DropIfExists(ctx context.Context, table string) error {
	return b.conn.Statement(ctx, b.grammar.CompileDropIfExists(b.conn.Schema(), b.conn.TablePrefix()+table))
}

// HasTable reports whether the table exists in the connection's schema.
func (b *Builder) HasTable(ctx context.Context, table string) (bool, error) {
	return b.tableExists(ctx, b.conn.TablePrefix()+table)
}

func (b *Builder) tableExists(ctx context.Context, table string) (bool, error) {
	q, args := b.grammar.Dialect().TableExistsQuery(b.conn.Schema(), table)
	rows, err := b.conn.Select(ctx, q, args, connection.SelectOptions{})
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	for _, v := range rows[0] {
		n, err := toInt64(v)
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
	return false, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
