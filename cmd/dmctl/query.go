package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/johndauphine/go-dm/internal/connection"
	"github.com/johndauphine/go-dm/internal/exitcodes"
	"github.com/johndauphine/go-dm/internal/query"
)

// repeated collects every occurrence of a flag without splitting on commas,
// so conditions such as "id IN (?, ?)" survive intact.
type repeated []string

func (r *repeated) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func (r *repeated) String() string { return strings.Join(*r, " ") }

func repeatedFlag(c *cli.Context, name string) []string {
	if r, ok := c.Generic(name).(*repeated); ok && r != nil {
		return *r
	}
	return nil
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "table", Aliases: []string{"t"}, Required: true, Usage: "Table to select from, without the connection's prefix"},
		&cli.StringSliceFlag{Name: "select", Aliases: []string{"s"}, Usage: "Columns to select, comma separated"},
		&cli.GenericFlag{Name: "select-raw", Value: &repeated{}, Usage: "Raw select expression, rewritten for the driver (repeatable)"},
		&cli.GenericFlag{Name: "where", Aliases: []string{"w"}, Value: &repeated{}, Usage: "Condition with ? placeholders (repeatable)"},
		&cli.GenericFlag{Name: "or-where", Value: &repeated{}, Usage: "Condition joined with OR (repeatable)"},
		&cli.GenericFlag{Name: "bind", Aliases: []string{"b"}, Value: &repeated{}, Usage: "Value for the next ? placeholder, in order (repeatable)"},
		&cli.GenericFlag{Name: "json-overlaps", Value: &repeated{}, Usage: "col->path=value match against a JSON column (repeatable)"},
		&cli.GenericFlag{Name: "order", Aliases: []string{"o"}, Value: &repeated{}, Usage: "Order column, optionally col:desc (repeatable)"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum rows"},
		&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
		&cli.BoolFlag{Name: "lock", Usage: "Lock the selected rows for update"},
		&cli.BoolFlag{Name: "run", Usage: "Run the query and print rows as JSON lines instead of the SQL"},
	}
}

// bindValue reads integers as numbers and everything else as text.
func bindValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// jsonValue reads value as JSON, falling back to a plain string.
func jsonValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// buildQuery assembles the select from the command's flags. Bindings are
// consumed in flag order: select expressions first, then conditions.
func buildQuery(c *cli.Context, conn *connection.Connection) (*query.Builder, error) {
	table := conn.TablePrefix() + c.String("table")
	if !strings.Contains(table, ".") && conn.Schema() != "" {
		table = conn.Schema() + "." + table
	}

	binds := repeatedFlag(c, "bind")
	take := func(expr string) ([]any, error) {
		n := strings.Count(expr, "?")
		if n > len(binds) {
			return nil, fmt.Errorf("%q needs %d bind values, %d left", expr, n, len(binds))
		}
		vals := make([]any, n)
		for i := range vals {
			vals[i] = bindValue(binds[i])
		}
		binds = binds[n:]
		return vals, nil
	}

	q := query.New(conn).From(table).DateFormat(conn.Config().DateFormat)
	if cols := c.StringSlice("select"); len(cols) > 0 {
		q.Select(cols...)
	}
	for _, expr := range repeatedFlag(c, "select-raw") {
		vals, err := take(expr)
		if err != nil {
			return nil, err
		}
		q.SelectRaw(expr, vals...)
	}
	for _, cond := range repeatedFlag(c, "where") {
		vals, err := take(cond)
		if err != nil {
			return nil, err
		}
		q.Where(cond, vals...)
	}
	for _, cond := range repeatedFlag(c, "or-where") {
		vals, err := take(cond)
		if err != nil {
			return nil, err
		}
		q.OrWhere(cond, vals...)
	}
	if len(binds) > 0 {
		return nil, fmt.Errorf("%d unused bind values", len(binds))
	}

	for _, m := range repeatedFlag(c, "json-overlaps") {
		col, value, ok := strings.Cut(m, "=")
		if !ok {
			return nil, fmt.Errorf("json-overlaps %q: want col->path=value", m)
		}
		q.WhereJSONOverlaps(col, jsonValue(value))
	}
	for _, o := range repeatedFlag(c, "order") {
		col, dir, _ := strings.Cut(o, ":")
		q.OrderBy(col, dir)
	}
	q.Limit(c.Int("limit")).Offset(c.Int("offset"))
	if c.Bool("lock") {
		q.LockForUpdate()
	}
	return q, q.Err()
}

func runQuery(c *cli.Context) error {
	if !c.Bool("run") {
		cfg, err := loadConnection(c)
		if err != nil {
			return err
		}
		// Rendering needs the dialect, not a database.
		conn, err := connection.New(nil, cfg)
		if err != nil {
			return err
		}
		q, err := buildQuery(c, conn)
		if err != nil {
			return exitcodes.NewExitError(err, exitcodes.ConfigError)
		}
		raw, err := q.ToRawSQL()
		if err != nil {
			return exitcodes.NewExitError(err, exitcodes.ConfigError)
		}
		fmt.Fprintln(c.App.Writer, raw)
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
	defer cancel()

	conn, db, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	q, err := buildQuery(c, conn)
	if err != nil {
		return exitcodes.NewExitError(err, exitcodes.ConfigError)
	}
	rows, err := q.Get(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return exitcodes.NewExitError(err, exitcodes.IOError)
		}
	}
	return nil
}
