package connection

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/johndauphine/go-dm/internal/config"
)

// recorder captures executed statements.
type recorder struct {
	execs   []string
	args    [][]any
	failOn  string
	queries int
}

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

func (r *recorder) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	if r.failOn != "" && query == r.failOn {
		return nil, errors.New("boom")
	}
	r.execs = append(r.execs, query)
	r.args = append(r.args, args)
	return fakeResult(3), nil
}

func (r *recorder) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	r.queries++
	return nil, errors.New("recorder cannot query")
}

func (r *recorder) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	return nil, errors.New("recorder cannot begin")
}

func newDM(t *testing.T, db DB, cfg config.ConnectionConfig) *Connection {
	t.Helper()
	cfg.Driver = "dm"
	c, err := New(db, cfg)
	require.NoError(t, err)
	return c
}

func TestNewSchemaDefaultsToUsername(t *testing.T) {
	c := newDM(t, &recorder{}, config.ConnectionConfig{Username: "SYSDBA"})
	assert.Equal(t, "SYSDBA", c.Schema())

	c = newDM(t, &recorder{}, config.ConnectionConfig{Username: "SYSDBA", Schema: "APP"})
	assert.Equal(t, "APP", c.Schema())
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(&recorder{}, config.ConnectionConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestDriverTitleAndID(t *testing.T) {
	a := newDM(t, &recorder{}, config.ConnectionConfig{Username: "u"})
	b := newDM(t, &recorder{}, config.ConnectionConfig{Username: "u"})
	assert.Equal(t, "Dm", a.DriverTitle())
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())

	pg, err := New(&recorder{}, config.ConnectionConfig{Driver: "postgresql"})
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL", pg.DriverTitle())
}

func TestSetSchema(t *testing.T) {
	rec := &recorder{}
	c := newDM(t, rec, config.ConnectionConfig{Username: "SYSDBA"})

	require.NoError(t, c.SetSchema(context.Background(), "SALES"))
	assert.Equal(t, "SALES", c.Schema())
	assert.Equal(t, []string{"ALTER SESSION SET CURRENT_SCHEMA = SALES"}, rec.execs)
}

func TestSetSessionVarsSorted(t *testing.T) {
	rec := &recorder{}
	c := newDM(t, rec, config.ConnectionConfig{Username: "u"})

	err := c.SetSessionVars(context.Background(), map[string]string{
		"NLS_LANGUAGE": "AMERICAN",
		"EDITION":      "ORA$BASE",
		"ISOLATION":    "1",
	})
	require.NoError(t, err)

	want := []string{
		"ALTER SESSION SET EDITION = ORA$BASE",
		"ALTER SESSION SET ISOLATION = '1'",
		"ALTER SESSION SET NLS_LANGUAGE = 'AMERICAN'",
	}
	if diff := cmp.Diff(want, rec.execs); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestSetSessionVarsStopsOnError(t *testing.T) {
	rec := &recorder{failOn: "ALTER SESSION SET A = '1'"}
	c := newDM(t, rec, config.ConnectionConfig{Username: "u"})

	err := c.SetSessionVars(context.Background(), map[string]string{"A": "1", "B": "2"})
	require.Error(t, err)
	assert.Empty(t, rec.execs)
}

func TestSetDateFormat(t *testing.T) {
	rec := &recorder{}
	c := newDM(t, rec, config.ConnectionConfig{Username: "u"})

	require.NoError(t, c.SetDateFormat(context.Background(), ""))
	want := []string{
		"ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD HH24:MI:SS'",
		"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS'",
	}
	assert.Equal(t, want, rec.execs)
}

func TestConfigure(t *testing.T) {
	rec := &recorder{}
	c := newDM(t, rec, config.ConnectionConfig{
		Username:   "u",
		DateFormat: "YYYY-MM-DD",
		Session:    map[string]string{"TIME_ZONE": "+08:00"},
	})

	require.NoError(t, c.Configure(context.Background()))
	assert.Equal(t, []string{
		"ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD'",
		"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD'",
		"ALTER SESSION SET TIME_ZONE = '+08:00'",
	}, rec.execs)
}

func TestAffectingPassesBindingsInOrder(t *testing.T) {
	rec := &recorder{}
	c := newDM(t, rec, config.ConnectionConfig{Username: "u"})

	n, err := c.Affecting(context.Background(), "UPDATE t SET a = ? WHERE b = ?", 1, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []any{1, "x"}, rec.args[0])
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, team TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name, team) VALUES ('ann', 'a'), ('bob', 'a'), ('cid', 'b')`)
	require.NoError(t, err)
	return db
}

func TestSelect(t *testing.T) {
	db := openSQLite(t)
	c, err := New(db, config.ConnectionConfig{Driver: "sqlite"})
	require.NoError(t, err)

	rows, err := c.Select(context.Background(), "SELECT name FROM users WHERE team = ? ORDER BY name", []any{"a"}, SelectOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ann", rows[0]["name"])
	assert.Equal(t, "bob", rows[1]["name"])
}

func TestSelectWithLock(t *testing.T) {
	db := openSQLite(t)
	c, err := New(db, config.ConnectionConfig{Driver: "sqlite"})
	require.NoError(t, err)

	rows, err := c.Select(context.Background(), "SELECT COUNT(*) AS n FROM users", nil, SelectOptions{Lock: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["n"])

	// The transaction must be finished so the single connection is free again.
	_, err = c.Select(context.Background(), "SELECT 1", nil, SelectOptions{})
	assert.NoError(t, err)
}

func TestSelectAppliesRewriteRules(t *testing.T) {
	db := openSQLite(t)
	// A Dameng connection over SQLite shows the rewritten SQL in the error.
	c := newDM(t, db, config.ConnectionConfig{Username: "u"})

	_, err := c.Select(context.Background(), "SELECT group_concat(name) FROM users", nil, SelectOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wm_concat")
}

func TestIdentifierMaxLength(t *testing.T) {
	c := newDM(t, &recorder{}, config.ConnectionConfig{Username: "u"})
	assert.Equal(t, 30, c.IdentifierMaxLength())

	c = newDM(t, &recorder{}, config.ConnectionConfig{Username: "u", IdentifierMaxLength: 20})
	assert.Equal(t, 20, c.IdentifierMaxLength())
}
