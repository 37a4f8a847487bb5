package query

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/johndauphine/go-dm/internal/config"
	"github.com/johndauphine/go-dm/internal/connection"
	"github.com/johndauphine/go-dm/internal/dialect"
	"github.com/johndauphine/go-dm/internal/driver"
)

type fakeRunner struct {
	d        driver.Dialect
	sql      string
	bindings []any
	opts     connection.SelectOptions
}

func (f *fakeRunner) Dialect() driver.Dialect { return f.d }

func (f *fakeRunner) Select(_ context.Context, sql string, bindings []any, opts connection.SelectOptions) ([]connection.Row, error) {
	f.sql, f.bindings, f.opts = sql, bindings, opts
	return []connection.Row{{"id": int64(1)}}, nil
}

func runner(dbType string) *fakeRunner {
	return &fakeRunner{d: dialect.GetDialect(dbType)}
}

func TestToSQL(t *testing.T) {
	q := New(runner("dm")).
		From("APP.users").
		Select("id", "users.email").
		Where(`"status" = ?`, "active").
		OrWhere(`"age" > ?`, 30).
		OrderBy("id", "desc").
		Limit(10).
		Offset(20)

	sql, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "users"."email" FROM "APP"."users" WHERE "status" = ? OR "age" > ? ORDER BY "id" DESC LIMIT 10 OFFSET 20`, sql)
	assert.Equal(t, []any{"active", 30}, q.Bindings())
}

func TestToSQLPostgresPlaceholders(t *testing.T) {
	sql, err := New(runner("postgres")).
		From("users").
		SelectRaw("COUNT(*) FILTER (WHERE note = '?') AS n, ? AS tag", "x").
		Where("id = ?", 1).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FILTER (WHERE note = '?') AS n, $1 AS tag FROM "users" WHERE id = $2`, sql)
}

func TestToSQLMSSQLPaging(t *testing.T) {
	sql, err := New(runner("mssql")).From("users").OrderBy("id", "asc").Limit(5).Offset(10).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM [users] ORDER BY [id] ASC OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY`, sql)
}

func TestToSQLWithoutTable(t *testing.T) {
	_, err := New(runner("dm")).Select("id").ToSQL()
	assert.Error(t, err)
}

func TestSelectRawRewrites(t *testing.T) {
	q := New(runner("dm")).From("users").SelectRaw("team, group_concat(name) AS names").SelectRaw("x, GROUP_CONCAT(y)")
	sql, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT team, wm_concat(name) AS names, x, WM_CONCAT(y) FROM "users"`, sql)
}

func TestSelectBindingsBeforeWhereBindings(t *testing.T) {
	q := New(runner("dm")).From("t").Where("a = ?", 1).SelectRaw("? AS b", 2)
	assert.Equal(t, []any{2, 1}, q.Bindings())
}

func TestWhereJSONOverlaps(t *testing.T) {
	q := New(runner("dm")).From("posts").WhereJSONOverlaps("meta->tags", []string{"go", "sql"})
	sql, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "posts" WHERE JSON_OVERLAPS("meta", ?)`, sql)
	assert.Equal(t, []any{`{"tags":["go","sql"]}`}, q.Bindings())
}

func TestWhereJSONOverlapsWithoutPath(t *testing.T) {
	q := New(runner("dm")).From("posts").WhereJSONOverlaps("tags", []int{1, 2})
	assert.Equal(t, []any{`[1,2]`}, q.Bindings())
}

func TestWhereJSONOverlapsEncodingError(t *testing.T) {
	q := New(runner("dm")).From("posts").WhereJSONOverlaps("meta->x", make(chan int))
	_, err := q.ToSQL()
	assert.Error(t, err)
	assert.Error(t, q.Err())
}

func TestLockForUpdate(t *testing.T) {
	r := runner("dm")
	_, err := New(r).From("accounts").Where("id = ?", 7).LockForUpdate().Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "accounts" WHERE id = ? FOR UPDATE`, r.sql)
	assert.True(t, r.opts.Lock)
	assert.Equal(t, []any{7}, r.bindings)
}

func TestClone(t *testing.T) {
	base := New(runner("dm")).From("users").Where("active = ?", true)
	clone := base.Clone().Where("age > ?", 18)

	baseSQL, _ := base.ToSQL()
	cloneSQL, _ := clone.ToSQL()
	assert.Equal(t, `SELECT * FROM "users" WHERE active = ?`, baseSQL)
	assert.Equal(t, `SELECT * FROM "users" WHERE active = ? AND age > ?`, cloneSQL)
	assert.Len(t, base.Bindings(), 1)
	assert.Len(t, clone.Bindings(), 2)
}

func TestToRawSQL(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	q := New(runner("dm")).
		From("orders").
		Where("note = ?", "O'Brien").
		Where("total = ?", decimal.RequireFromString("12.50")).
		Where("paid = ?", true).
		Where("created_at > ?", ts).
		Where("deleted_at IS ? OR qty = ?", nil, 3).
		Where("ratio = ?", 0.25)

	raw, err := q.ToRawSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "orders" WHERE note = 'O''Brien' AND total = 12.5 AND paid = 1 AND created_at > '2024-03-09 14:05:07' AND deleted_at IS NULL OR qty = 3 AND ratio = 0.25`, raw)
}

func TestToRawSQLDateFormat(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	raw, err := New(runner("dm")).DateFormat("YYYY/MM/DD").From("t").Where("d = ?", ts).ToRawSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE d = '2024/03/09'`, raw)
}

func TestGoLayout(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "2006-01-02 15:04:05"},
		{"YYYY-MM-DD HH24:MI:SS", "2006-01-02 15:04:05"},
		{"yyyy-mm-dd", "2006-01-02"},
		{"DD-MON-YY HH12:MI AM", "02-Jan-06 03:04 PM"},
		{"HH24:MI:SS.FF6", "15:04:05.000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GoLayout(tt.in), "GoLayout(%q)", tt.in)
	}
}

func TestGetAgainstSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, team TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name, team) VALUES ('ann', 'a'), ('bob', 'a'), ('cid', 'b')`)
	require.NoError(t, err)

	conn, err := connection.New(db, config.ConnectionConfig{Driver: "sqlite"})
	require.NoError(t, err)

	rows, err := New(conn).
		From("users").
		Select("team").
		SelectRaw("group_concat(name) AS names").
		Where("team = ?", "a").
		Get(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["team"])
	assert.Equal(t, "ann,bob", rows[0]["names"])

	first, err := New(conn).From("users").OrderBy("name", "desc").First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cid", first["name"])

	none, err := New(conn).From("users").Where("team = ?", "z").First(context.Background())
	require.NoError(t, err)
	assert.Nil(t, none)
}
