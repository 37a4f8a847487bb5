package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/johndauphine/go-dm/internal/driver"
)

func TestRegistered(t *testing.T) {
	if got := driver.Canonicalize("sqlite3"); got != "sqlite" {
		t.Errorf("Canonicalize(sqlite3) = %q", got)
	}
}

func TestBuildDSN(t *testing.T) {
	d := &Dialect{}
	if got := d.BuildDSN("", 0, "", "", "", nil); got != "file::memory:" {
		t.Errorf("BuildDSN() = %q", got)
	}
	if got := d.BuildDSN("", 0, "app.db", "", "", map[string]any{"foreign_keys": true}); got != "app.db?_pragma=foreign_keys%281%29" {
		t.Errorf("BuildDSN() = %q", got)
	}
}

func TestTableExistsQuery(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE "users" (id INTEGER)`); err != nil {
		t.Fatal(err)
	}

	d := &Dialect{}
	for table, want := range map[string]int{"users": 1, "missing": 0} {
		q, args := d.TableExistsQuery("", table)
		var n int
		if err := db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
			t.Fatalf("query %s: %v", table, err)
		}
		if n != want {
			t.Errorf("%s: count = %d, want %d", table, n, want)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX "users_id_index" ON "users" (id)`); err != nil {
		t.Fatal(err)
	}
	q, args := d.IndexExistsQuery("", "users", "users_id_index")
	var n int
	if err := db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("index count = %d, want 1", n)
	}
}

func TestMapType(t *testing.T) {
	m := &TypeMapper{}
	if got := m.MapType(driver.Column{Type: driver.TypeInteger, AutoIncrement: true}); got != "INTEGER PRIMARY KEY AUTOINCREMENT" {
		t.Errorf("MapType() = %q", got)
	}
	if got := m.MapType(driver.Column{Type: driver.TypeString, Length: 8188}); got != "TEXT" {
		t.Errorf("MapType() = %q", got)
	}
}
