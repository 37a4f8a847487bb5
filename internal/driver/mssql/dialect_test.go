package mssql

import (
	"testing"

	"github.com/johndauphine/go-dm/internal/driver"
)

func TestRegistered(t *testing.T) {
	d, err := driver.Get("sqlserver")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name() != "mssql" || d.SQLDriverName() != "sqlserver" {
		t.Errorf("unexpected driver %s/%s", d.Name(), d.SQLDriverName())
	}
}

func TestDialect(t *testing.T) {
	d := &Dialect{}
	tests := []struct {
		name, got, want string
	}{
		{"quote", d.QuoteIdentifier("a]b"), "[a]]b]"},
		{"qualify", d.QualifyTable("dbo", "users"), "[dbo].[users]"},
		{"string", d.QuoteString("it's"), "N'it''s'"},
		{"placeholder", d.ParameterPlaceholder(1), "@p1"},
		{"rewrite", d.RewriteRules().Apply("SELECT GROUP_CONCAT(x)"), "SELECT STRING_AGG(x)"},
		{"dsn", d.BuildDSN("db", 1433, "app", "sa", "pw", map[string]any{"encrypt": false}),
			"sqlserver://sa:pw@db:1433?database=app&encrypt=false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if d.SessionStatements(map[string]string{"CURRENT_SCHEMA": "x"}) != nil {
		t.Error("expected no session statements")
	}
}

func TestMapType(t *testing.T) {
	m := &TypeMapper{}
	tests := []struct {
		col  driver.Column
		want string
	}{
		{driver.Column{Type: driver.TypeString, Length: 8188}, "VARCHAR(MAX)"},
		{driver.Column{Type: driver.TypeString, Length: 255}, "VARCHAR(255)"},
		{driver.Column{Type: driver.TypeBigInteger, AutoIncrement: true}, "BIGINT IDENTITY(1,1) PRIMARY KEY"},
		{driver.Column{Type: driver.TypeUUID}, "UNIQUEIDENTIFIER"},
	}
	for _, tt := range tests {
		if got := m.MapType(tt.col); got != tt.want {
			t.Errorf("MapType(%s) = %q, want %q", tt.col.Type, got, tt.want)
		}
	}
}
