package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/johndauphine/go-dm/internal/dialect"
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/naming"
)

func grammarFor(t *testing.T, name string) *Grammar {
	t.Helper()
	d, err := driver.Get(name)
	require.NoError(t, err)
	return NewGrammar(d)
}

func TestCompileCreateDM(t *testing.T) {
	bp := NewBlueprint("users")
	bp.Comment = "Registered users"
	bp.Increments("id")
	bp.String("email", 255).Comment("Login address")
	bp.Timestamps()
	bp.Unique("email")
	bp.Index("created_at")

	stmts, err := grammarFor(t, "dm").CompileCreate(bp, "")
	require.NoError(t, err)

	want := []string{
		`CREATE TABLE "users" ("id" INT IDENTITY(1,1) PRIMARY KEY, "email" VARCHAR(255) NOT NULL, "created_at" TIMESTAMP NULL, "updated_at" TIMESTAMP NULL)`,
		`ALTER TABLE "users" ADD CONSTRAINT "users_email_uk" UNIQUE ("email")`,
		`CREATE INDEX "users_created_at_index" ON "users" ("created_at")`,
		`COMMENT ON TABLE "users" IS 'Registered users'`,
		`COMMENT ON COLUMN "users"."email" IS 'Login address'`,
	}
	if diff := cmp.Diff(want, stmts); diff != "" {
		t.Errorf("CompileCreate mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileCreateForeignKeyWithPrefixAndSchema(t *testing.T) {
	bp := NewBlueprint("posts")
	bp.SetTablePrefix("app_")
	bp.ID()
	bp.BigInteger("user_id")
	bp.Foreign("user_id").References("id").On("users").CascadeOnDelete()

	stmts, err := grammarFor(t, "dm").CompileCreate(bp, "SYSDBA")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, `CREATE TABLE "SYSDBA"."app_posts" ("id" BIGINT IDENTITY(1,1) PRIMARY KEY, "user_id" BIGINT NOT NULL)`, stmts[0])
	assert.Equal(t, `ALTER TABLE "SYSDBA"."app_posts" ADD CONSTRAINT "app_posts_user_id_fk" FOREIGN KEY ("user_id") REFERENCES "SYSDBA"."app_users" ("id") ON DELETE CASCADE`, stmts[1])
}

func TestCompileCreateShortensLongNames(t *testing.T) {
	bp := NewBlueprint("user_notifications")
	bp.SetTablePrefix("app_")
	bp.String("notifiable_type")
	bp.BigInteger("notifiable_id")
	bp.Index("notifiable_type", "notifiable_id")

	stmts, err := grammarFor(t, "dm").CompileCreate(bp, "")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	name, err := naming.New(30).Generate(naming.Request{
		Prefix:  "app_",
		Table:   "user_notifications",
		Columns: []string{"notifiable_type", "notifiable_id"},
		Kind:    naming.KindIndex,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(name), 30)
	assert.True(t, strings.HasPrefix(stmts[1], `CREATE INDEX "`+name+`" ON`), stmts[1])
}

func TestCompileCreateIdentifierLimitFollowsDialect(t *testing.T) {
	bp := NewBlueprint("user_notifications")
	bp.String("notifiable_type")
	bp.Index("notifiable_type")

	stmts, err := grammarFor(t, "postgres").CompileCreate(bp, "public")
	require.NoError(t, err)
	assert.Contains(t, stmts[1], `"user_notifications_notifiable_type_index"`)

	stmts, err = grammarFor(t, "dm").CompileCreate(bp, "")
	require.NoError(t, err)
	assert.NotContains(t, stmts[1], "user_notifications_notifiable_type_index")
}

func TestCompileCreateExplicitName(t *testing.T) {
	bp := NewBlueprint("users")
	bp.String("email")
	bp.Unique("email").Named("UQ_EMAIL")

	stmts, err := grammarFor(t, "dm").CompileCreate(bp, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" ADD CONSTRAINT "UQ_EMAIL" UNIQUE ("email")`, stmts[1])
}

func TestCompileCreateBudgetExceeded(t *testing.T) {
	bp := NewBlueprint("users")
	bp.String("email")
	bp.Index("email")

	_, err := grammarFor(t, "dm").WithIdentifierLimit(5).CompileCreate(bp, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, naming.ErrLengthBudgetExceeded))
	assert.Contains(t, err.Error(), "naming index on users")
}

func TestCompileCreateEmptyBlueprint(t *testing.T) {
	_, err := grammarFor(t, "dm").CompileCreate(NewBlueprint("empty"), "")
	assert.ErrorIs(t, err, ErrEmptyBlueprint)
}

func TestCompileCreateForeignKeyNeedsReference(t *testing.T) {
	bp := NewBlueprint("posts")
	bp.Integer("user_id")
	bp.Foreign("user_id")

	_, err := grammarFor(t, "dm").CompileCreate(bp, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing referenced table")
}

func TestCompileCreateSQLiteInlinesConstraints(t *testing.T) {
	bp := NewBlueprint("users")
	bp.Increments("id")
	bp.String("email")
	bp.Unique("email")
	bp.Comment = "ignored"

	stmts, err := grammarFor(t, "sqlite").CompileCreate(bp, "main")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "email" TEXT NOT NULL, CONSTRAINT "users_email_uk" UNIQUE ("email"))`, stmts[0])
}

func TestColumnDefaults(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		declare func(bp *Blueprint)
		want    string
	}{
		{
			name:    "dm boolean",
			driver:  "dm",
			declare: func(bp *Blueprint) { bp.Boolean("active").Default(true) },
			want:    `"active" BIT DEFAULT 1 NOT NULL`,
		},
		{
			name:    "postgres boolean",
			driver:  "postgres",
			declare: func(bp *Blueprint) { bp.Boolean("active").Default(false) },
			want:    `DEFAULT FALSE NOT NULL`,
		},
		{
			name:    "expression",
			driver:  "dm",
			declare: func(bp *Blueprint) { bp.Timestamp("seen_at").Default(Expression("CURRENT_TIMESTAMP")) },
			want:    `"seen_at" TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL`,
		},
		{
			name:    "quoted string",
			driver:  "dm",
			declare: func(bp *Blueprint) { bp.String("status", 20).Default("it's new").Nullable() },
			want:    `"status" VARCHAR(20) DEFAULT 'it''s new' NULL`,
		},
		{
			name:    "decimal",
			driver:  "dm",
			declare: func(bp *Blueprint) { bp.Decimal("price").Default(decimal.RequireFromString("9.50")) },
			want:    `"price" DECIMAL(22,6) DEFAULT 9.5 NOT NULL`,
		},
		{
			name:    "precision",
			driver:  "dm",
			declare: func(bp *Blueprint) { bp.TimestampTz("at", 3) },
			want:    `"at" TIMESTAMP(3) WITH TIME ZONE NOT NULL`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp := NewBlueprint("t")
			tt.declare(bp)
			stmts, err := grammarFor(t, tt.driver).CompileCreate(bp, "")
			require.NoError(t, err)
			assert.Contains(t, stmts[0], tt.want)
		})
	}
}

func TestCompileDrop(t *testing.T) {
	g := grammarFor(t, "dm")
	assert.Equal(t, `DROP TABLE "SYSDBA"."users"`, g.CompileDrop("SYSDBA", "users"))
	assert.Equal(t, `DROP TABLE IF EXISTS "users"`, g.CompileDropIfExists("", "users"))
}
