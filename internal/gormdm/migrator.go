package gormdm

import (
	"gorm.io/gorm"
	"gorm.io/gorm/migrator"
)

// Migrator replaces gorm's information_schema lookups with the dialect's
// catalog queries.
type Migrator struct {
	migrator.Migrator
	dialector *Dialector
}

// CurrentDatabase returns the configured schema.
func (m Migrator) CurrentDatabase() string {
	return m.dialector.Schema
}

func (m Migrator) HasTable(value interface{}) bool {
	var count int64
	_ = m.RunWithValue(value, func(stmt *gorm.Statement) error {
		q, args := m.dialector.Dialect().TableExistsQuery(m.dialector.Schema, stmt.Table)
		return m.DB.Statement.ConnPool.QueryRowContext(m.DB.Statement.Context, q, args...).Scan(&count)
	})
	return count > 0
}

// HasIndex accepts an index name or the name of the field it was declared on.
func (m Migrator) HasIndex(value interface{}, name string) bool {
	var count int64
	_ = m.RunWithValue(value, func(stmt *gorm.Statement) error {
		if stmt.Schema != nil {
			if idx := stmt.Schema.LookIndex(name); idx != nil {
				name = idx.Name
			}
		}
		q, args := m.dialector.Dialect().IndexExistsQuery(m.dialector.Schema, stmt.Table, name)
		return m.DB.Statement.ConnPool.QueryRowContext(m.DB.Statement.Context, q, args...).Scan(&count)
	})
	return count > 0
}
