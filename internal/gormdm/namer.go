package gormdm

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"gorm.io/gorm/schema"

	"github.com/johndauphine/go-dm/internal/logging"
	"github.com/johndauphine/go-dm/internal/naming"
)

const kindCheck naming.ConstraintKind = "ck"

// NamingStrategy is gorm's default strategy with index, unique, check and
// foreign key names generated by the naming package.
type NamingStrategy struct {
	schema.NamingStrategy
	MaxLength int
}

// NewNamingStrategy returns a strategy that prefixes tables with prefix and
// keeps generated names within maxLength characters.
func NewNamingStrategy(prefix string, maxLength int) NamingStrategy {
	limit := naming.New(maxLength).Limit()
	return NamingStrategy{
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix, IdentifierMaxLength: limit},
		MaxLength:      limit,
	}
}

// IndexName receives the field name for single-column indexes.
func (ns NamingStrategy) IndexName(table, column string) string {
	return ns.generate(table, []string{ns.ColumnName(table, column)}, naming.KindIndex)
}

func (ns NamingStrategy) UniqueName(table, column string) string {
	return ns.generate(table, []string{column}, naming.KindUnique)
}

func (ns NamingStrategy) CheckerName(table, column string) string {
	return ns.generate(table, []string{column}, kindCheck)
}

// RelationshipFKName names the constraint after the table holding the
// foreign key and its columns.
func (ns NamingStrategy) RelationshipFKName(rel schema.Relationship) string {
	var (
		table   string
		columns []string
	)
	for _, ref := range rel.References {
		if ref.PrimaryKey == nil || ref.ForeignKey == nil || (rel.JoinTable != nil && !ref.OwnPrimaryKey) {
			continue
		}
		if ref.OwnPrimaryKey {
			table = ref.ForeignKey.Schema.Table
		} else {
			table = rel.Schema.Table
		}
		columns = append(columns, ref.ForeignKey.DBName)
	}
	if table == "" {
		return ns.NamingStrategy.RelationshipFKName(rel)
	}
	return ns.generate(table, columns, naming.KindForeign)
}

// generate falls back to a hashed name when the columns cannot be shortened
// enough.
func (ns NamingStrategy) generate(table string, columns []string, kind naming.ConstraintKind) string {
	namer := naming.New(ns.MaxLength)
	name, err := namer.Generate(naming.Request{Table: table, Columns: columns, Kind: kind})
	if err == nil {
		return name
	}

	logging.Debug("Using hashed %s name on %s: %v", kind, table, err)
	hash := sha256.Sum256([]byte(table + "." + strings.Join(columns, ".")))
	name = fmt.Sprintf("%s_%x", kind.ShortCode(), hash[:8])
	if len(name) > namer.Limit() {
		name = name[:namer.Limit()]
	}
	return name
}
