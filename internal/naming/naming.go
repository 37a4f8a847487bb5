// Package naming generates index and constraint identifiers that fit a
// database's identifier length limit.
//
// Names follow the {prefix}{table}_{col1}_{col2}..._{code} layout. When the
// result is too long, every underscore-delimited segment longer than two
// characters loses its last character, and the pass repeats until the name
// fits. Truncation is per pass over all segments, so long names shrink
// evenly instead of one segment collapsing first.
//
// Length is counted in characters by default. Databases that count
// identifier bytes reject multibyte names that look short enough: 27 CJK
// characters are 81 UTF-8 bytes. Set Namer.Bytes for those.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the Dameng (and classic Oracle) identifier limit.
const DefaultMaxLength = 30

var (
	// ErrInvalidArgument is returned for requests without a table or columns.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLengthBudgetExceeded is returned when every segment is already two
	// characters or shorter and the identifier is still over the limit.
	ErrLengthBudgetExceeded = errors.New("identifier length budget exceeded")
)

// ConstraintKind names the kind of index or constraint being named.
type ConstraintKind string

const (
	KindPrimary ConstraintKind = "primary"
	KindForeign ConstraintKind = "foreign"
	KindUnique  ConstraintKind = "unique"
	KindIndex   ConstraintKind = "index"
)

var shortCodes = map[ConstraintKind]string{
	KindPrimary: "pk",
	KindForeign: "fk",
	KindUnique:  "uk",
}

// ShortCode returns the suffix embedded in generated names. Kinds without a
// canonical code are used verbatim.
func (k ConstraintKind) ShortCode() string {
	if code, ok := shortCodes[k]; ok {
		return code
	}
	return string(k)
}

// Request describes the identifier to generate.
type Request struct {
	Prefix  string
	Table   string
	Columns []string
	Kind    ConstraintKind
}

// Namer generates identifiers bounded by MaxLength characters.
// The zero value uses DefaultMaxLength.
type Namer struct {
	MaxLength int
	// Bytes counts MaxLength in UTF-8 bytes instead of characters.
	Bytes bool
}

// New returns a Namer for the given limit. Non-positive limits fall back to
// DefaultMaxLength.
func New(maxLength int) Namer {
	return Namer{MaxLength: maxLength}
}

// Limit returns the effective maximum identifier length.
func (n Namer) Limit() int {
	if n.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return n.MaxLength
}

// Length measures s the way the limit is counted.
func (n Namer) Length(s string) int {
	if n.Bytes {
		return len(s)
	}
	return utf8.RuneCountInString(s)
}

func (n Namer) unit() string {
	if n.Bytes {
		return "bytes"
	}
	return "characters"
}

// Generate returns the identifier for req.
func (n Namer) Generate(req Request) (string, error) {
	return n.generate(req, nil)
}

// Trace returns every candidate the shortening loop produced, starting with
// the raw name and ending with the returned identifier.
func (n Namer) Trace(req Request) ([]string, error) {
	var steps []string
	_, err := n.generate(req, func(s string) {
		steps = append(steps, s)
	})
	return steps, err
}

// Generate is shorthand for a DefaultMaxLength Namer.
func Generate(prefix, table string, columns []string, kind ConstraintKind) (string, error) {
	return Namer{}.Generate(Request{Prefix: prefix, Table: table, Columns: columns, Kind: kind})
}

var separatorReplacer = strings.NewReplacer("-", "_", ".", "_")

func (n Namer) generate(req Request, record func(string)) (string, error) {
	if req.Table == "" {
		return "", fmt.Errorf("%w: table name is empty", ErrInvalidArgument)
	}
	if len(req.Columns) == 0 {
		return "", fmt.Errorf("%w: no columns for %s on %q", ErrInvalidArgument, req.Kind.ShortCode(), req.Table)
	}

	name := strings.ToLower(req.Prefix + req.Table + "_" + strings.Join(req.Columns, "_") + "_" + req.Kind.ShortCode())
	name = separatorReplacer.Replace(name)
	if record != nil {
		record(name)
	}

	limit := n.Limit()
	for n.Length(name) > limit {
		next := shortenPass(name)
		if next == name {
			return "", fmt.Errorf("%w: %q is %d %s, limit is %d",
				ErrLengthBudgetExceeded, name, n.Length(name), n.unit(), limit)
		}
		name = next
		if record != nil {
			record(name)
		}
	}
	return name, nil
}

// shortenPass drops the last character of every segment longer than two.
func shortenPass(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if utf8.RuneCountInString(part) > 2 {
			r := []rune(part)
			parts[i] = string(r[:len(r)-1])
		}
	}
	return strings.Join(parts, "_")
}
