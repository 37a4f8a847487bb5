// Package rewrite applies literal SQL substitutions to rendered statements.
// Dialects describe their rewrites as data so callers never embed
// dialect-specific string handling.
package rewrite

import "strings"

// Rule replaces every occurrence of Pattern with Replacement.
type Rule struct {
	Pattern     string
	Replacement string
}

// Rules is an ordered rule set. Each rule sees the output of the previous one.
type Rules []Rule

// Apply runs every rule against sql and returns the result.
func (rs Rules) Apply(sql string) string {
	for _, r := range rs {
		if r.Pattern == "" || !strings.Contains(sql, r.Pattern) {
			continue
		}
		sql = strings.ReplaceAll(sql, r.Pattern, r.Replacement)
	}
	return sql
}

// Matches reports whether any rule would change sql.
func (rs Rules) Matches(sql string) bool {
	for _, r := range rs {
		if r.Pattern != "" && strings.Contains(sql, r.Pattern) {
			return true
		}
	}
	return false
}

// Concat returns a new rule set with more appended after rs.
func (rs Rules) Concat(more ...Rule) Rules {
	out := make(Rules, 0, len(rs)+len(more))
	out = append(out, rs...)
	return append(out, more...)
}

// FunctionRename builds rules that rename a SQL function in both lower and
// upper case. Only calls preceded by a space are matched, so identifiers
// that merely end with the function name are left alone.
func FunctionRename(from, to string) Rules {
	return Rules{
		{Pattern: " " + strings.ToLower(from) + "(", Replacement: " " + strings.ToLower(to) + "("},
		{Pattern: " " + strings.ToUpper(from) + "(", Replacement: " " + strings.ToUpper(to) + "("},
	}
}
