// Package columns defines the column whitelist used to translate caller-facing
// column keys into the raw SQL expressions that are allowed to reach a query.
package columns

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Column describes one queryable field. It is immutable once constructed.
type Column struct {
	label      string
	raw        string
	filterable bool
	sortable   bool
}

// NewColumn creates a column. raw is the SQL expression used in place of the
// caller-supplied key, e.g. "u.first_name" or "COALESCE(o.total, 0)".
func NewColumn(label, raw string, filterable, sortable bool) *Column {
	return &Column{
		label:      label,
		raw:        raw,
		filterable: filterable,
		sortable:   sortable,
	}
}

// Label returns the human-readable label.
func (c *Column) Label() string {
	return c.label
}

// SQL returns the raw SQL expression.
func (c *Column) SQL() string {
	return c.raw
}

// IsFilterable reports whether the column may appear in a filter.
func (c *Column) IsFilterable() bool {
	return c.filterable
}

// IsSortable reports whether the column may appear in an ORDER BY.
func (c *Column) IsSortable() bool {
	return c.sortable
}

// Humanize turns a snake_case key into a label: underscores become spaces and
// the first character of each space-separated word is upper-cased, so
// "first_name" becomes "First Name" and "2nd_line" becomes "2nd Line". The
// rest of each word keeps its case.
func Humanize(key string) string {
	// A Caser keeps state, so one is built per call.
	upper := cases.Upper(language.Und)

	var b strings.Builder
	wordStart := true
	for _, r := range strings.ReplaceAll(key, "_", " ") {
		if wordStart && !unicode.IsSpace(r) {
			b.WriteString(upper.String(string(r)))
		} else {
			b.WriteRune(r)
		}
		wordStart = unicode.IsSpace(r)
	}
	return b.String()
}
