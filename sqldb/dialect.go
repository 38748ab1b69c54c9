package sqldb

import (
	"strconv"
	"strings"
)

// Dialect captures the bits of SQL syntax that differ between drivers.
type Dialect interface {
	// Placeholder returns the bind marker for the i-th parameter, 1-based.
	Placeholder(i int) string
	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(s string) string
}

type questionDialect struct {
	quote string
}

func (d questionDialect) Placeholder(int) string {
	return "?"
}

func (d questionDialect) QuoteIdentifier(s string) string {
	return d.quote + strings.ReplaceAll(s, d.quote, d.quote+d.quote) + d.quote
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}

func (postgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var (
	// SQLiteDialect uses ? placeholders and double-quoted identifiers.
	SQLiteDialect Dialect = questionDialect{quote: `"`}
	// MySQLDialect uses ? placeholders and backtick-quoted identifiers.
	MySQLDialect Dialect = questionDialect{quote: "`"}
	// PostgresDialect uses numbered $n placeholders.
	PostgresDialect Dialect = postgresDialect{}
)
