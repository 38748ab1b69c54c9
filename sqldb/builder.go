// Package sqldb is a QueryBuilder for plain database/sql connections. It renders
// the accumulated filter and order state into a single parameterized SELECT and
// runs it through a *sql.DB or *sql.Tx.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/asaidimu/go-paginate/core/query"
	"go.uber.org/zap"
)

// Runner abstracts the query method shared by *sql.DB, *sql.Tx and *sql.Conn,
// so a builder can run inside or outside a transaction.
type Runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Builder renders and executes a SELECT over a fixed FROM clause.
type Builder struct {
	query.Clauses

	db      Runner
	from    string
	columns []string
	count   bool
	limit   int
	offset  int
	dialect Dialect
	logger  *zap.Logger
}

var _ query.QueryBuilder = (*Builder)(nil)

// Option configures a Builder.
type Option func(*Builder)

// WithColumns sets the projection. Each entry is a raw SQL expression, aliased
// by the caller if needed. An empty projection selects *.
func WithColumns(columns ...string) Option {
	return func(b *Builder) {
		b.columns = append([]string(nil), columns...)
	}
}

// WithDialect sets the placeholder and quoting style. Defaults to SQLiteDialect.
func WithDialect(d Dialect) Option {
	return func(b *Builder) {
		if d != nil {
			b.dialect = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a builder selecting from the raw FROM clause from, which may
// include joins. from is trusted configuration and is never escaped.
func New(db Runner, from string, opts ...Option) *Builder {
	b := &Builder{
		db:      db,
		from:    from,
		limit:   -1,
		dialect: SQLiteDialect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewTable creates a builder over a single table, quoting its name with the
// builder's dialect.
func NewTable(db Runner, table string, opts ...Option) *Builder {
	b := New(db, "", opts...)
	b.from = b.dialect.QuoteIdentifier(table)
	return b
}

// DB returns the runner the builder executes against.
func (b *Builder) DB() Runner {
	return b.db
}

// Query returns the FROM clause.
func (b *Builder) Query() string {
	return b.from
}

// ResetColumns drops the projection and count mode.
func (b *Builder) ResetColumns() {
	b.columns = nil
	b.count = false
}

// Count switches the projection to count(*).
func (b *Builder) Count() {
	b.count = true
}

// SetLimit bounds the query to size rows starting at offset.
func (b *Builder) SetLimit(offset, size int) {
	b.offset = max(offset, 0)
	b.limit = max(size, 0)
}

// RemoveLimit drops LIMIT and OFFSET.
func (b *Builder) RemoveLimit() {
	b.limit = -1
	b.offset = 0
}

// SQL renders the current state into a query and its bound parameters.
func (b *Builder) SQL() (string, []any) {
	var params []any

	var sb strings.Builder
	sb.WriteString("SELECT ")
	switch {
	case b.count:
		sb.WriteString("count(*)")
	case len(b.columns) > 0:
		sb.WriteString(strings.Join(b.columns, ", "))
	default:
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)

	where, ok := query.Fold(b.Filters(),
		func(_ int, f query.FilterClause) string {
			params = append(params, f.SearchTerm)
			return fmt.Sprintf("%s %s %s", f.Column, f.Condition, b.dialect.Placeholder(len(params)))
		},
		func(lhs, rhs string) string { return "(" + lhs + ") AND " + rhs },
		func(lhs, rhs string) string { return "(" + lhs + ") OR " + rhs },
	)
	if ok {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if orders := b.Orders(); len(orders) > 0 {
		terms := make([]string, len(orders))
		for i, o := range orders {
			terms[i] = o.Column + " " + string(o.Direction)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if b.limit > -1 {
		sb.WriteString(" LIMIT " + strconv.Itoa(b.limit))
		sb.WriteString(" OFFSET " + strconv.Itoa(b.offset))
	}

	return sb.String(), params
}

// Execute renders and runs the query, reading every row before returning.
// Filters and orders are kept.
func (b *Builder) Execute(ctx context.Context) (query.QueryResult, error) {
	sqlQuery, params := b.SQL()
	b.logger.Debug("Executing SQL SELECT", zap.String("sql", sqlQuery), zap.Any("params", params))

	rows, err := b.db.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		b.logger.Error("Failed to execute SELECT query", zap.Error(err), zap.String("sql", sqlQuery))
		return nil, fmt.Errorf("failed to execute SELECT query: %w", err)
	}
	defer rows.Close()

	result, err := query.ScanRows(rows)
	if err != nil {
		b.logger.Error("Failed to read SELECT results", zap.Error(err), zap.String("sql", sqlQuery))
		return nil, err
	}
	return result, nil
}
