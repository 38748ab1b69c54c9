// Package query defines the contract between the pagination engine and the
// libraries that actually build and run SQL. Each backend provides one
// QueryBuilder implementation; the pagination orchestrator only ever talks to
// these interfaces.
package query

import (
	"context"
)

// QueryBuilder accumulates filter and order state for a single SELECT-shaped
// query and renders it into the underlying library's native clauses when
// Execute is called.
//
// Accumulated filters and orders survive Execute. They are only cleared by
// ResetFilters and ResetOrders, which lets a caller fetch a page and then
// re-run the same filtered query as a count.
type QueryBuilder interface {
	// AddFilter appends a filter clause. The operation of the first clause in a
	// chain is always ignored; every later clause must be joined with AND or OR.
	AddFilter(value any, condition Condition, subject string, operation Operation) error

	// AddOrder appends an ORDER BY term. The direction is case-insensitive and
	// defaults to ASC when empty.
	AddOrder(subject string, direction string) error

	// ResetFilters removes all accumulated filters.
	ResetFilters()

	// ResetOrders removes all accumulated orders.
	ResetOrders()

	// ResetColumns clears the result-column projection.
	ResetColumns()

	// Count switches the projection to a scalar row count.
	Count()

	// SetLimit bounds the query to size rows starting at offset.
	SetLimit(offset, size int)

	// RemoveLimit restores the query to an unbounded state.
	RemoveLimit()

	// Execute renders the accumulated state and runs the query.
	Execute(ctx context.Context) (QueryResult, error)

	// Filters returns a copy of the accumulated filter clauses.
	Filters() []FilterClause

	// Orders returns a copy of the accumulated order clauses.
	Orders() []OrderClause
}

// QueryResult exposes an executed query's result set.
type QueryResult interface {
	// Associative returns every row as a column-name to value mapping.
	Associative() ([]Row, error)

	// One returns the first column of the first row.
	One() (any, error)

	// Columns returns the column names in the order the driver reported them.
	Columns() []string
}
