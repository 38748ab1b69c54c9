package query

import (
	"strings"
)

// Clauses holds the filter and order state shared by every QueryBuilder
// implementation. Adapters embed it and only add rendering and execution.
type Clauses struct {
	filters []FilterClause
	orders  []OrderClause
}

// AddFilter validates and appends a filter clause. The operation of the first
// clause is forced to OperationNone; later clauses must use AND or OR exactly
// as spelled. A rejected clause leaves the accumulated state untouched.
func (c *Clauses) AddFilter(value any, condition Condition, subject string, operation Operation) error {
	if len(c.filters) == 0 {
		operation = OperationNone
	}

	if err := c.validateFilter(condition, subject, operation); err != nil {
		return err
	}

	c.filters = append(c.filters, FilterClause{
		SearchTerm: value,
		Condition:  condition,
		Column:     subject,
		Operation:  operation,
	})
	return nil
}

func (c *Clauses) validateFilter(condition Condition, subject string, operation Operation) error {
	if !condition.IsSupported() {
		return NewValidationError("condition", condition, ErrUnsupportedCondition)
	}
	if strings.TrimSpace(subject) == "" {
		return NewValidationError("subject", subject, ErrEmptySubject)
	}
	if len(c.filters) > 0 && !operation.IsJoiner() {
		return NewValidationError("operation", operation, ErrUnsupportedOperation)
	}
	return nil
}

// AddOrder validates and appends an order clause. The direction is
// upper-cased before validation and defaults to ASC when empty. Surrounding
// whitespace is not stripped.
func (c *Clauses) AddOrder(subject string, direction string) error {
	dir := Direction(strings.ToUpper(direction))
	if dir == "" {
		dir = DirectionAsc
	}
	if dir != DirectionAsc && dir != DirectionDesc {
		return NewValidationError("order", direction, ErrUnsupportedDirection)
	}
	if strings.TrimSpace(subject) == "" {
		return NewValidationError("subject", subject, ErrEmptySubject)
	}
	c.orders = append(c.orders, OrderClause{Column: subject, Direction: dir})
	return nil
}

// ResetFilters removes all filters.
func (c *Clauses) ResetFilters() {
	c.filters = nil
}

// ResetOrders removes all orders.
func (c *Clauses) ResetOrders() {
	c.orders = nil
}

// Filters returns a copy of the accumulated filters.
func (c *Clauses) Filters() []FilterClause {
	out := make([]FilterClause, len(c.filters))
	copy(out, c.filters)
	return out
}

// Orders returns a copy of the accumulated orders.
func (c *Clauses) Orders() []OrderClause {
	out := make([]OrderClause, len(c.orders))
	copy(out, c.orders)
	return out
}

// Fold reduces the filter chain left to right. Clause i (i > 0) is joined to
// the conjunction built from clauses 0..i-1 with its own operation; there is
// no precedence grouping. It returns false when there are no filters.
func Fold[T any](filters []FilterClause, render func(i int, f FilterClause) T, and, or func(lhs, rhs T) T) (T, bool) {
	var acc T
	if len(filters) == 0 {
		return acc, false
	}
	acc = render(0, filters[0])
	for i := 1; i < len(filters); i++ {
		rhs := render(i, filters[i])
		switch filters[i].Operation {
		case OperationOr:
			acc = or(acc, rhs)
		default:
			acc = and(acc, rhs)
		}
	}
	return acc, true
}
