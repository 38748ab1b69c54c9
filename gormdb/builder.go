// Package gormdb is a QueryBuilder over gorm. The caller scopes the *gorm.DB
// (Table, Model, Joins, Scopes); the builder only contributes the projection,
// the filter chain, ordering and limits, rendered as gorm clauses.
package gormdb

import (
	"context"
	"fmt"

	"github.com/asaidimu/go-paginate/core/query"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CountColumn is the result column carrying the scalar of a count query.
const CountColumn = "count"

// Builder renders the accumulated state onto a fresh session of db.
type Builder struct {
	query.Clauses

	db      *gorm.DB
	columns []string
	count   bool
	limit   int
	offset  int
	logger  *zap.Logger
}

var _ query.QueryBuilder = (*Builder)(nil)

// Option configures a Builder.
type Option func(*Builder)

// WithColumns sets the projection as raw SQL expressions.
func WithColumns(columns ...string) Option {
	return func(b *Builder) {
		b.columns = append([]string(nil), columns...)
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

// New creates a builder over db. db is wrapped in a new session so the
// clauses added on every Execute never leak into it.
func New(db *gorm.DB, opts ...Option) *Builder {
	b := &Builder{
		db:     db.Session(&gorm.Session{}),
		limit:  -1,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DB returns the scoped gorm session the builder starts from.
func (b *Builder) DB() *gorm.DB {
	return b.db
}

// Query returns a session with the current state applied, ready for any gorm
// finisher.
func (b *Builder) Query(ctx context.Context) *gorm.DB {
	return b.apply(b.db.WithContext(ctx))
}

// ResetColumns drops the projection and count mode.
func (b *Builder) ResetColumns() {
	b.columns = nil
	b.count = false
}

// Count switches Execute to a scalar count.
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

// SQL renders the current state with gorm's dry run. Bound values are inlined
// by the dialector, so the output is for inspection only.
func (b *Builder) SQL() string {
	return b.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		tx = b.apply(tx)
		if b.count {
			var n int64
			return tx.Count(&n)
		}
		return tx.Find(&[]map[string]any{})
	})
}

// Where folds the filter chain into a single gorm expression. It returns nil
// when there are no filters.
func (b *Builder) Where() clause.Expression {
	expr, ok := query.Fold(b.Filters(),
		func(_ int, f query.FilterClause) clause.Expression {
			return clause.Expr{
				SQL:  fmt.Sprintf("%s %s ?", f.Column, f.Condition),
				Vars: []any{f.SearchTerm},
			}
		},
		func(lhs, rhs clause.Expression) clause.Expression { return clause.And(lhs, rhs) },
		func(lhs, rhs clause.Expression) clause.Expression { return clause.Or(lhs, rhs) },
	)
	if !ok {
		return nil
	}
	return expr
}

func (b *Builder) apply(tx *gorm.DB) *gorm.DB {
	if !b.count && len(b.columns) > 0 {
		cols := make([]clause.Column, len(b.columns))
		for i, c := range b.columns {
			cols[i] = clause.Column{Name: c, Raw: true}
		}
		tx = tx.Clauses(clause.Select{Columns: cols})
	}

	if where := b.Where(); where != nil {
		tx = tx.Clauses(clause.Where{Exprs: []clause.Expression{where}})
	}

	for _, o := range b.Orders() {
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: o.Column, Raw: true},
			Desc:   o.Direction == query.DirectionDesc,
		})
	}

	if b.limit > -1 {
		limit := b.limit
		tx = tx.Clauses(clause.Limit{Limit: &limit, Offset: b.offset})
	}
	return tx
}

// Execute runs the query. In count mode the result has a single row with the
// CountColumn scalar; otherwise every row is read before returning.
func (b *Builder) Execute(ctx context.Context) (query.QueryResult, error) {
	tx := b.Query(ctx)
	b.logger.Debug("Executing gorm query",
		zap.Bool("count", b.count),
		zap.Int("filters", len(b.Filters())),
		zap.Int("orders", len(b.Orders())),
		zap.Int("limit", b.limit),
		zap.Int("offset", b.offset),
	)

	if b.count {
		var total int64
		if err := tx.Count(&total).Error; err != nil {
			b.logger.Error("Failed to execute count query", zap.Error(err))
			return nil, fmt.Errorf("failed to execute count query: %w", err)
		}
		return query.NewResult([]string{CountColumn}, []query.Row{{CountColumn: total}}), nil
	}

	rows, err := tx.Rows()
	if err != nil {
		b.logger.Error("Failed to execute SELECT query", zap.Error(err))
		return nil, fmt.Errorf("failed to execute SELECT query: %w", err)
	}
	defer rows.Close()

	result, err := query.ScanRows(rows)
	if err != nil {
		b.logger.Error("Failed to read SELECT results", zap.Error(err))
		return nil, err
	}
	return result, nil
}
