// Package pagination turns a validated page request and a column whitelist
// into a page envelope: the rows of the requested page, the total number of
// matching rows, and the metadata a client needs to render page controls.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/asaidimu/go-paginate/core/columns"
	"github.com/asaidimu/go-paginate/core/query"
	"github.com/asaidimu/go-paginate/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Whitelist errors. Each matches query.ErrValidation.
var (
	ErrUnknownColumn       = fmt.Errorf("%w: column is not known", query.ErrValidation)
	ErrColumnNotFilterable = fmt.Errorf("%w: column is not filterable", query.ErrValidation)
	ErrColumnNotSortable   = fmt.Errorf("%w: column is not sortable", query.ErrValidation)
)

// ErrInvalidCount is returned when the count query yields something that is
// not a non-negative integer.
var ErrInvalidCount = errors.New("count query returned a non-integer value")

// Envelope is the page returned to callers.
type Envelope struct {
	Data         []query.Row `json:"data" yaml:"data"`
	TotalRecords int64       `json:"total_records" yaml:"total_records"`
	CurrentPage  int         `json:"current_page" yaml:"current_page"`
	ItemsPerPage int         `json:"items_per_page" yaml:"items_per_page"`
	LastPage     int64       `json:"last_page" yaml:"last_page"`
	Headers      []string    `json:"headers" yaml:"headers"`
}

// Items decodes the rows of e into T through T's JSON field tags.
func Items[T any](e *Envelope) ([]T, error) {
	return utils.MapsToStructs[T](e.Data)
}

// LastPage returns ceil(total / perPage).
func LastPage(total int64, perPage int) int64 {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(perPage)))
}

// Pagination runs one pagination request against a QueryBuilder. It is not
// safe for concurrent use and is meant to be discarded after Paginate.
type Pagination struct {
	id         string
	builder    query.QueryBuilder
	parameters Parameters
	columns    *columns.PaginationColumns
	headers    []string
	logger     *zap.Logger
	bus        *EventBus
}

// Option configures a Pagination.
type Option func(*Pagination)

// WithParameters sets the page request. The values are clamped again so a
// zero Parameters still yields a valid request.
func WithParameters(params Parameters) Option {
	return func(p *Pagination) {
		p.parameters = NewParameters(
			params.CurrentPage(),
			params.ResultsPerPage(),
			WithSorts(params.Sorts()...),
			WithFilters(params.Filters()...),
		)
	}
}

// WithColumns enables whitelist resolution of filter and sort columns.
func WithColumns(cols *columns.PaginationColumns) Option {
	return func(p *Pagination) {
		p.columns = cols
	}
}

// WithHeaders sets explicit headers. They are never replaced by derived ones.
func WithHeaders(headers ...string) Option {
	return func(p *Pagination) {
		p.headers = headers
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pagination) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus *EventBus) Option {
	return func(p *Pagination) {
		p.bus = bus
	}
}

// New creates a Pagination that owns builder for the duration of one request.
func New(builder query.QueryBuilder, opts ...Option) *Pagination {
	p := &Pagination{
		id:         uuid.New().String(),
		builder:    builder,
		parameters: DefaultParameters(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("pagination_id", p.id))
	return p
}

// ID identifies this request in logs and events.
func (p *Pagination) ID() string {
	return p.id
}

// Request returns the page request.
func (p *Pagination) Request() Parameters {
	return p.parameters
}

// ColumnsMap returns the whitelist, or nil when none is configured.
func (p *Pagination) ColumnsMap() *columns.PaginationColumns {
	return p.columns
}

// Headers returns the explicit or derived headers.
func (p *Pagination) Headers() []string {
	return p.headers
}

// AddFilter adds a filter on column. With a whitelist configured, column must
// be a known, filterable key and the column's raw SQL is used in its place.
func (p *Pagination) AddFilter(searchTerm any, condition query.Condition, column string, operation query.Operation) error {
	subject := column
	if p.columns != nil {
		c, err := p.resolve(column)
		if err != nil {
			return err
		}
		if !c.IsFilterable() {
			return query.NewValidationError("column", column, ErrColumnNotFilterable)
		}
		subject = c.SQL()
	}
	return p.builder.AddFilter(searchTerm, condition, subject, operation)
}

// AddOrder adds an ORDER BY on column. With a whitelist configured, column must
// be a known, sortable key and the column's raw SQL is used in its place.
func (p *Pagination) AddOrder(column string, direction string) error {
	subject := column
	if p.columns != nil {
		c, err := p.resolve(column)
		if err != nil {
			return err
		}
		if !c.IsSortable() {
			return query.NewValidationError("column", column, ErrColumnNotSortable)
		}
		subject = c.SQL()
	}
	return p.builder.AddOrder(subject, direction)
}

func (p *Pagination) resolve(column string) (*columns.Column, error) {
	c := p.columns.Get(column)
	if c == nil {
		return nil, query.NewValidationError("column", column, ErrUnknownColumn)
	}
	return c, nil
}

// Apply adds the filters and sorts carried by the request parameters, in
// order. It stops at the first rejected entry.
func (p *Pagination) Apply() error {
	for _, f := range p.parameters.Filters() {
		if err := p.AddFilter(f.Value, f.Condition, f.Column, f.Operation); err != nil {
			return err
		}
	}
	for _, s := range p.parameters.Sorts() {
		if err := p.AddOrder(s.Column, s.Direction); err != nil {
			return err
		}
	}
	return nil
}

// Paginate fetches the requested page and the total count of rows matching
// the same filters, derives headers, and assembles the envelope.
func (p *Pagination) Paginate(ctx context.Context) (*Envelope, error) {
	startTime := time.Now()
	p.emit(p.newEvent(PaginateStart, time.Time{}))

	result, total, err := Fetch(ctx, p.builder, p.parameters)
	if err != nil {
		return nil, p.fail(startTime, err)
	}

	rows, err := result.Associative()
	if err != nil {
		return nil, p.fail(startTime, fmt.Errorf("failed to read page rows: %w", err))
	}
	p.setHeaders(result.Columns(), rows)

	envelope := &Envelope{
		Data:         rows,
		TotalRecords: total,
		CurrentPage:  p.parameters.CurrentPage(),
		ItemsPerPage: p.parameters.ResultsPerPage(),
		LastPage:     LastPage(total, p.parameters.ResultsPerPage()),
		Headers:      p.headers,
	}
	if envelope.Headers == nil {
		envelope.Headers = []string{}
	}

	p.logger.Debug("Paginated query",
		zap.Int("page", envelope.CurrentPage),
		zap.Int("per_page", envelope.ItemsPerPage),
		zap.Int("rows", len(rows)),
		zap.Int64("total_records", total),
	)

	event := p.newEvent(PaginateSuccess, startTime)
	event.TotalRecords = &total
	p.emit(event)

	return envelope, nil
}

// fail logs err and publishes PaginateFailed. It returns err unchanged.
func (p *Pagination) fail(startTime time.Time, err error) error {
	p.logger.Error("Pagination failed", zap.Error(err))
	event := p.newEvent(PaginateFailed, startTime)
	msg := err.Error()
	event.Error = &msg
	p.emit(event)
	return err
}

// Fetch runs the two-phase protocol on a builder that already carries its
// filters. Phase one fetches the limited page. Phase two reuses the same
// filters, drops the projection, orders and limit, and counts. The builder is
// left in count mode afterwards.
func Fetch(ctx context.Context, builder query.QueryBuilder, params Parameters) (query.QueryResult, int64, error) {
	page, err := FetchPage(ctx, builder, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := FetchTotal(ctx, builder)
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

// FetchPage limits the builder to the requested page and executes it.
func FetchPage(ctx context.Context, builder query.QueryBuilder, params Parameters) (query.QueryResult, error) {
	builder.SetLimit(params.Offset(), params.ResultsPerPage())
	result, err := builder.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return result, nil
}

// FetchTotal switches the builder to a count over the accumulated filters and
// executes it.
func FetchTotal(ctx context.Context, builder query.QueryBuilder) (int64, error) {
	builder.ResetColumns()
	builder.Count()
	builder.ResetOrders()
	builder.RemoveLimit()

	result, err := builder.Execute(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch total: %w", err)
	}
	value, err := result.One()
	if err != nil {
		return 0, fmt.Errorf("failed to read total: %w", err)
	}
	total, ok := query.ToInt64(value)
	if !ok || total < 0 {
		return 0, fmt.Errorf("%w: %v (%T)", ErrInvalidCount, value, value)
	}
	return total, nil
}

// setHeaders derives headers from the first row unless headers were given
// explicitly or there are no rows.
func (p *Pagination) setHeaders(cols []string, rows []query.Row) {
	if len(p.headers) > 0 || len(rows) == 0 {
		return
	}
	p.headers = HeadersFromRow(cols, rows[0])
}

// HeadersFromRow humanizes the keys of row. Keys are taken in the order of
// cols; keys missing from cols follow in lexical order.
func HeadersFromRow(cols []string, row query.Row) []string {
	seen := make(map[string]struct{}, len(row))
	keys := make([]string, 0, len(row))
	for _, c := range cols {
		if _, ok := row[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		keys = append(keys, c)
	}

	var rest []string
	for k := range row {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	headers := make([]string, len(keys))
	for i, k := range keys {
		headers[i] = columns.Humanize(k)
	}
	return headers
}
