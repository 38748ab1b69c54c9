package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/asaidimu/go-paginate/core/query"
)

// Page size limits and defaults.
const (
	DefaultPage           = 1
	DefaultResultsPerPage = 10
	MinResultsPerPage     = 10
	MaxResultsPerPage     = 250
)

// Query string keys read by ParametersFromValues.
const (
	QueryParamPage    = "page"
	QueryParamPerPage = "per_page"
	QueryParamSize    = "size"
	QueryParamSort    = "sort"
	QueryParamFilter  = "filter"
)

// Sort is a requested ORDER BY on a logical column key.
type Sort struct {
	Column    string `json:"column" yaml:"column"`
	Direction string `json:"direction" yaml:"direction"`
}

// Filter is a requested filter on a logical column key.
type Filter struct {
	Column    string          `json:"column" yaml:"column"`
	Condition query.Condition `json:"condition" yaml:"condition"`
	Value     string          `json:"value" yaml:"value"`
	Operation query.Operation `json:"operation,omitempty" yaml:"operation,omitempty"`
}

// Parameters is a validated pagination request. Values are clamped when the
// Parameters are built and cannot be changed afterwards.
type Parameters struct {
	currentPage    int
	resultsPerPage int
	sorts          []Sort
	filters        []Filter
}

// ParameterOption configures optional request payloads.
type ParameterOption func(*Parameters)

// WithSorts attaches requested sorts.
func WithSorts(sorts ...Sort) ParameterOption {
	return func(p *Parameters) {
		p.sorts = append(p.sorts, sorts...)
	}
}

// WithFilters attaches requested filters.
func WithFilters(filters ...Filter) ParameterOption {
	return func(p *Parameters) {
		p.filters = append(p.filters, filters...)
	}
}

// NewParameters clamps page to at least 1 and perPage to
// [MinResultsPerPage, MaxResultsPerPage].
func NewParameters(page, perPage int, opts ...ParameterOption) Parameters {
	p := Parameters{
		currentPage:    max(page, DefaultPage),
		resultsPerPage: min(max(perPage, MinResultsPerPage), MaxResultsPerPage),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// DefaultParameters returns the first page at the default size.
func DefaultParameters() Parameters {
	return NewParameters(DefaultPage, DefaultResultsPerPage)
}

// ParametersFromValues reads a request's query string:
//
//	?page=2&per_page=25&sort=created_at:desc&filter=email:LIKE:%25@example.com&filter=age:>=:18:AND
//
// Unparsable numbers fall back to the defaults and malformed sort or filter
// entries are dropped. Nothing here is trusted: column keys are resolved
// against the whitelist and conditions are validated when applied.
func ParametersFromValues(values url.Values) Parameters {
	page := atoiOr(values.Get(QueryParamPage), DefaultPage)

	size := values.Get(QueryParamPerPage)
	if size == "" {
		size = values.Get(QueryParamSize)
	}
	perPage := atoiOr(size, DefaultResultsPerPage)

	var sorts []Sort
	for _, raw := range values[QueryParamSort] {
		if s, ok := parseSort(raw); ok {
			sorts = append(sorts, s)
		}
	}

	var filters []Filter
	for _, raw := range values[QueryParamFilter] {
		if f, ok := parseFilter(raw); ok {
			filters = append(filters, f)
		}
	}

	return NewParameters(page, perPage, WithSorts(sorts...), WithFilters(filters...))
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// parseSort reads "column" or "column:direction".
func parseSort(raw string) (Sort, bool) {
	column, direction, _ := strings.Cut(raw, ":")
	column = strings.TrimSpace(column)
	if column == "" {
		return Sort{}, false
	}
	return Sort{Column: column, Direction: strings.TrimSpace(direction)}, true
}

// parseFilter reads "column:condition:value" with an optional trailing ":AND"
// or ":OR". The value may itself contain colons; a last segment that is not
// exactly AND or OR stays part of the value.
func parseFilter(raw string) (Filter, bool) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return Filter{}, false
	}
	f := Filter{
		Column:    strings.TrimSpace(parts[0]),
		Condition: query.Condition(parts[1]),
		Value:     parts[2],
	}
	if i := strings.LastIndex(f.Value, ":"); i >= 0 {
		op := query.Operation(f.Value[i+1:])
		if op.IsJoiner() {
			f.Operation = op
			f.Value = f.Value[:i]
		}
	}
	return f, true
}

// CurrentPage returns the 1-based page number.
func (p Parameters) CurrentPage() int {
	return p.currentPage
}

// ResultsPerPage returns the page size.
func (p Parameters) ResultsPerPage() int {
	return p.resultsPerPage
}

// Offset returns the number of rows before the current page.
func (p Parameters) Offset() int {
	return (p.currentPage - 1) * p.resultsPerPage
}

// Sorts returns the requested sorts.
func (p Parameters) Sorts() []Sort {
	return append([]Sort(nil), p.sorts...)
}

// Filters returns the requested filters.
func (p Parameters) Filters() []Filter {
	return append([]Filter(nil), p.filters...)
}
