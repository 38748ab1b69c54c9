package columns

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Collection maps logical column keys to columns. It is populated once at
// configuration time and only read afterwards.
type Collection struct {
	columns map[string]*Column
}

// NewCollection creates a collection populated through SetColumns.
func NewCollection(columns map[string]*Column) *Collection {
	c := &Collection{}
	c.SetColumns(columns)
	return c
}

// SetColumns adds the given columns. Entries with an empty or numeric key, or a
// nil column, are skipped: keys must be names, never positions.
func (c *Collection) SetColumns(columns map[string]*Column) {
	if c.columns == nil {
		c.columns = make(map[string]*Column, len(columns))
	}
	for key, column := range columns {
		if column == nil || !isNameKey(key) {
			continue
		}
		c.columns[key] = column
	}
}

func isNameKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	f, err := strconv.ParseFloat(key, 64)
	return err != nil || math.IsNaN(f) || math.IsInf(f, 0)
}

// Columns returns a copy of the key to column mapping.
func (c *Collection) Columns() map[string]*Column {
	out := make(map[string]*Column, len(c.columns))
	for k, v := range c.columns {
		out[k] = v
	}
	return out
}

// Keys returns the column keys in lexical order.
func (c *Collection) Keys() []string {
	keys := make([]string, 0, len(c.columns))
	for k := range c.columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Exists reports whether key is a known column.
func (c *Collection) Exists(key string) bool {
	return c.Get(key) != nil
}

// Get returns the column for key, or nil when the key is unknown.
func (c *Collection) Get(key string) *Column {
	return c.columns[key]
}

// PaginationColumns is the whitelist a pagination request is checked against.
type PaginationColumns struct {
	Collection
}

// NewPaginationColumns creates a whitelist from the given columns.
func NewPaginationColumns(columns map[string]*Column) *PaginationColumns {
	p := &PaginationColumns{}
	p.SetColumns(columns)
	return p
}

// FilterableColumns returns key to label for every filterable column.
func (p *PaginationColumns) FilterableColumns() map[string]string {
	out := map[string]string{}
	for key, column := range p.columns {
		if column.IsFilterable() {
			out[key] = column.Label()
		}
	}
	return out
}

// SortableColumns returns key to label for every sortable column.
func (p *PaginationColumns) SortableColumns() map[string]string {
	out := map[string]string{}
	for key, column := range p.columns {
		if column.IsSortable() {
			out[key] = column.Label()
		}
	}
	return out
}
