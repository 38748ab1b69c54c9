package query

import (
	"database/sql"
	"fmt"
)

// Result is a fully materialized QueryResult. Both bundled adapters scan their
// rows into a Result before returning from Execute, so no driver resources
// outlive the call.
type Result struct {
	columns []string
	rows    []Row
}

var _ QueryResult = (*Result)(nil)

// NewResult builds a Result from already-read rows.
func NewResult(columns []string, rows []Row) *Result {
	if rows == nil {
		rows = []Row{}
	}
	return &Result{columns: columns, rows: rows}
}

// Associative returns every row.
func (r *Result) Associative() ([]Row, error) {
	return r.rows, nil
}

// One returns the first column of the first row.
func (r *Result) One() (any, error) {
	if len(r.rows) == 0 || len(r.columns) == 0 {
		return nil, ErrNoRows
	}
	return r.rows[0][r.columns[0]], nil
}

// Columns returns the column names in driver order.
func (r *Result) Columns() []string {
	return r.columns
}

// ScanRows reads all rows into a Result. Byte slices are converted to strings
// since text columns are what a pagination envelope carries; the caller still
// owns rows and must close it.
func ScanRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return NewResult(columns, results), nil
}
