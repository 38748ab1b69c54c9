package columns

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidColumn is returned when a whitelist file declares a column without
// a raw SQL expression.
var ErrInvalidColumn = errors.New("invalid column definition")

// ColumnDefinition is the serialized form of a Column.
type ColumnDefinition struct {
	Label      string `yaml:"label" json:"label"`
	Raw        string `yaml:"raw" json:"raw"`
	Filterable bool   `yaml:"filterable" json:"filterable"`
	Sortable   bool   `yaml:"sortable" json:"sortable"`
}

// Definition is the serialized form of a whitelist:
//
//	columns:
//	  first_name:
//	    label: First name
//	    raw: u.first_name
//	    filterable: true
//	    sortable: true
type Definition struct {
	Columns map[string]ColumnDefinition `yaml:"columns" json:"columns"`
}

// Build validates the definition and creates the whitelist. A missing label
// defaults to the humanized key.
func (d Definition) Build() (*PaginationColumns, error) {
	cols := make(map[string]*Column, len(d.Columns))
	for key, def := range d.Columns {
		if strings.TrimSpace(def.Raw) == "" {
			return nil, fmt.Errorf("%w: column '%s' has no raw expression", ErrInvalidColumn, key)
		}
		label := def.Label
		if label == "" {
			label = Humanize(key)
		}
		cols[key] = NewColumn(label, def.Raw, def.Filterable, def.Sortable)
	}
	return NewPaginationColumns(cols), nil
}

// Load decodes a YAML whitelist definition.
func Load(r io.Reader) (*PaginationColumns, error) {
	var def Definition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return NewPaginationColumns(nil), nil
		}
		return nil, fmt.Errorf("failed to decode column definition: %w", err)
	}
	return def.Build()
}

// LoadFile reads a YAML whitelist definition from path.
func LoadFile(path string) (*PaginationColumns, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open column definition: %w", err)
	}
	defer f.Close()
	return Load(f)
}
