// Package utils holds small helpers shared by the engine and its callers.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// MapToStruct decodes a column-name to value mapping into a new T through its
// JSON field tags. T must be a struct or a pointer to a struct.
//
// Example:
//
//	type User struct {
//		ID   int64  `json:"id"`
//		Name string `json:"first_name"`
//	}
//	user, err := MapToStruct[User](map[string]any{"id": int64(7), "first_name": "Ann"})
func MapToStruct[T any, M ~map[string]any](input M) (T, error) {
	var zero T

	if input == nil {
		return zero, fmt.Errorf("MapToStruct: input map cannot be nil")
	}

	typ := reflect.TypeOf(zero)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("MapToStruct: generic type T must be a struct type (or pointer to struct), got %v", typ)
	}

	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to marshal input map to JSON: %w", err)
	}

	var result T
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to unmarshal JSON to target struct: %w", err)
	}
	return result, nil
}

// MapsToStructs decodes every row with MapToStruct. It stops at the first row
// that cannot be decoded and reports its index.
func MapsToStructs[T any, M ~map[string]any](rows []M) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := MapToStruct[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
