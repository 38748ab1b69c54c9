package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"item_name"`
	Price    float64 `json:"price"`
	Discount *int64  `json:"discount"`
}

type row map[string]any

func TestMapToStruct(t *testing.T) {
	got, err := MapToStruct[item](map[string]any{
		"id": int64(7), "item_name": "Widget", "price": 2.5, "discount": nil, "ignored": true,
	})
	require.NoError(t, err)
	assert.Equal(t, item{ID: 7, Name: "Widget", Price: 2.5}, got)

	ptr, err := MapToStruct[*item](row{"id": 8})
	require.NoError(t, err)
	assert.Equal(t, int64(8), ptr.ID)
}

func TestMapToStruct_Errors(t *testing.T) {
	_, err := MapToStruct[item](map[string]any(nil))
	assert.Error(t, err)

	_, err = MapToStruct[int](map[string]any{"id": 1})
	assert.Error(t, err)

	_, err = MapToStruct[item](map[string]any{"id": "seven"})
	assert.Error(t, err)

	_, err = MapToStruct[item](map[string]any{"id": make(chan int)})
	assert.Error(t, err)
}

func TestMapsToStructs(t *testing.T) {
	items, err := MapsToStructs[item]([]row{{"id": 1}, {"id": 2}})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(2), items[1].ID)

	empty, err := MapsToStructs[item]([]row{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = MapsToStructs[item]([]row{{"id": 1}, {"id": "x"}})
	assert.ErrorContains(t, err, "row 1")
}
