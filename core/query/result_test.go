package query

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_One(t *testing.T) {
	r := NewResult([]string{"count(*)"}, []Row{{"count(*)": int64(25)}})
	v, err := r.One()
	require.NoError(t, err)
	assert.Equal(t, int64(25), v)

	_, err = NewResult([]string{"count(*)"}, nil).One()
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestResult_AssociativeNeverNil(t *testing.T) {
	rows, err := NewResult(nil, nil).Associative()
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestScanRows(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE people (last_name TEXT, first_name TEXT, age INTEGER, avatar BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO people VALUES ('Lovelace', 'Ada', 36, x'6869'), ('Hopper', 'Grace', NULL, NULL)`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT last_name, first_name, age, avatar FROM people ORDER BY age DESC`)
	require.NoError(t, err)
	defer rows.Close()

	result, err := ScanRows(rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"last_name", "first_name", "age", "avatar"}, result.Columns())
	data, err := result.Associative()
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, Row{"last_name": "Lovelace", "first_name": "Ada", "age": int64(36), "avatar": "hi"}, data[0])
	assert.Nil(t, data[1]["age"])

	first, err := result.One()
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", first)
}
