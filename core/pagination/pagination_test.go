package pagination

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/asaidimu/go-paginate/core/columns"
	"github.com/asaidimu/go-paginate/core/query"
	"github.com/asaidimu/go-paginate/sqldb"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeBuilder records the calls the orchestrator makes and replays canned results.
type fakeBuilder struct {
	query.Clauses

	calls   []string
	results []query.QueryResult
	errs    []error
	execs   int
}

func (f *fakeBuilder) ResetColumns() { f.calls = append(f.calls, "ResetColumns") }
func (f *fakeBuilder) Count()        { f.calls = append(f.calls, "Count") }
func (f *fakeBuilder) RemoveLimit()  { f.calls = append(f.calls, "RemoveLimit") }

func (f *fakeBuilder) ResetOrders() {
	f.calls = append(f.calls, "ResetOrders")
	f.Clauses.ResetOrders()
}

func (f *fakeBuilder) SetLimit(offset, size int) {
	f.calls = append(f.calls, fmt.Sprintf("SetLimit(%d,%d)", offset, size))
}

func (f *fakeBuilder) Execute(context.Context) (query.QueryResult, error) {
	f.calls = append(f.calls, "Execute")
	i := f.execs
	f.execs++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.results[i], nil
}

// unreadableResult is a page whose rows cannot be decoded.
type unreadableResult struct{ err error }

func (r unreadableResult) Associative() ([]query.Row, error) { return nil, r.err }
func (r unreadableResult) One() (any, error)                 { return nil, r.err }
func (r unreadableResult) Columns() []string                 { return []string{"id"} }

func countResult(v any) query.QueryResult {
	return query.NewResult([]string{"count(*)"}, []query.Row{{"count(*)": v}})
}

func userColumns() *columns.PaginationColumns {
	return columns.NewPaginationColumns(map[string]*columns.Column{
		"name":    columns.NewColumn("Name", "u.name", true, true),
		"age":     columns.NewColumn("Age", "u.age", true, false),
		"created": columns.NewColumn("Created", "u.created_at", false, true),
		"secret":  columns.NewColumn("Secret", "u.secret", false, false),
	})
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		total    int64
		perPage  int
		expected int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{25, 10, 3},
		{101, 10, 11},
		{250, 250, 1},
		{251, 250, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.perPage), func(t *testing.T) {
			assert.Equal(t, tt.expected, LastPage(tt.total, tt.perPage))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(&fakeBuilder{})
	assert.NotEmpty(t, p.ID())
	assert.Equal(t, 1, p.Request().CurrentPage())
	assert.Equal(t, 10, p.Request().ResultsPerPage())
	assert.Nil(t, p.ColumnsMap())
	assert.Nil(t, p.Headers())

	assert.NotEqual(t, p.ID(), New(&fakeBuilder{}).ID())
}

func TestWithParameters_Reclamps(t *testing.T) {
	p := New(&fakeBuilder{}, WithParameters(Parameters{}))
	assert.Equal(t, 1, p.Request().CurrentPage())
	assert.Equal(t, MinResultsPerPage, p.Request().ResultsPerPage())

	p = New(&fakeBuilder{}, WithParameters(NewParameters(4, 1000, WithSorts(Sort{Column: "name"}))))
	assert.Equal(t, 4, p.Request().CurrentPage())
	assert.Equal(t, MaxResultsPerPage, p.Request().ResultsPerPage())
	assert.Len(t, p.Request().Sorts(), 1)
}

func TestPagination_AddFilterWhitelist(t *testing.T) {
	b := &fakeBuilder{}
	p := New(b, WithColumns(userColumns()))

	require.NoError(t, p.AddFilter("a%", query.ConditionLike, "name", query.OperationNone))
	require.NoError(t, p.AddFilter(18, query.ConditionGte, "age", query.OperationAnd))

	err := p.AddFilter(1, query.ConditionEq, "u.name", query.OperationAnd)
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.ErrorIs(t, err, query.ErrValidation)

	err = p.AddFilter(1, query.ConditionEq, "created", query.OperationAnd)
	assert.ErrorIs(t, err, ErrColumnNotFilterable)

	err = p.AddFilter(1, query.ConditionEq, "secret", query.OperationAnd)
	assert.ErrorIs(t, err, ErrColumnNotFilterable)

	err = p.AddFilter(1, "==", "name", query.OperationAnd)
	assert.ErrorIs(t, err, query.ErrUnsupportedCondition)

	filters := b.Filters()
	require.Len(t, filters, 2)
	assert.Equal(t, "u.name", filters[0].Column)
	assert.Equal(t, "u.age", filters[1].Column)
	assert.Equal(t, query.OperationAnd, filters[1].Operation)
}

func TestPagination_AddOrderWhitelist(t *testing.T) {
	b := &fakeBuilder{}
	p := New(b, WithColumns(userColumns()))

	require.NoError(t, p.AddOrder("created", "desc"))
	require.NoError(t, p.AddOrder("name", ""))

	assert.ErrorIs(t, p.AddOrder("missing", "ASC"), ErrUnknownColumn)
	assert.ErrorIs(t, p.AddOrder("age", "ASC"), ErrColumnNotSortable)
	assert.ErrorIs(t, p.AddOrder("name", "sideways"), query.ErrUnsupportedDirection)

	assert.Equal(t, []query.OrderClause{
		{Column: "u.created_at", Direction: query.DirectionDesc},
		{Column: "u.name", Direction: query.DirectionAsc},
	}, b.Orders())
}

func TestPagination_WithoutWhitelistPassesSubjectThrough(t *testing.T) {
	b := &fakeBuilder{}
	p := New(b)
	require.NoError(t, p.AddFilter(1, query.ConditionEq, "anything", query.OperationNone))
	require.NoError(t, p.AddOrder("anything", "ASC"))
	assert.Equal(t, "anything", b.Filters()[0].Column)
}

func TestPagination_Apply(t *testing.T) {
	b := &fakeBuilder{}
	params := NewParameters(1, 10,
		WithFilters(
			Filter{Column: "name", Condition: query.ConditionLike, Value: "a%"},
			Filter{Column: "age", Condition: query.ConditionGt, Value: "20", Operation: query.OperationOr},
		),
		WithSorts(Sort{Column: "created", Direction: "desc"}),
	)
	p := New(b, WithColumns(userColumns()), WithParameters(params))
	require.NoError(t, p.Apply())
	assert.Len(t, b.Filters(), 2)
	assert.Len(t, b.Orders(), 1)

	bad := New(&fakeBuilder{}, WithColumns(userColumns()), WithParameters(NewParameters(1, 10,
		WithSorts(Sort{Column: "secret"}),
	)))
	assert.ErrorIs(t, bad.Apply(), ErrColumnNotSortable)
}

func TestPagination_PaginateCallOrder(t *testing.T) {
	page := query.NewResult([]string{"user_id", "first_name"}, []query.Row{
		{"user_id": int64(21), "first_name": "Ann"},
	})
	b := &fakeBuilder{results: []query.QueryResult{page, countResult(int64(21))}}
	require.NoError(t, b.AddOrder("u.name", "ASC"))

	p := New(b, WithParameters(NewParameters(3, 10)))
	env, err := p.Paginate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SetLimit(20,10)", "Execute",
		"ResetColumns", "Count", "ResetOrders", "RemoveLimit", "Execute",
	}, b.calls)
	assert.Empty(t, b.Orders())

	assert.Equal(t, int64(21), env.TotalRecords)
	assert.Equal(t, 3, env.CurrentPage)
	assert.Equal(t, 10, env.ItemsPerPage)
	assert.Equal(t, int64(3), env.LastPage)
	assert.Equal(t, []string{"User Id", "First Name"}, env.Headers)
	assert.Equal(t, env.Headers, p.Headers())
	assert.Len(t, env.Data, 1)
}

func TestPagination_Headers(t *testing.T) {
	rows := []query.Row{{"id": int64(1), "created_at": "2024-01-01"}}

	t.Run("explicit headers win", func(t *testing.T) {
		b := &fakeBuilder{results: []query.QueryResult{
			query.NewResult([]string{"id", "created_at"}, rows), countResult(int64(1)),
		}}
		env, err := New(b, WithHeaders("Identifier", "When")).Paginate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Identifier", "When"}, env.Headers)
	})

	t.Run("empty page keeps empty headers", func(t *testing.T) {
		b := &fakeBuilder{results: []query.QueryResult{
			query.NewResult([]string{"id"}, nil), countResult(int64(0)),
		}}
		env, err := New(b).Paginate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{}, env.Headers)
		assert.Equal(t, []query.Row{}, env.Data)
		assert.Equal(t, int64(0), env.LastPage)
	})

	t.Run("unknown column order falls back to lexical", func(t *testing.T) {
		assert.Equal(t, []string{"Created At", "Id"}, HeadersFromRow(nil, rows[0]))
		assert.Equal(t, []string{"Id", "Created At"}, HeadersFromRow([]string{"id", "created_at"}, rows[0]))
	})
}

func TestPagination_CountScalarConversion(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{"int64", int64(42), 42, false},
		{"int", 42, 42, false},
		{"numeric string", "42", 42, false},
		{"bytes", []byte("42"), 42, false},
		{"whole float", float64(42), 42, false},
		{"fraction", 4.2, 0, true},
		{"text", "many", 0, true},
		{"nil", nil, 0, true},
		{"negative", int64(-1), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBuilder{results: []query.QueryResult{
				query.NewResult([]string{"id"}, nil), countResult(tt.value),
			}}
			env, err := New(b).Paginate(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCount)
				assert.Nil(t, env)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.TotalRecords)
		})
	}
}

func TestPagination_ExecutionErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("page phase", func(t *testing.T) {
		b := &fakeBuilder{errs: []error{boom}}
		_, err := New(b).Paginate(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"SetLimit(0,10)", "Execute"}, b.calls)
	})

	t.Run("count phase", func(t *testing.T) {
		b := &fakeBuilder{
			results: []query.QueryResult{query.NewResult([]string{"id"}, nil), nil},
			errs:    []error{nil, boom},
		}
		_, err := New(b).Paginate(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty count result", func(t *testing.T) {
		b := &fakeBuilder{results: []query.QueryResult{
			query.NewResult([]string{"id"}, nil), query.NewResult([]string{"count(*)"}, nil),
		}}
		_, err := New(b).Paginate(context.Background())
		assert.ErrorIs(t, err, query.ErrNoRows)
	})
}

func TestPagination_Events(t *testing.T) {
	bus, err := NewEventBus()
	require.NoError(t, err)

	received := make(chan Event, 4)
	for _, et := range []EventType{PaginateStart, PaginateSuccess, PaginateFailed} {
		unsubscribe := bus.Subscribe(string(et), func(ctx context.Context, e Event) error {
			received <- e
			return nil
		})
		defer unsubscribe()
	}

	wait := func(t *testing.T, want EventType) Event {
		t.Helper()
		for {
			select {
			case e := <-received:
				if e.Type == want {
					return e
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for %s", want)
				return Event{}
			}
		}
	}

	b := &fakeBuilder{results: []query.QueryResult{
		query.NewResult([]string{"id"}, []query.Row{{"id": int64(1)}}), countResult(int64(1)),
	}}
	p := New(b, WithEventBus(bus), WithLogger(zap.NewNop()))
	_, err = p.Paginate(context.Background())
	require.NoError(t, err)

	e := wait(t, PaginateSuccess)
	assert.Equal(t, p.ID(), e.PaginationID)
	require.NotNil(t, e.TotalRecords)
	assert.Equal(t, int64(1), *e.TotalRecords)
	assert.NotNil(t, e.Duration)

	failing := New(&fakeBuilder{errs: []error{errors.New("boom")}}, WithEventBus(bus))
	_, err = failing.Paginate(context.Background())
	require.Error(t, err)

	e = wait(t, PaginateFailed)
	assert.Equal(t, failing.ID(), e.PaginationID)
	require.NotNil(t, e.Error)
	assert.Contains(t, *e.Error, "boom")
}

func TestPagination_RowReadFailureIsReported(t *testing.T) {
	bus, err := NewEventBus()
	require.NoError(t, err)

	failed := make(chan Event, 1)
	unsubscribe := bus.Subscribe(string(PaginateFailed), func(ctx context.Context, e Event) error {
		failed <- e
		return nil
	})
	defer unsubscribe()

	core, logs := observer.New(zapcore.ErrorLevel)
	decodeErr := errors.New("corrupt row")
	b := &fakeBuilder{results: []query.QueryResult{unreadableResult{decodeErr}, countResult(int64(3))}}
	p := New(b, WithEventBus(bus), WithLogger(zap.New(core)))

	env, err := p.Paginate(context.Background())
	assert.Nil(t, env)
	assert.ErrorIs(t, err, decodeErr)

	entries := logs.FilterMessage("Pagination failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, p.ID(), entries[0].ContextMap()["pagination_id"])

	select {
	case e := <-failed:
		assert.Equal(t, p.ID(), e.PaginationID)
		require.NotNil(t, e.Error)
		assert.Contains(t, *e.Error, "corrupt row")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the failed event")
	}
}

func setupUsers(t *testing.T, n int) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, first_name TEXT NOT NULL, age INTEGER NOT NULL)`)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		_, err = db.Exec(`INSERT INTO users (id, first_name, age) VALUES (?, ?, ?)`, i, fmt.Sprintf("user%02d", i), 20+i%5)
		require.NoError(t, err)
	}
	return db
}

func TestPaginate_SQLite(t *testing.T) {
	ctx := context.Background()
	db := setupUsers(t, 25)
	cols := columns.NewPaginationColumns(map[string]*columns.Column{
		"id":         columns.NewColumn("ID", "u.id", true, true),
		"first_name": columns.NewColumn("First name", "u.first_name", true, true),
		"age":        columns.NewColumn("Age", "u.age", true, false),
	})

	tests := []struct {
		name      string
		page      int
		wantRows  int
		wantFirst int64
	}{
		{"first page", 1, 10, 1},
		{"middle page", 2, 10, 11},
		{"last page is short", 3, 5, 21},
		{"past the end", 4, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sqldb.New(db, "users u", sqldb.WithColumns("u.id AS id", "u.first_name AS first_name"))
			p := New(b, WithColumns(cols), WithParameters(NewParameters(tt.page, 10)))
			require.NoError(t, p.AddOrder("id", "asc"))

			env, err := p.Paginate(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(25), env.TotalRecords)
			assert.Equal(t, int64(3), env.LastPage)
			assert.Equal(t, tt.page, env.CurrentPage)
			require.Len(t, env.Data, tt.wantRows)
			if tt.wantRows > 0 {
				assert.Equal(t, tt.wantFirst, env.Data[0]["id"])
				assert.Equal(t, []string{"Id", "First Name"}, env.Headers)
			} else {
				assert.Equal(t, []string{}, env.Headers)
			}
		})
	}
}

func TestPaginate_SQLiteFiltersApplyToCount(t *testing.T) {
	db := setupUsers(t, 101)
	cols := columns.NewPaginationColumns(map[string]*columns.Column{
		"age":  columns.NewColumn("Age", "age", true, false),
		"name": columns.NewColumn("Name", "first_name", true, true),
	})

	b := sqldb.New(db, "users")
	p := New(b, WithColumns(cols))
	require.NoError(t, p.AddFilter(20, query.ConditionEq, "age", query.OperationNone))
	require.NoError(t, p.AddFilter("user0%", query.ConditionLike, "name", query.OperationOr))

	env, err := p.Paginate(context.Background())
	require.NoError(t, err)

	// age = 20 matches ids divisible by 5 (20 of them); user0% adds ids 1..9
	// minus 5 which is already counted.
	assert.Equal(t, int64(28), env.TotalRecords)
	assert.Equal(t, int64(3), env.LastPage)
	assert.Len(t, env.Data, 10)
	assert.Len(t, b.Filters(), 2)

	unfiltered := New(sqldb.New(db, "users"))
	env, err = unfiltered.Paginate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(101), env.TotalRecords)
	assert.Equal(t, int64(11), env.LastPage)
}

func TestItems(t *testing.T) {
	type user struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
	}
	env := &Envelope{Data: []query.Row{
		{"id": int64(1), "first_name": "Ann"},
		{"id": int64(2), "first_name": "Bo"},
	}}

	users, err := Items[user](env)
	require.NoError(t, err)
	assert.Equal(t, []user{{1, "Ann"}, {2, "Bo"}}, users)

	_, err = Items[user](&Envelope{Data: []query.Row{{"id": "one"}}})
	assert.Error(t, err)
}
