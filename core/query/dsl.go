package query

// Condition is a comparison operator allowed in a filter clause.
type Condition string

// Supported comparison operators.
const (
	ConditionEq      Condition = "="
	ConditionNeq     Condition = "!="
	ConditionGt      Condition = ">"
	ConditionLt      Condition = "<"
	ConditionGte     Condition = ">="
	ConditionLte     Condition = "<="
	ConditionLike    Condition = "LIKE"
	ConditionNotLike Condition = "NOT LIKE"
)

// supportedConditions is the closed set of comparison operators a filter may use.
var supportedConditions = map[Condition]struct{}{
	ConditionEq:      {},
	ConditionNeq:     {},
	ConditionGt:      {},
	ConditionLt:      {},
	ConditionGte:     {},
	ConditionLte:     {},
	ConditionLike:    {},
	ConditionNotLike: {},
}

// IsSupported reports whether c is in the supported set. Matching is exact:
// "like" and "NOT  LIKE" are not supported.
func (c Condition) IsSupported() bool {
	_, ok := supportedConditions[c]
	return ok
}

// SupportedConditions returns the supported comparison operators.
func SupportedConditions() []Condition {
	return []Condition{
		ConditionEq, ConditionNeq, ConditionGt, ConditionLt,
		ConditionGte, ConditionLte, ConditionLike, ConditionNotLike,
	}
}

// Operation is the boolean joiner between a filter clause and the chain before it.
type Operation string

// Boolean joiners. OperationNone marks the head of a chain.
const (
	OperationNone Operation = ""
	OperationAnd  Operation = "AND"
	OperationOr   Operation = "OR"
)

// IsJoiner reports whether o is AND or OR.
func (o Operation) IsJoiner() bool {
	return o == OperationAnd || o == OperationOr
}

// Direction is an ORDER BY direction.
type Direction string

// Supported sort directions.
const (
	DirectionAsc  Direction = "ASC"
	DirectionDesc Direction = "DESC"
)

// FilterClause is one comparison in the flat WHERE chain.
type FilterClause struct {
	SearchTerm any       `json:"search_term"`
	Condition  Condition `json:"condition"`
	Column     string    `json:"column"`
	Operation  Operation `json:"operation,omitempty"`
}

// OrderClause is one ORDER BY term.
type OrderClause struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Row is a single result row keyed by column name.
type Row map[string]any
