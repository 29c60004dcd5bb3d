package pagequery

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"
)

// Column is a column reference, optionally qualified by the alias of the
// table it belongs to: "m.age", "t.name" or just "age".
type Column string

// Source returns the table alias part of a qualified column, or "" for an
// unqualified one.
func (c Column) Source() string {
	source, _, found := strings.Cut(string(c), ".")
	if !found {
		return ""
	}

	return source
}

// Name returns the column name without its table alias.
func (c Column) Name() string {
	_, name, found := strings.Cut(string(c), ".")
	if !found {
		return string(c)
	}

	return name
}

type (
	// Condition is a node of a boolean filter tree. A tree is made of three
	// node kinds:
	//
	//	Always                  matches every row, neutral for AND
	//	Comparison(C, O, V)     "C O V"
	//	Conjunction(L, R)       "L AND R"
	//
	// Trees are built with And and AllOf, which never emit Always as an
	// operand of a Conjunction. A nil Condition is treated as Always.
	Condition interface {
		condition()
	}

	// Always matches every row.
	Always struct{}

	// Comparison is the value of Operator(Field, Value).
	Comparison struct {
		Field    Column
		Operator Operator
		Value    any
	}

	// Conjunction is the logical AND of two conditions.
	Conjunction struct {
		Left  Condition
		Right Condition
	}
)

func (Always) condition()      {}
func (Comparison) condition()  {}
func (Conjunction) condition() {}

// Compare builds the comparison "field operator value".
func Compare(field Column, operator Operator, value any) Condition {
	return Comparison{Field: field, Operator: operator, Value: value}
}

// IsAlways reports whether c matches every row.
func IsAlways(c Condition) bool {
	if c == nil {
		return true
	}

	_, ok := c.(Always)
	return ok
}

// And composes two conditions. Always is the identity element: And(Always, X)
// and And(X, Always) both return X.
func And(left, right Condition) Condition {
	switch {
	case IsAlways(left) && IsAlways(right):
		return Always{}
	case IsAlways(left):
		return right
	case IsAlways(right):
		return left
	}

	return Conjunction{Left: left, Right: right}
}

// AllOf folds conditions with And from left to right. Absent conditions
// (nil or Always) do not produce a node. With no present conditions the
// result is Always.
func AllOf(conditions ...Condition) Condition {
	var ret Condition = Always{}
	for _, c := range conditions {
		ret = And(ret, c)
	}

	return ret
}

// EqText returns "field = value" when value holds text, and Always when value
// is nil, empty or whitespace only. Blank strings never produce an equality
// against the empty string.
func EqText(field Column, value *string) Condition {
	if value == nil || strings.TrimSpace(*value) == "" {
		return Always{}
	}

	return Compare(field, OperatorEq, *value)
}

// Eq returns "field = value", or Always when value is nil.
func Eq[T any](field Column, value *T) Condition {
	return compareIfPresent(field, OperatorEq, value)
}

// Goe returns "field >= value", or Always when value is nil.
func Goe[T any](field Column, value *T) Condition {
	return compareIfPresent(field, OperatorGoe, value)
}

// Loe returns "field <= value", or Always when value is nil.
func Loe[T any](field Column, value *T) Condition {
	return compareIfPresent(field, OperatorLoe, value)
}

func compareIfPresent[T any](field Column, operator Operator, value *T) Condition {
	if value == nil {
		return Always{}
	}

	return Compare(field, operator, *value)
}

// Comparisons flattens c into its comparisons in left-to-right order.
func Comparisons(c Condition) []Comparison {
	switch node := c.(type) {
	case Comparison:
		return []Comparison{node}
	case Conjunction:
		return append(Comparisons(node.Left), Comparisons(node.Right)...)
	default:
		return nil
	}
}

// Fields returns the distinct columns referenced by c, in order of first
// appearance.
func Fields(c Condition) []Column {
	return lo.Uniq(lo.Map(Comparisons(c), func(item Comparison, _ int) Column {
		return item.Field
	}))
}

func validateCondition(c Condition) error {
	for _, comparison := range Comparisons(c) {
		if !comparison.Operator.Valid() {
			return fmt.Errorf("invalid condition operator '%s'", comparison.Operator)
		}

		if !isSafeIdentifier(string(comparison.Field)) {
			return fmt.Errorf("condition column name contains forbidden symbols '%s'", comparison.Field)
		}
	}

	return nil
}

// toGORMExpression converts a comparison of the form Operator(Field, Value)
// into an SQL condition "Field Operator ?" represented as a clause.Expression.
//
// Example:
//
//	Comparison{Field: "m.age", Operator: ">=", Value: 50}
//
// Result:
//
//	"m.age >= 50"
func (c Comparison) toGORMExpression() clause.Expression {
	sqlClause, arg := c.toSQLClause()

	return clause.Expr{
		SQL:  sqlClause,
		Vars: []any{arg},
	}
}

// toSQLClause converts a comparison to "Field Operator ?" with the value
// for the placeholder.
func (c Comparison) toSQLClause() (string, any) {
	return fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value
}

// GORMExpression converts c into a clause.Expression. Conjunction chains are
// flattened into a single clause.AndConditions. Returns nil for Always,
// which means "no WHERE clause".
func GORMExpression(c Condition) clause.Expression {
	comparisons := Comparisons(c)

	andExpressions := make([]clause.Expression, 0, len(comparisons))
	for _, comparison := range comparisons {
		andExpressions = append(andExpressions, comparison.toGORMExpression())
	}

	if len(andExpressions) == 1 {
		return andExpressions[0]
	} else if len(andExpressions) > 1 {
		return clause.And(andExpressions...)
	}

	return nil
}

// ToSQL converts c into an SQL condition with "?" placeholders and the list
// of values for them.
//
// Example:
//
//	AllOf(
//		Compare("t.name", OperatorEq, "teamA"),
//		Compare("m.age", OperatorGoe, 50),
//	)
//
// Result:
//
//	("(t.name = ? AND m.age >= ?)", ["teamA", 50])
//
// Always renders as "TRUE" with no values.
func ToSQL(c Condition) (string, []any) {
	comparisons := Comparisons(c)

	andClauses := make([]string, 0, len(comparisons))
	values := make([]any, 0, len(comparisons))

	for _, comparison := range comparisons {
		andClause, value := comparison.toSQLClause()
		andClauses = append(andClauses, andClause)
		values = append(values, value)
	}

	switch len(andClauses) {
	case 0:
		return "TRUE", nil
	case 1:
		return andClauses[0], values
	default:
		return fmt.Sprintf("(%s)", strings.Join(andClauses, " AND ")), values
	}
}
