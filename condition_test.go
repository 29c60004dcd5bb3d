package pagequery

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func Test_Column_SourceAndName(t *testing.T) {
	tests := []struct {
		in     Column
		source string
		name   string
	}{
		{"m.age", "m", "age"},
		{"age", "", "age"},
		{"schema.t.name", "schema", "t.name"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			require.Equal(t, tt.source, tt.in.Source())
			require.Equal(t, tt.name, tt.in.Name())
		})
	}
}

func Test_And_AlwaysIsIdentity(t *testing.T) {
	x := Compare("m.age", OperatorGoe, 10)

	require.Equal(t, x, And(Always{}, x))
	require.Equal(t, x, And(x, Always{}))
	require.Equal(t, x, And(nil, x))
	require.Equal(t, Always{}, And(Always{}, Always{}))
	require.Equal(t, Always{}, And(nil, nil))
}

func Test_AllOf(t *testing.T) {
	a := Compare("m.username", OperatorEq, "member 1")
	b := Compare("t.name", OperatorEq, "teamA")
	c := Compare("m.age", OperatorLoe, 40)

	tests := []struct {
		name  string
		input []Condition
		want  Condition
	}{
		{"no conditions", nil, Always{}},
		{"only absent conditions", []Condition{Always{}, nil, Always{}}, Always{}},
		{"single condition", []Condition{Always{}, b}, b},
		{"left to right", []Condition{a, b, c}, Conjunction{Left: Conjunction{Left: a, Right: b}, Right: c}},
		{"absent conditions produce no node", []Condition{a, Always{}, nil, c}, Conjunction{Left: a, Right: c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, AllOf(tt.input...))
		})
	}
}

func Test_EqText(t *testing.T) {
	tests := []struct {
		name  string
		value *string
		want  Condition
	}{
		{"nil is absent", nil, Always{}},
		{"empty is absent", lo.ToPtr(""), Always{}},
		{"whitespace is absent", lo.ToPtr(" \t"), Always{}},
		{"text is kept verbatim", lo.ToPtr(" teamA"), Comparison{Field: "t.name", Operator: OperatorEq, Value: " teamA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EqText("t.name", tt.value))
		})
	}
}

func Test_OptionalComparisons(t *testing.T) {
	require.Equal(t, Always{}, Goe[int]("m.age", nil))
	require.Equal(t, Always{}, Loe[int]("m.age", nil))
	require.Equal(t, Always{}, Eq[int64]("m.id", nil))

	require.Equal(t, Comparison{Field: "m.age", Operator: OperatorGoe, Value: 0}, Goe("m.age", lo.ToPtr(0)))
	require.Equal(t, Comparison{Field: "m.age", Operator: OperatorLoe, Value: 40}, Loe("m.age", lo.ToPtr(40)))
	require.Equal(t, Comparison{Field: "m.id", Operator: OperatorEq, Value: int64(3)}, Eq("m.id", lo.ToPtr(int64(3))))
}

func Test_Fields(t *testing.T) {
	cond := AllOf(
		Compare("m.age", OperatorGoe, 10),
		Compare("t.name", OperatorEq, "teamA"),
		Compare("m.age", OperatorLoe, 20),
	)

	require.Equal(t, []Column{"m.age", "t.name"}, Fields(cond))
	require.Empty(t, Fields(Always{}))
}

func Test_ToSQL(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		wantSQL  string
		wantVars []any
	}{
		{
			name:     "always",
			cond:     Always{},
			wantSQL:  "TRUE",
			wantVars: nil,
		},
		{
			name:     "single comparison",
			cond:     Compare("m.username", OperatorEq, "member 1"),
			wantSQL:  "m.username = ?",
			wantVars: []any{"member 1"},
		},
		{
			name: "conjunction",
			cond: AllOf(
				Compare("t.name", OperatorEq, "teamA"),
				Compare("m.age", OperatorGoe, 50),
				Compare("m.age", OperatorLoe, 60),
			),
			wantSQL:  "(t.name = ? AND m.age >= ? AND m.age <= ?)",
			wantVars: []any{"teamA", 50, 60},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotVars := ToSQL(tt.cond)
			require.Equal(t, tt.wantSQL, gotSQL)
			require.Equal(t, tt.wantVars, gotVars)
		})
	}
}

func Test_GORMExpression(t *testing.T) {
	t.Run("always has no expression", func(t *testing.T) {
		require.Nil(t, GORMExpression(Always{}))
	})

	t.Run("single comparison", func(t *testing.T) {
		expr := GORMExpression(Compare("m.age", OperatorLT, 10))
		clauseExpr, ok := expr.(clause.Expr)
		require.True(t, ok)
		require.Equal(t, "m.age < ?", clauseExpr.SQL)
		require.Equal(t, []any{10}, clauseExpr.Vars)
	})

	t.Run("conjunction is flattened", func(t *testing.T) {
		expr := GORMExpression(AllOf(
			Compare("m.age", OperatorGoe, 10),
			Compare("m.age", OperatorLoe, 20),
			Compare("t.name", OperatorEq, "teamB"),
		))
		andExpr, ok := expr.(clause.AndConditions)
		require.True(t, ok)
		require.Len(t, andExpr.Exprs, 3)
	})
}

func Test_validateCondition(t *testing.T) {
	require.NoError(t, validateCondition(Always{}))
	require.NoError(t, validateCondition(Compare("m.age", OperatorGoe, 1)))
	require.Error(t, validateCondition(Compare("m.age", Operator("LIKE"), 1)))
	require.Error(t, validateCondition(Compare("m.age; DROP TABLE members", OperatorEq, 1)))
}
