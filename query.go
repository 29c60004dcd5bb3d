package pagequery

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Table names a table and the alias its columns are qualified with.
type Table struct {
	Name  string
	Alias string
}

// NewTable returns a table reference. An empty alias means columns are
// qualified by the table name itself.
func NewTable(name, alias string) Table {
	return Table{Name: name, Alias: alias}
}

// Ref returns the name columns of t are qualified with.
func (t Table) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}

	return t.Name
}

// ToSQL returns "name AS alias", or just "name" without an alias.
func (t Table) ToSQL() string {
	if t.Alias == "" || t.Alias == t.Name {
		return t.Name
	}

	return fmt.Sprintf("%s AS %s", t.Name, t.Alias)
}

func (t Table) validate() error {
	if !isSafeIdentifier(t.Name) || (t.Alias != "" && !isSafeIdentifier(t.Alias)) {
		return fmt.Errorf("%w: table reference contains forbidden symbols '%s'", ErrInvalidQuery, t.ToSQL())
	}

	return nil
}

type (
	// Selection is a single projected column with the name it is exposed as
	// in result rows.
	Selection struct {
		Column Column
		As     string
	}

	// Projection is the ordered list of columns a query returns.
	Projection []Selection
)

// Select projects column as the result field name as. An empty as keeps the
// bare column name.
func Select(column Column, as string) Selection {
	return Selection{Column: column, As: as}
}

// Name returns the name the selection is exposed as in result rows.
func (s Selection) Name() string {
	if s.As != "" {
		return s.As
	}

	return s.Column.Name()
}

// ToSQL returns "column AS name".
func (s Selection) ToSQL() string {
	if s.As == "" {
		return string(s.Column)
	}

	return fmt.Sprintf("%s AS %s", s.Column, s.As)
}

// ToSQLSlice converts the projection to "column AS name" strings.
func (p Projection) ToSQLSlice() []string {
	return lo.Map(p, func(item Selection, _ int) string {
		return item.ToSQL()
	})
}

// Columns returns the projected columns.
func (p Projection) Columns() []Column {
	return lo.Map(p, func(item Selection, _ int) Column {
		return item.Column
	})
}

// JoinKind is the SQL join type.
type JoinKind string

const (
	// JoinLeft keeps base rows without a matching joined row; the joined
	// columns are NULL for them. Required whenever the joined relation may be
	// absent, e.g. members that belong to no team.
	JoinLeft JoinKind = "LEFT JOIN"
	// JoinInner drops base rows without a matching joined row.
	JoinInner JoinKind = "INNER JOIN"
)

// Join describes "Kind Table ON Left = Right". Left must refer to the base
// table or to an earlier join, Right to the joined table.
//
// ToOne declares that every base row matches at most one joined row. A LEFT
// ToOne join never changes the number of rows, which lets count queries drop
// it when the filter does not reference the joined table.
type Join struct {
	Kind  JoinKind
	Table Table
	Left  Column
	Right Column
	ToOne bool
}

// LeftJoinOne builds a LEFT join to a table matching at most one row.
func LeftJoinOne(table Table, left, right Column) Join {
	return Join{Kind: JoinLeft, Table: table, Left: left, Right: right, ToOne: true}
}

// InnerJoin builds an INNER join.
func InnerJoin(table Table, left, right Column) Join {
	return Join{Kind: JoinInner, Table: table, Left: left, Right: right}
}

// ToSQL returns "LEFT JOIN teams AS t ON m.team_id = t.id".
func (j Join) ToSQL() string {
	return fmt.Sprintf("%s %s ON %s = %s", j.Kind, j.Table.ToSQL(), j.Left, j.Right)
}

// Query describes a read against a data source: the base table, the
// projection, the joins applied before filtering, the filter, the ordering
// and the requested range. Key names the unique record identifier used to
// make the ordering total.
//
// Query is a value; the With* methods return modified copies.
type Query struct {
	From       Table
	Projection Projection
	Joins      []Join
	Where      Condition
	Order      Orderings
	Key        Column
	Offset     int
	Limit      int
}

// NewQuery starts a query over the from table, keyed by key.
func NewQuery(from Table, key Column) Query {
	return Query{From: from, Key: key, Where: Always{}}
}

// WithProjection replaces the projection.
func (q Query) WithProjection(selections ...Selection) Query {
	q.Projection = slices.Clone(selections)
	return q
}

// WithJoins appends joins.
func (q Query) WithJoins(joins ...Join) Query {
	q.Joins = append(slices.Clone(q.Joins), joins...)
	return q
}

// WithWhere ANDs c onto the current filter.
func (q Query) WithWhere(c Condition) Query {
	q.Where = And(q.Where, c)
	return q
}

// WithOrder appends orderings, see Orderings.Then.
func (q Query) WithOrder(orderBy ...OrderBy) Query {
	q.Order = q.Order.Then(orderBy...)
	return q
}

// WithRange sets offset and limit.
func (q Query) WithRange(offset, limit int) Query {
	q.Offset = offset
	q.Limit = limit
	return q
}

// WithPage applies the range and the sort of req.
func (q Query) WithPage(req PageRequest) Query {
	return q.WithRange(req.Offset, req.Limit).WithOrder(req.Sort...)
}

// Sources returns the table references columns may be qualified with: the
// base table first, then joined tables in join order.
func (q Query) Sources() []string {
	ret := make([]string, 0, len(q.Joins)+1)
	ret = append(ret, q.From.Ref())
	for _, join := range q.Joins {
		ret = append(ret, join.Table.Ref())
	}

	return ret
}

// ForCount returns the query counting the rows q filters: the same tables,
// joins and filter without projection, ordering and range.
func (q Query) ForCount() Query {
	q.Projection = nil
	q.Order = nil
	q.Offset = 0
	q.Limit = 0

	return q
}

// PruneJoins returns q without the LEFT ToOne joins nobody needs: not
// referenced by the filter, the projection, the ordering or another kept
// join. Such joins cannot change the number of rows, so counts computed over
// the pruned query equal counts over q.
func PruneJoins(q Query) Query {
	needed := lo.SliceToMap(Fields(q.Where), func(c Column) (string, struct{}) {
		return c.Source(), struct{}{}
	})
	for _, c := range append(q.Projection.Columns(), lo.Map(q.Order, func(o OrderBy, _ int) Column { return o.Column })...) {
		needed[c.Source()] = struct{}{}
	}

	kept := make([]Join, 0, len(q.Joins))
	for i := len(q.Joins) - 1; i >= 0; i-- {
		join := q.Joins[i]
		_, isNeeded := needed[join.Table.Ref()]

		if join.Kind == JoinLeft && join.ToOne && !isNeeded {
			continue
		}

		needed[join.Left.Source()] = struct{}{}
		kept = append(kept, join)
	}
	slices.Reverse(kept)

	q.Joins = kept

	return q
}

// validateRange checks the requested range.
func (q Query) validateRange() error {
	if q.Offset < 0 || q.Limit <= 0 {
		return &InvalidRangeError{Offset: q.Offset, Limit: q.Limit}
	}

	return nil
}

// validateShape checks that every column the query mentions can be produced
// by its tables. With requireProjection an empty projection is a mismatch as
// well.
func (q Query) validateShape(requireProjection bool) error {
	if err := q.From.validate(); err != nil {
		return err
	}

	sources := []string{q.From.Ref()}
	checkColumn := func(c Column) error {
		if !isSafeIdentifier(string(c)) {
			return fmt.Errorf("%w: column name contains forbidden symbols '%s'", ErrInvalidQuery, c)
		}

		if c.Source() != "" && !slices.Contains(sources, c.Source()) {
			return &ProjectionMismatchError{Column: c, Available: slices.Clone(sources)}
		}

		return nil
	}

	for _, join := range q.Joins {
		if join.Kind != JoinLeft && join.Kind != JoinInner {
			return fmt.Errorf("%w: unsupported join kind '%s'", ErrInvalidQuery, join.Kind)
		}
		if err := join.Table.validate(); err != nil {
			return err
		}
		if err := checkColumn(join.Left); err != nil {
			return err
		}

		sources = append(sources, join.Table.Ref())
		if err := checkColumn(join.Right); err != nil {
			return err
		}
		if join.Right.Source() != "" && join.Right.Source() != join.Table.Ref() {
			return &ProjectionMismatchError{Column: join.Right, Available: []string{join.Table.Ref()}}
		}
	}

	if requireProjection && len(q.Projection) == 0 {
		return &ProjectionMismatchError{Available: sources}
	}

	for _, selection := range q.Projection {
		if err := checkColumn(selection.Column); err != nil {
			return err
		}
		if selection.As != "" && !isSafeIdentifier(selection.As) {
			return fmt.Errorf("%w: projection alias contains forbidden symbols '%s'", ErrInvalidQuery, selection.As)
		}
	}

	if err := validateCondition(q.Where); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	for _, field := range Fields(q.Where) {
		if err := checkColumn(field); err != nil {
			return err
		}
	}

	if err := q.Order.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	for _, ordering := range q.Order {
		if err := checkColumn(ordering.Column); err != nil {
			return err
		}
	}

	if q.Key != "" {
		if err := checkColumn(q.Key); err != nil {
			return err
		}
	}

	return nil
}

// String renders q as SQL text for logs and debugging. Values are not
// interpolated.
func (q Query) String() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	if len(q.Projection) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(q.Projection.ToSQLSlice(), ", "))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(q.From.ToSQL())

	for _, join := range q.Joins {
		sb.WriteString(" ")
		sb.WriteString(join.ToSQL())
	}

	if !IsAlways(q.Where) {
		where, _ := ToSQL(q.Where)
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(q.Order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.Order.ToSQL())
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}

	return sb.String()
}
