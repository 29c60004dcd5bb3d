package pagequery

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

type (
	Orderings []OrderBy
	OrderBy   struct {
		Column    Column
		Direction Direction
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column names.
	// Use it when bare column names could cause an "ambiguous column name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]Column
)

var _availableColumnNameSymbols = append([]rune("_."), lo.AlphanumericCharset...)

// isSafeIdentifier guards against SQL injection by restricting allowed
// characters in column names which are rendered into SQL verbatim.
func isSafeIdentifier(name string) bool {
	return name != "" && lo.Every(_availableColumnNameSymbols, []rune(name))
}

// Asc orders by column ascending.
func Asc(column Column) OrderBy {
	return OrderBy{Column: column, Direction: DirectionASC}
}

// Desc orders by column descending.
func Desc(column Column) OrderBy {
	return OrderBy{Column: column, Direction: DirectionDESC}
}

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	if !isSafeIdentifier(string(o.Column)) {
		return fmt.Errorf("ordering column name contains forbidden symbols '%s'", o.Column)
	}

	return nil
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Example: for Orderings: [{"a", "ASC"}, {"b", "DESC"}] returns ["a ASC", "b DESC"].
func (o Orderings) ToSQLSlice() []string {
	ret := make([]string, 0, len(o))
	for _, ordering := range o {
		ret = append(ret, fmt.Sprintf("%s %s", ordering.Column, ordering.Direction))
	}

	return ret
}

// ToSQL converts Orderings to a single string
// "<order_column_1> <order_direction_1>, <order_column_2> <order_direction_2>"
// suitable for embedding into an SQL query.
// Example: for [{"a", "ASC"}, {"b", "DESC"}] returns "a ASC, b DESC".
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

// Apply applies the ordering to a gorm query. Empty orderings leave the query
// untouched.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	if len(o) == 0 {
		return db
	}

	return db.Order(o.ToSQL())
}

// Contains reports whether column is already ordered by.
func (o Orderings) Contains(column Column) bool {
	return slices.ContainsFunc(o, func(ordering OrderBy) bool {
		return ordering.Column == column
	})
}

// Then appends orderings without overwriting existing ones. A column that is
// already present is moved to the end with the new direction, as if calling:
//
//	OrderBy(o1).ThenBy(o2).ThenBy(o3)...
//
// The receiver is not modified.
func (o Orderings) Then(orderBy ...OrderBy) Orderings {
	ret := slices.Clone(o)
	for _, ordering := range orderBy {
		idx := slices.IndexFunc(ret, func(processed OrderBy) bool {
			return processed.Column == ordering.Column
		})

		// Remove previous occurrence (avoid duplication).
		if idx != -1 {
			ret = slices.Delete(ret, idx, idx+1)
		}

		ret = append(ret, ordering)
	}

	return ret
}

// WithTieBreaker appends "key ASC" unless key is already ordered by. With a
// unique key the resulting ordering is total, so rows never move between
// pages of repeated calls even when the leading columns hold duplicates.
func (o Orderings) WithTieBreaker(key Column) Orderings {
	if key == "" || o.Contains(key) {
		return o
	}

	return append(slices.Clone(o), Asc(key))
}

func (o Orderings) validate() error {
	var err error
	for _, ordering := range o {
		err = ordering.validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc" or "column,asc|desc". The direction may be omitted and
// defaults to ASC. Column aliases are resolved via ColumnMapping. Returns an
// error naming the closest known alias if an alias is not found in the
// mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make(Orderings, 0, len(stringsOrderings))
	aliases := lo.Keys(columnMapping)
	slices.Sort(aliases)

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.FieldsFunc(stringOrdering, func(r rune) bool {
			return r == ' ' || r == ','
		})
		if len(cutStringOrdering) == 0 || len(cutStringOrdering) > 2 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		direction := DirectionASC
		if len(cutStringOrdering) == 2 {
			direction = Direction(strings.ToUpper(cutStringOrdering[1]))
		}

		columnName, ok := columnMapping[columnAlias]
		if !ok {
			return nil, fmt.Errorf("invalid column alias '%s'. closest: '%s'", columnAlias, closestAlias(columnAlias, aliases))
		}

		ordering := OrderBy{
			Column:    columnName,
			Direction: direction,
		}
		if err := ordering.validate(); err != nil {
			return nil, err
		}

		ret = ret.Then(ordering)
	}

	return ret, nil
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
