package memsource

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/Alp4ka/pagequery"
)

// NullOrder places NULLs relative to every other value when sorting.
type NullOrder int

const (
	// NullsLargest sorts NULLs last ascending and first descending, as
	// PostgreSQL and Oracle do.
	NullsLargest NullOrder = iota
	// NullsSmallest sorts NULLs first ascending and last descending, as
	// SQLite and MySQL do.
	NullsSmallest
)

// ScanFunc converts a projected row, keyed by selection name, into T.
type ScanFunc[T any] func(Record) (T, error)

// Source is a pagequery.DataSource evaluating queries over a Store.
type Source[T any] struct {
	store     *Store
	scan      ScanFunc[T]
	nullOrder NullOrder
}

// New returns a source reading from store and converting projected rows
// with scan.
func New[T any](store *Store, scan ScanFunc[T]) *Source[T] {
	return &Source[T]{
		store: store,
		scan:  scan,
	}
}

// WithNullOrder selects where NULLs sort. The default is NullsLargest.
func (s *Source[T]) WithNullOrder(order NullOrder) *Source[T] {
	s.nullOrder = order

	return s
}

// NewRecords returns a source yielding projected rows as they are.
func NewRecords(store *Store) *Source[Record] {
	return New(store, func(r Record) (Record, error) { return r, nil })
}

// joinedRow is a row of the joined relation keyed by qualified column.
type joinedRow map[pagequery.Column]any

// Find - implements pagequery.DataSource.
func (s *Source[T]) Find(ctx context.Context, q pagequery.Query) ([]T, error) {
	rows, err := s.filter(ctx, q)
	if err != nil {
		return nil, err
	}

	sortRows(rows, q.From.Ref(), q.Order, s.nullOrder)

	rows = rows[min(q.Offset, len(rows)):]
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	ret := make([]T, 0, len(rows))
	for _, row := range rows {
		projected := make(Record, len(q.Projection))
		for _, selection := range q.Projection {
			projected[selection.Name()], _ = row.lookup(q.From.Ref(), selection.Column)
		}

		item, err := s.scan(projected)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ret = append(ret, item)
	}

	return ret, nil
}

// Count - implements pagequery.DataSource.
func (s *Source[T]) Count(ctx context.Context, q pagequery.Query) (int64, error) {
	rows, err := s.filter(ctx, q)
	if err != nil {
		return 0, err
	}

	return int64(len(rows)), nil
}

// filter joins the tables of q and keeps the rows matching q.Where.
func (s *Source[T]) filter(ctx context.Context, q pagequery.Query) ([]joinedRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := q.From.Ref()
	rows := lo.Map(s.store.table(q.From.Name), func(record Record, _ int) joinedRow {
		return qualify(make(joinedRow, len(record)), q.From.Ref(), record)
	})

	for _, join := range q.Joins {
		rows = s.join(rows, base, join)
	}

	return lo.Filter(rows, func(row joinedRow, _ int) bool {
		return pagequery.Matches(q.Where, func(c pagequery.Column) (any, bool) {
			return row.lookup(base, c)
		})
	}), nil
}

func (s *Source[T]) join(rows []joinedRow, base string, join pagequery.Join) []joinedRow {
	joined := s.store.table(join.Table.Name)
	ref := join.Table.Ref()

	ret := make([]joinedRow, 0, len(rows))
	for _, row := range rows {
		left, _ := row.lookup(base, join.Left)

		matched := false
		for _, record := range joined {
			cmp, ok := pagequery.CompareValues(left, record[join.Right.Name()])
			if !ok || cmp != 0 {
				continue
			}

			matched = true
			ret = append(ret, qualify(lo.Assign(row), ref, record))
		}

		if !matched && join.Kind == pagequery.JoinLeft {
			ret = append(ret, row)
		}
	}

	return ret
}

func qualify(dst joinedRow, ref string, record Record) joinedRow {
	for column, value := range record {
		dst[pagequery.Column(ref+"."+column)] = value
	}

	return dst
}

// lookup resolves c, qualifying bare columns with the base table.
func (r joinedRow) lookup(base string, c pagequery.Column) (any, bool) {
	if c.Source() == "" {
		c = pagequery.Column(base + "." + string(c))
	}

	value, ok := r[c]
	return value, ok
}

// sortRows orders rows stably, ranking NULLs according to nulls.
func sortRows(rows []joinedRow, base string, order pagequery.Orderings, nulls NullOrder) {
	if len(order) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ordering := range order {
			a, _ := rows[i].lookup(base, ordering.Column)
			b, _ := rows[j].lookup(base, ordering.Column)

			cmp := compareNulls(a, b, nulls)
			if ordering.Direction == pagequery.DirectionDESC {
				cmp = -cmp
			}

			if cmp != 0 {
				return cmp < 0
			}
		}

		return false
	})
}

// compareNulls compares a and b, treating NULL as larger than every value
// under NullsLargest and smaller under NullsSmallest.
func compareNulls(a, b any, nulls NullOrder) int {
	cmp, ok := pagequery.CompareValues(a, b)
	if ok {
		return cmp
	}

	nullRank := 1
	if nulls == NullsSmallest {
		nullRank = -1
	}

	aNull, bNull := isNull(a), isNull(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return nullRank
	case bNull:
		return -nullRank
	default:
		return 0
	}
}

func isNull(v any) bool {
	_, ok := pagequery.CompareValues(v, v)
	return !ok
}

var _ pagequery.DataSource[Record] = (*Source[Record])(nil)
