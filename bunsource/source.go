// Package bunsource implements pagequery.DataSource over bun.
//
// Tables, joins, columns and orderings are passed to bun as raw
// expressions; the filter is rendered with pagequery.ToSQL and its values
// are bound by bun's formatter.
package bunsource

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/Alp4ka/pagequery"
)

type Source[T any] struct {
	db bun.IDB
}

// New returns a source running queries on db, a *bun.DB, bun.Conn or
// bun.Tx.
func New[T any](db bun.IDB) *Source[T] {
	return &Source[T]{
		db: db,
	}
}

// Find - implements pagequery.DataSource.
func (s *Source[T]) Find(ctx context.Context, q pagequery.Query) ([]T, error) {
	query := s.from(q)

	for _, selection := range q.Projection {
		query = query.ColumnExpr(selection.ToSQL())
	}

	for _, ordering := range q.Order.ToSQLSlice() {
		query = query.OrderExpr(ordering)
	}

	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	ret := make([]T, 0, min(q.Limit, pagequery.MaxLimit))
	err := query.Scan(ctx, &ret)
	if err != nil {
		return nil, err
	}

	return ret, nil
}

// Count - implements pagequery.DataSource.
func (s *Source[T]) Count(ctx context.Context, q pagequery.Query) (int64, error) {
	total, err := s.from(q).Count(ctx)
	if err != nil {
		return 0, err
	}

	return int64(total), nil
}

func (s *Source[T]) from(q pagequery.Query) *bun.SelectQuery {
	query := s.db.NewSelect().TableExpr(q.From.ToSQL())

	for _, join := range q.Joins {
		query = query.Join(join.ToSQL())
	}

	if !pagequery.IsAlways(q.Where) {
		where, args := pagequery.ToSQL(q.Where)
		query = query.Where(where, args...)
	}

	return query
}

var _ pagequery.DataSource[map[string]any] = (*Source[map[string]any])(nil)
