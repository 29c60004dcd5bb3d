// Package gormsource implements pagequery.DataSource over gorm.
//
// A Query is rendered with raw table, join, select and order expressions and
// a parameterized WHERE built from the condition tree:
//
//	SELECT m.id AS member_id,m.username,t.name AS team_name
//	FROM members AS m LEFT JOIN teams AS t ON m.team_id = t.id
//	WHERE t.name = $1 AND m.age >= $2
//	ORDER BY m.age DESC, m.id ASC LIMIT 10 OFFSET 20
//
// Projected columns are scanned into T by name, so T's gorm column names
// must match the selection names.
package gormsource

import (
	"context"

	"gorm.io/gorm"

	"github.com/Alp4ka/pagequery"
)

type Source[T any] struct {
	db *gorm.DB
}

// New returns a source running queries on db. Pass a transaction to make
// content and count queries observe one snapshot.
func New[T any](db *gorm.DB) *Source[T] {
	return &Source[T]{
		db: db,
	}
}

// Find - implements pagequery.DataSource.
func (s *Source[T]) Find(ctx context.Context, q pagequery.Query) ([]T, error) {
	tx := s.from(ctx, q)

	if len(q.Projection) > 0 {
		tx = tx.Select(q.Projection.ToSQLSlice())
	}

	tx = q.Order.Apply(tx)

	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	ret := make([]T, 0, min(q.Limit, pagequery.MaxLimit))
	err := tx.Find(&ret).Error
	if err != nil {
		return nil, err
	}

	return ret, nil
}

// Count - implements pagequery.DataSource.
func (s *Source[T]) Count(ctx context.Context, q pagequery.Query) (int64, error) {
	var total int64

	err := s.from(ctx, q).Count(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}

// from applies the tables, joins and filter shared by content and count
// queries.
func (s *Source[T]) from(ctx context.Context, q pagequery.Query) *gorm.DB {
	tx := s.db.WithContext(ctx).Table(q.From.ToSQL())

	for _, join := range q.Joins {
		tx = tx.Joins(join.ToSQL())
	}

	if expr := pagequery.GORMExpression(q.Where); expr != nil {
		tx = tx.Clauses(expr)
	}

	return tx
}

var _ pagequery.DataSource[map[string]any] = (*Source[map[string]any])(nil)
