package pagequery

import (
	"context"
)

// Executor validates query descriptions and runs them against a DataSource.
// It holds no state and is safe for concurrent use; every call receives the
// data source scoped to the caller's request.
type Executor[T any] struct{}

func NewExecutor[T any]() *Executor[T] {
	return new(Executor[T])
}

// Fetch runs q and returns at most q.Limit rows starting at q.Offset.
//
// The ordering is made total by appending q.Key when it is not ordered by
// already, so repeated calls page through the same sequence without skipping
// or duplicating rows.
//
// Errors:
//   - *InvalidRangeError when q.Offset < 0 or q.Limit <= 0;
//   - *ProjectionMismatchError when a column refers to a table the query does
//     not read from, or the projection is empty;
//   - *DataSourceError wrapping whatever the data source returned.
func (e *Executor[T]) Fetch(ctx context.Context, src DataSource[T], q Query) ([]T, error) {
	err := q.validateRange()
	if err != nil {
		return nil, err
	}

	return e.fetch(ctx, src, q)
}

// FetchAll runs q without a limit. A non-negative q.Offset still applies.
func (e *Executor[T]) FetchAll(ctx context.Context, src DataSource[T], q Query) ([]T, error) {
	if q.Offset < 0 {
		return nil, &InvalidRangeError{Offset: q.Offset, Limit: q.Limit}
	}
	q.Limit = 0

	return e.fetch(ctx, src, q)
}

func (e *Executor[T]) fetch(ctx context.Context, src DataSource[T], q Query) ([]T, error) {
	err := q.validateShape(true)
	if err != nil {
		return nil, err
	}

	q.Order = q.Order.WithTieBreaker(q.Key)

	rows, err := src.Find(ctx, q)
	if err != nil {
		return nil, wrapDataSourceError("find", err)
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	return rows, nil
}

// Count returns the number of rows matching q.Where over q's joins.
// Projection, ordering and range of q are ignored.
//
// A context that is already done aborts the call before the data source is
// reached.
func (e *Executor[T]) Count(ctx context.Context, src DataSource[T], q Query) (int64, error) {
	q = q.ForCount()

	err := q.validateShape(false)
	if err != nil {
		return 0, err
	}

	if err = ctx.Err(); err != nil {
		return 0, wrapDataSourceError("count", err)
	}

	total, err := src.Count(ctx, q)
	if err != nil {
		return 0, wrapDataSourceError("count", err)
	}

	return total, nil
}
