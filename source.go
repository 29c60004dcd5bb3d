package pagequery

import "context"

// DataSource runs query descriptions against a store. Implementations decide
// how a Query is rendered: SQL through an ORM, evaluation over in-memory
// tables, a call to a remote service.
//
// A DataSource is a scoped handle: callers hand every request its own source
// bound to the request's session or transaction, so that the page content and
// its count observe the same snapshot.
type DataSource[T any] interface {
	// Find returns the rows matching q.Where, joined, projected and ordered
	// as q describes, restricted to q.Offset and q.Limit.
	Find(ctx context.Context, q Query) ([]T, error)
	// Count returns the number of rows matching q.Where over q's joins,
	// ignoring projection, ordering and range.
	Count(ctx context.Context, q Query) (int64, error)
}

// DataSourceFunc adapts a pair of functions to DataSource.
type DataSourceFunc[T any] struct {
	FindFunc  func(ctx context.Context, q Query) ([]T, error)
	CountFunc func(ctx context.Context, q Query) (int64, error)
}

func (f DataSourceFunc[T]) Find(ctx context.Context, q Query) ([]T, error) {
	return f.FindFunc(ctx, q)
}

func (f DataSourceFunc[T]) Count(ctx context.Context, q Query) (int64, error) {
	return f.CountFunc(ctx, q)
}

var _ DataSource[any] = DataSourceFunc[any]{}
