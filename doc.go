// Package pagequery provides dynamic, store-agnostic query specifications
// with offset pagination and explicit count policies.
//
// Overview
//
// A search request arrives as a sparse set of optional criteria plus a page
// request. pagequery turns it into a page of typed rows in three steps:
//   - Predicate building: optional criteria become a Condition tree of
//     Always, Comparison and Conjunction nodes. Absent and blank criteria
//     never produce a node (see AllOf, EqText, Goe, Loe).
//   - Execution: an Executor validates a Query (projection, joins, filter,
//     ordering, range) and runs it against a DataSource. The ordering is made
//     total with the query key so pages are reproducible.
//   - Pagination: a Paginator fetches the page and obtains its total
//     according to a Policy: PolicySimple always counts,
//     PolicyOptimisticSkip never counts and infers the total on the last
//     page, PolicyDecoupledCount counts over a cheaper query with needless
//     joins pruned.
//
// Key concepts
//   - DataSource: the seam to a store. See the gormsource, bunsource and
//     memsource packages.
//   - Query: a value describing a read; render it with ToSQL, GORMExpression
//     or evaluate it with Matches.
//   - Page: content, offset, limit and an optional total.
package pagequery
