package pagequery

import (
	"context"
	"fmt"
	"strings"
)

// Policy selects how a Paginator obtains the total count of a page.
type Policy string

const (
	// PolicySimple always runs a count query over the same joins and filter
	// as the content query.
	PolicySimple Policy = "simple"
	// PolicyOptimisticSkip never runs a count query. When the page is
	// shorter than the limit the page is the last one and the total is
	// inferred exactly as offset + len(content); otherwise the total stays
	// unknown.
	PolicyOptimisticSkip Policy = "optimistic"
	// PolicyDecoupledCount runs a count query derived separately from the
	// content query, by default with the joins that cannot change the count
	// pruned (see PruneJoins). It agrees with PolicySimple on every total.
	PolicyDecoupledCount Policy = "decoupled"
)

func (p Policy) Valid() bool {
	return p == PolicySimple || p == PolicyOptimisticSkip || p == PolicyDecoupledCount
}

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	policy := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !policy.Valid() {
		return "", fmt.Errorf("unknown paging policy '%s'", s)
	}

	return policy, nil
}

// Paginator composes a filter and a page request into a query, fetches the
// page and, depending on the policy, counts the matching rows.
//
// A Paginator is configuration only; it is safe to share between concurrent
// callers. Each call receives the data source scoped to the caller's request.
type Paginator[T any] struct {
	policy     Policy
	countQuery func(Query) Query
}

func NewPaginator[T any]() *Paginator[T] {
	return new(Paginator[T])
}

// WithPolicy selects the count policy. The default is PolicySimple.
func (p *Paginator[T]) WithPolicy(policy Policy) *Paginator[T] {
	if p == nil {
		p = new(Paginator[T])
	}

	p.policy = policy

	return p
}

// WithCountQuery overrides how PolicyDecoupledCount derives its count query
// from the content query. fn receives the content query already stripped of
// projection, ordering and range. The derived query must filter the base
// table the same way, otherwise totals disagree with PolicySimple.
func (p *Paginator[T]) WithCountQuery(fn func(Query) Query) *Paginator[T] {
	if p == nil {
		p = new(Paginator[T])
	}

	p.countQuery = fn

	return p
}

// GetPolicy returns the effective policy.
func (p *Paginator[T]) GetPolicy() Policy {
	if p == nil || p.policy == "" {
		return PolicySimple
	}

	return p.policy
}

// Paginate fetches the page req of the rows of q matching cond.
//
// Whatever the policy, len(Content) <= req.Limit, and a returned Total equals
// the number of rows matching cond over q's joins. Before the count query is
// issued the context is checked again, so a deadline exceeded by the content
// query aborts the call instead of starting the second query.
func (p *Paginator[T]) Paginate(
	ctx context.Context,
	src DataSource[T],
	q Query,
	cond Condition,
	req PageRequest,
) (*Page[T], error) {
	err := p.validate()
	if err != nil {
		return nil, fmt.Errorf("cannot paginate: %w", err)
	}

	err = req.Validate()
	if err != nil {
		return nil, err
	}

	q = q.WithWhere(cond).WithPage(req)

	content, err := p.getExecutor().Fetch(ctx, src, q)
	if err != nil {
		return nil, err
	}

	page := &Page[T]{
		Content: content,
		Offset:  req.Offset,
		Limit:   req.Limit,
	}

	switch p.GetPolicy() {
	case PolicyOptimisticSkip:
		page.Total = InferTotal(req, len(content))

		return page, nil
	case PolicyDecoupledCount:
		q = p.getCountQuery()(q.ForCount())
	}

	total, err := p.getExecutor().Count(ctx, src, q)
	if err != nil {
		return nil, err
	}
	page.Total = &total

	return page, nil
}

// InferTotal returns the exact total when a page of fetched rows is provably
// the last one, and nil otherwise.
//
// A page shorter than the limit is the last page, and the total is
// offset + fetched. An empty page past the first one proves nothing: the
// offset may lie beyond the end of the dataset.
func InferTotal(req PageRequest, fetched int) *int64 {
	if fetched >= req.Limit {
		return nil
	}

	if fetched == 0 && req.Offset > 0 {
		return nil
	}

	total := int64(req.Offset + fetched)

	return &total
}

func (p *Paginator[T]) getExecutor() *Executor[T] {
	return NewExecutor[T]()
}

func (p *Paginator[T]) getCountQuery() func(Query) Query {
	if p.countQuery == nil {
		return PruneJoins
	}

	return p.countQuery
}

func (p *Paginator[_]) validate() error {
	if p == nil {
		return fmt.Errorf("paginator is nil")
	}

	if !p.GetPolicy().Valid() {
		return fmt.Errorf("invalid paging policy '%s'", p.policy)
	}

	return nil
}
