package pagequery

import (
	"math"

	"github.com/samber/lo"
)

// PageRequest asks for Limit rows starting at Offset in Sort order.
type PageRequest struct {
	Offset int
	Limit  int
	Sort   Orderings
}

func NewPageRequest(offset, limit int, sort ...OrderBy) PageRequest {
	return PageRequest{
		Offset: offset,
		Limit:  limit,
		Sort:   Orderings(nil).Then(sort...),
	}
}

// PageOf converts a zero-based page number and a page size into a
// PageRequest. Negative page numbers are treated as the first page. A page
// whose offset does not fit in an int is an *InvalidRangeError.
func PageOf(page, size int, sort ...OrderBy) (PageRequest, error) {
	page = max(page, 0)
	if size > 0 && page > math.MaxInt/size {
		return PageRequest{}, &InvalidRangeError{Page: page, Limit: size}
	}

	return NewPageRequest(page*size, size, sort...), nil
}

// Validate returns *InvalidRangeError for a negative offset or a non-positive
// limit.
func (r PageRequest) Validate() error {
	if r.Offset < 0 || r.Limit <= 0 {
		return &InvalidRangeError{Offset: r.Offset, Limit: r.Limit}
	}

	return nil
}

// Next returns the request for the page following r.
func (r PageRequest) Next() PageRequest {
	r.Offset += r.Limit
	return r
}

// Page is a slice of the rows matching a condition.
//
// Total, when present, is the number of rows matching the condition
// regardless of paging, and Total >= len(Content). An absent Total means the
// count was not computed; callers can only infer from len(Content) == Limit
// that more rows may exist.
type Page[T any] struct {
	// Content rows of the page, len(Content) <= Limit.
	Content []T
	// Offset of the first row of the page.
	Offset int
	// Limit requested page size.
	Limit int
	// Total number of matching rows, nil when unknown.
	Total *int64
}

// HasTotal reports whether the total count is known.
func (p *Page[T]) HasTotal() bool {
	return p != nil && p.Total != nil
}

// GetTotal returns the total count and whether it is known.
func (p *Page[T]) GetTotal() (int64, bool) {
	if !p.HasTotal() {
		return 0, false
	}

	return *p.Total, true
}

// HasNext reports whether a following page may hold rows. With a known total
// the answer is exact; without it a full page means "maybe".
func (p *Page[T]) HasNext() bool {
	if p == nil {
		return false
	}

	if total, ok := p.GetTotal(); ok {
		return int64(p.Offset+len(p.Content)) < total
	}

	return len(p.Content) >= p.Limit
}

// IsLast reports whether p is the last page of the dataset.
func (p *Page[T]) IsLast() bool {
	return !p.HasNext()
}

// TotalPages returns the number of pages of size Limit needed for Total
// rows, and false when the total is unknown.
func (p *Page[T]) TotalPages() (int64, bool) {
	total, ok := p.GetTotal()
	if !ok || p.Limit <= 0 {
		return 0, false
	}

	return (total + int64(p.Limit) - 1) / int64(p.Limit), true
}

// NextToken returns the token of the following page, or nil when p is the
// last page.
func (p *Page[T]) NextToken() *PageToken {
	if p.IsLast() {
		return nil
	}

	return NewPageToken(p.Offset + len(p.Content))
}

// MapPage converts the content of a page, keeping its paging metadata.
func MapPage[T, R any](p *Page[T], fn func(T) R) *Page[R] {
	if p == nil {
		return nil
	}

	return &Page[R]{
		Content: lo.Map(p.Content, func(item T, _ int) R { return fn(item) }),
		Offset:  p.Offset,
		Limit:   p.Limit,
		Total:   p.Total,
	}
}
