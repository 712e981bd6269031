package repository

// Page is a normalized pagination request: page >= 1, limit in [1, 100]
// (default 20).
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps a raw (page, limit) pair to the allowed range.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Number: page, Limit: limit}
}

// Offset returns the SQL OFFSET for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Result wraps a page of items alongside the total row count across all
// pages, so callers can render "page 2 of 5" without a second round trip.
type Result[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}
