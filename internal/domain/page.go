package domain

import "math"

// Page sizes enforced at the HTTP boundary.
const (
	DefaultPageSize         = 20
	MaxPageSize             = 100
	DefaultExchangePageSize = 50
	MaxExchangePageSize     = 200
)

// PageRequest is a 1-indexed offset page.
type PageRequest struct {
	Page     int
	PageSize int
}

// MaxPage is the highest page number whose offset fits in an int for the
// given page size.
func MaxPage(pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return (math.MaxInt-pageSize)/pageSize + 1
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a listing together with the total row count.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPage builds a page, never leaving Items nil so it encodes as [].
func NewPage[T any](items []T, total int64, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize}
}
