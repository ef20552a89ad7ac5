package shared

import (
	"math"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PaginationFromQuery parses page and pageSize query parameters, falling back
// to page 1 with 20 rows. Page size is capped at 200.
func PaginationFromQuery(page, perPage string) Pagination {
	p, _ := strconv.Atoi(page)
	size, _ := strconv.Atoi(perPage)
	if p <= 0 {
		p = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return Pagination{Page: p, PerPage: size}
}

// Offset returns the row offset for the page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}
