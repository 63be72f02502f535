package service

import (
	"strconv"
	"strings"
)

// Page describes one page of a paginated listing.
type Page struct {
	Number      int  `json:"number"`
	Size        int  `json:"size"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// Offset returns the index of the first row on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ResolvePage clamps the requested page into range. Non-numeric and
// non-positive requests yield page 1; requests past the end yield the last
// page. An empty listing still has one page.
func ResolvePage(raw string, totalCount, size int) Page {
	if size <= 0 {
		size = 10
	}
	totalPages := (totalCount + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}
	return Page{
		Number:      number,
		Size:        size,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasPrevious: number > 1,
		HasNext:     number < totalPages,
	}
}
