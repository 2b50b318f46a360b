package shared

import (
	"net/url"
	"strconv"
)

// Listing windows.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page is a limit/offset window over a listing, numbered from 1.
type Page struct {
	Number int
	Size   int
}

// PageFromQuery reads the page and perPage query parameters. Missing or
// invalid values fall back to the first page of DefaultPageSize rows.
func PageFromQuery(q url.Values) Page {
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("perPage"))
	if number <= 0 {
		number = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
