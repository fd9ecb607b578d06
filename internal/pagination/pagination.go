// Package pagination splits ordered result sets into fixed-size numbered pages.
package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PageSize is the number of items on every listing page.
const PageSize = 24

// LastPage is the page value that selects the final page.
const LastPage = "last"

// ErrInvalidPage is returned for page values that are not numbers or fall outside the result set.
var ErrInvalidPage = errors.New("pagination: invalid page")

// Request is a parsed page selector.
type Request struct {
	Number int
	Last   bool
}

// ParsePage parses a raw page value. Empty selects page 1 and "last" selects the final page.
// Range checks happen in Resolve, once the total is known.
func ParsePage(raw string) (Request, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Request{Number: 1}, nil
	}
	if raw == LastPage {
		return Request{Last: true}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %q is not a number", ErrInvalidPage, raw)
	}
	return Request{Number: n}, nil
}

// Window is the slice of rows a page covers.
type Window struct {
	Number   int
	NumPages int
	Limit    int
	Offset   int
}

// NumPages returns the page count for total items. An empty set still has one page.
func NumPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// Resolve validates req against total and returns the rows to fetch.
func Resolve(req Request, total int64, perPage int) (Window, error) {
	if perPage <= 0 {
		perPage = PageSize
	}
	numPages := NumPages(total, perPage)
	number := req.Number
	if req.Last {
		number = numPages
	}
	if number < 1 {
		return Window{}, fmt.Errorf("%w: page %d is less than 1", ErrInvalidPage, number)
	}
	if number > numPages {
		return Window{}, fmt.Errorf("%w: page %d contains no results", ErrInvalidPage, number)
	}
	return Window{
		Number:   number,
		NumPages: numPages,
		Limit:    perPage,
		Offset:   (number - 1) * perPage,
	}, nil
}

// Page is one page of an ordered result set.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	PerPage  int
	Total    int64
}

// NewPage assembles a page from the resolved window and the fetched items.
func NewPage[T any](w Window, total int64, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Number:   w.Number,
		NumPages: w.NumPages,
		PerPage:  w.Limit,
		Total:    total,
	}
}

func (p Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p Page[T]) HasPrevious() bool { return p.Number > 1 }

// NextNumber returns the following page number, or 0 on the last page.
func (p Page[T]) NextNumber() int {
	if !p.HasNext() {
		return 0
	}
	return p.Number + 1
}

// PreviousNumber returns the preceding page number, or 0 on the first page.
func (p Page[T]) PreviousNumber() int {
	if !p.HasPrevious() {
		return 0
	}
	return p.Number - 1
}
