package user

import (
	"errors"
	"math"
)

const (
	// DefaultPage is the page index used when the caller omits one.
	DefaultPage = 0
	// DefaultPageSize is the page size used when the caller omits one.
	DefaultPageSize = 25
	// MaxPageSize caps the number of items returned in a single page.
	MaxPageSize = 100
)

// Page is one slice of an ordered result set.
// Page numbering is zero-based.
type Page[T any] struct {
	Items []T
	Page  int   // Current page index
	Size  int   // Requested page size
	Total int64 // Total number of records across all pages
}

// NewPage creates a Page with the given items and metadata.
func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Page:  page,
		Size:  size,
		Total: total,
	}
}

// TotalPages returns the number of pages needed to hold Total records.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// ErrPageOutOfRange is returned when page and size do not address a valid record offset.
var ErrPageOutOfRange = errors.New("page out of range")

// Offset returns the index of the first record of page for the given size.
// It fails instead of overflowing when page*size does not fit in an int.
func Offset(page, size int) (int, error) {
	if page < 0 || size < 1 || page > math.MaxInt/size {
		return 0, ErrPageOutOfRange
	}
	return page * size, nil
}

// MapPage converts every item of p with f, keeping the page metadata.
func MapPage[T, R any](p Page[T], f func(T) R) Page[R] {
	out := make([]R, len(p.Items))
	for i, item := range p.Items {
		out[i] = f(item)
	}
	return Page[R]{
		Items: out,
		Page:  p.Page,
		Size:  p.Size,
		Total: p.Total,
	}
}
