// Package utils holds the query parsing helpers shared by list endpoints.
package utils

import (
	"strconv"
	"strings"
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages is how many pages of p.Size hold total rows.
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether another page follows p.
func (p Page) HasNext(total int64) bool { return p.Number < p.TotalPages(total) }

// ParsePage reads page and page_size values. Missing or malformed input
// falls back to page 1 of defSize; sizes are clamped to [1, maxSize].
func ParsePage(page, size string, defSize, maxSize int) Page {
	return Page{
		Number: Clamp(AtoiDefault(page, 1), 1, int(^uint(0)>>1)),
		Size:   Clamp(AtoiDefault(size, defSize), 1, maxSize),
	}
}

// AtoiDefault parses s, ignoring surrounding space, or returns def.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
