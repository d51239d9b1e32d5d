// Package utils has small helpers shared by the HTTP and service layers.
package utils

import (
	"strconv"
	"strings"
)

// Paging limits for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page number and a page size.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads raw page and page_size values. Missing or malformed
// values take the defaults, the number is at least 1 and the size is
// clamped to [1, MaxPageSize].
func ParsePage(number, size string) Page {
	return Page{
		Number: max(atoiOr(number, 1), 1),
		Size:   ClampInt(atoiOr(size, DefaultPageSize), 1, MaxPageSize),
	}
}

// Normalize replaces a number below 1 with 1 and a non-positive size with
// def, or DefaultPageSize when def is not positive either.
func (p Page) Normalize(def int) Page {
	if def <= 0 {
		def = DefaultPageSize
	}
	if p.Size <= 0 {
		p.Size = def
	}
	p.Number = max(p.Number, 1)
	return p
}

// Offset is the number of rows before the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages is how many pages of this size hold total rows.
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// ClampInt bounds n to [lo, hi].
func ClampInt(n, lo, hi int) int {
	return min(max(n, lo), hi)
}
