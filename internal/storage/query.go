package storage

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Page describes the requested slice of a listing.
type Page struct {
	Number int
	Limit  int
}

func (p Page) normalized() (Page, error) {
	if p.Number == 0 {
		p.Number = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Number < 1 {
		return Page{}, InvalidInputError("page must be a positive integer")
	}
	if p.Limit < 1 {
		return Page{}, InvalidInputError("limit must be a positive integer")
	}
	return p, nil
}

// paginate slices items according to page and reports the total page count
// as ceil(len(items)/limit). The caller sorts before paginating.
func paginate[T any](items []T, page Page) ([]T, int) {
	pages := (len(items) + page.Limit - 1) / page.Limit
	skip := (page.Number - 1) * page.Limit
	if skip >= len(items) {
		return []T{}, pages
	}
	end := skip + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end], pages
}

// foldContains reports whether haystack contains needle under Unicode case
// folding. An empty needle matches everything.
func foldContains(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

// matchesSearch ORs the search term across the entity's text fields.
func matchesSearch(search string, fields ...string) bool {
	if strings.TrimSpace(search) == "" {
		return true
	}
	for _, field := range fields {
		if foldContains(field, search) {
			return true
		}
	}
	return false
}
