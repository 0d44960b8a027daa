package types

import (
	"fmt"
	"strings"
)

// SortBy selects the sort key for filtered views.
type SortBy string

// Sort keys. The zero value sorts by date.
const (
	SortByDate   SortBy = "date"
	SortByRating SortBy = "rating"
)

// SortOrder selects the sort direction. The zero value is descending.
type SortOrder string

// Sort directions.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterOptions drive filter.Apply.
type FilterOptions struct {
	SearchQuery string    `json:"search_query,omitempty"`
	SortBy      SortBy    `json:"sort_by,omitempty"`
	SortOrder   SortOrder `json:"sort_order,omitempty"`
}

// DefaultFilterOptions returns newest-first with no search.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{SortBy: SortByDate, SortOrder: SortDesc}
}

// Normalized fills zero values with defaults.
func (o FilterOptions) Normalized() FilterOptions {
	if o.SortBy == "" {
		o.SortBy = SortByDate
	}
	if o.SortOrder == "" {
		o.SortOrder = SortDesc
	}
	return o
}

// IsDefault reports whether the options leave the working set as loaded:
// no search and newest first.
func (o FilterOptions) IsDefault() bool {
	n := o.Normalized()
	return strings.TrimSpace(n.SearchQuery) == "" && n.SortBy == SortByDate && n.SortOrder == SortDesc
}

// ParseSortBy parses "date" or "rating" (case-insensitive). An empty string
// yields SortByDate.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByRating:
		return SortByRating, nil
	default:
		return "", fmt.Errorf("sort by %q: %w", s, ErrInvalidSort)
	}
}

// ParseSortOrder parses "asc" or "desc" (case-insensitive). An empty string
// yields SortDesc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDesc:
		return SortDesc, nil
	case SortAsc:
		return SortAsc, nil
	default:
		return "", fmt.Errorf("sort order %q: %w", s, ErrInvalidSort)
	}
}
