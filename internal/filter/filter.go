// Package filter narrows and orders an in-memory working set of ideas.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Apply returns the ideas matching opts.SearchQuery, sorted by opts.SortBy
// in opts.SortOrder. The input slice is not modified. Ties keep their input
// order in both directions.
func Apply(ideas []types.Idea, opts types.FilterOptions) []types.Idea {
	opts = opts.Normalized()

	out := make([]types.Idea, 0, len(ideas))
	query := strings.ToLower(strings.TrimSpace(opts.SearchQuery))
	for _, idea := range ideas {
		if query == "" || matches(idea, query) {
			out = append(out, idea)
		}
	}

	compare := byDate
	if opts.SortBy == types.SortByRating {
		compare = byRating
	}
	if opts.SortOrder == types.SortDesc {
		slices.SortStableFunc(out, func(a, b types.Idea) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}
	return out
}

// matches reports whether query occurs in the lowercased title or
// description. query must already be lowercased.
func matches(idea types.Idea, query string) bool {
	return strings.Contains(strings.ToLower(idea.Title), query) ||
		strings.Contains(strings.ToLower(idea.Description), query)
}

func byDate(a, b types.Idea) int {
	return a.CreatedAt.Compare(b.CreatedAt)
}

func byRating(a, b types.Idea) int {
	return cmp.Compare(a.EffectiveRating(), b.EffectiveRating())
}
