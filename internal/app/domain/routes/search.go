package routes

import (
	"strings"

	a "github.com/petar-dambovaliev/aho-corasick"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/slug"
)

// Matcher finds routes whose text contains every term of a query. Text and
// terms are folded the way slugs are, so "Kadıköy" matches "kadikoy".
type Matcher struct {
	terms   []string
	matcher a.AhoCorasick
}

// NewMatcher prepares query for matching. It returns nil for a blank query,
// which matches everything.
func NewMatcher(query string) *Matcher {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}
	builder := a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
	})
	return &Matcher{terms: terms, matcher: builder.Build(terms)}
}

// Match reports whether all query terms occur in the route's title, summary,
// description, tags or stop names.
func (m *Matcher) Match(r models.Route, places models.PlaceLookup) bool {
	if m == nil {
		return true
	}
	haystack := routeText(r, places)

	found := make([]bool, len(m.terms))
	remaining := len(m.terms)
	iter := m.matcher.Iter(haystack)
	for match := iter.Next(); match != nil && remaining > 0; match = iter.Next() {
		if p := match.Pattern(); !found[p] {
			found[p] = true
			remaining--
		}
	}
	// Non-overlapping iteration can hide a term that overlaps an earlier hit.
	for i, term := range m.terms {
		if !found[i] && !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// Filter returns the routes that match, preserving order.
func (m *Matcher) Filter(routes []models.Route, places models.PlaceLookup) []models.Route {
	if m == nil {
		return routes
	}
	out := make([]models.Route, 0, len(routes))
	for _, r := range routes {
		if m.Match(r, places) {
			out = append(out, r)
		}
	}
	return out
}

func queryTerms(query string) []string {
	var terms []string
	for _, field := range strings.Fields(query) {
		if t := slug.Make(field); t != "" {
			terms = append(terms, t)
		}
	}
	// A term contained in a longer one is implied by it.
	kept := make([]string, 0, len(terms))
	for i, t := range terms {
		implied := false
		for j, other := range terms {
			if i != j && strings.Contains(other, t) && (len(other) > len(t) || j < i) {
				implied = true
				break
			}
		}
		if !implied {
			kept = append(kept, t)
		}
	}
	return kept
}

func routeText(r models.Route, places models.PlaceLookup) string {
	parts := make([]string, 0, 3+len(r.Tags)+len(r.Stops))
	parts = append(parts, r.Title, r.Summary, r.Description)
	parts = append(parts, r.Tags...)
	for _, s := range r.Stops {
		parts = append(parts, s.DisplayName(places))
	}
	return slug.Make(strings.Join(parts, " "))
}
