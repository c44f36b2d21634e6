package domain

import (
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// FilterState is the canonical set of user-selected query dimensions.
// Slice fields hold unique identifiers; an empty slice means "no
// restriction", never "match nothing".
type FilterState struct {
	From       *time.Time
	To         *time.Time
	Barangays  []string
	Brands     []string
	Categories []string
	Stores     []string
}

// Canonical returns a copy with every dimension slice sorted and
// deduplicated. Two FilterStates that select the same data have equal
// canonical forms.
func (f FilterState) Canonical() FilterState {
	return FilterState{
		From:       f.From,
		To:         f.To,
		Barangays:  canonicalSet(f.Barangays),
		Brands:     canonicalSet(f.Brands),
		Categories: canonicalSet(f.Categories),
		Stores:     canonicalSet(f.Stores),
	}
}

// ActiveFilterCount counts non-empty fields. It exists for presentation
// purposes only and carries no query semantics.
func (f FilterState) ActiveFilterCount() int {
	count := 0
	if f.From != nil || f.To != nil {
		count++
	}
	for _, dim := range [][]string{f.Barangays, f.Brands, f.Categories, f.Stores} {
		if len(dim) > 0 {
			count++
		}
	}
	return count
}

// Fingerprint returns a stable string identifying the canonical form.
// Used as the memoization key for derived metrics and to compare
// in-flight retrievals against the current state.
func (f FilterState) Fingerprint() string {
	c := f.Canonical()
	var b strings.Builder
	b.WriteString("from=")
	if c.From != nil {
		b.WriteString(c.From.UTC().Format(time.RFC3339))
	}
	b.WriteString("|to=")
	if c.To != nil {
		b.WriteString(c.To.UTC().Format(time.RFC3339))
	}
	b.WriteString("|barangays=")
	b.WriteString(strings.Join(c.Barangays, ","))
	b.WriteString("|brands=")
	b.WriteString(strings.Join(c.Brands, ","))
	b.WriteString("|categories=")
	b.WriteString(strings.Join(c.Categories, ","))
	b.WriteString("|stores=")
	b.WriteString(strings.Join(c.Stores, ","))
	return b.String()
}

func canonicalSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return out
}
