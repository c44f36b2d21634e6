package retrieval

import (
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
)

// BuildPredicate translates a FilterState into the DataSource predicate:
// date range to inclusive bounds, non-empty dimension slices to "value
// in set", empty slices to no clause at all.
func BuildPredicate(fs domain.FilterState) datasource.Predicate {
	c := fs.Canonical()
	pred := datasource.Predicate{
		From: c.From,
		To:   c.To,
	}

	in := map[string][]string{}
	if len(c.Barangays) > 0 {
		in[datasource.DimBarangay] = c.Barangays
	}
	if len(c.Brands) > 0 {
		in[datasource.DimBrand] = c.Brands
	}
	if len(c.Categories) > 0 {
		in[datasource.DimCategory] = c.Categories
	}
	if len(c.Stores) > 0 {
		in[datasource.DimStore] = c.Stores
	}
	if len(in) > 0 {
		pred.In = in
	}

	return pred
}
