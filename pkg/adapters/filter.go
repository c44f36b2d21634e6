package adapters

import (
	"time"

	"github.com/sari-tools/sales-atlas/pkg/models/api"
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
)

const filterDateLayout = "2006-01-02"

func MapDomainFilterStateToAPI(fs domain.FilterState) api.FilterState {
	out := api.FilterState{
		Barangays:     fs.Barangays,
		Brands:        fs.Brands,
		Categories:    fs.Categories,
		Stores:        fs.Stores,
		ActiveFilters: fs.ActiveFilterCount(),
	}
	if fs.From != nil {
		out.From = fs.From.Format(filterDateLayout)
	}
	if fs.To != nil {
		out.To = fs.To.Format(filterDateLayout)
	}
	return out
}

func MapDomainSeverityToAPI(s domain.Severity) api.Severity {
	switch s {
	case domain.SeverityCritical:
		return api.SeverityCritical
	case domain.SeverityModerate:
		return api.SeverityModerate
	default:
		return api.SeverityInfo
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
