package adapters

import (
	"github.com/sari-tools/sales-atlas/pkg/models/api"
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
)

func MapDomainKPISetToAPI(k domain.KPISet) api.KPISet {
	return api.KPISet{
		TotalRevenue:     k.TotalRevenue,
		TransactionCount: k.TransactionCount,
		AvgOrderValue:    k.AvgOrderValue,
		UnitsSold:        k.UnitsSold,
		UniqueCustomers:  k.UniqueCustomers,
		RepeatRate:       k.RepeatRate,
		GrossMargin:      k.GrossMargin,
		GrossMarginPct:   k.GrossMarginPct,
	}
}
