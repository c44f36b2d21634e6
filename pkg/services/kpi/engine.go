package kpi

import (
	"sync"

	"github.com/sari-tools/sales-atlas/pkg/models/domain"
)

// Derive computes the full KPI set from a record set. Pure function, no
// I/O; every divide is guarded so an empty set yields zeroes.
func Derive(records []domain.TransactionRecord) domain.KPISet {
	k := domain.KPISet{TransactionCount: len(records)}

	ordersByCustomer := make(map[string]int)

	for _, rec := range records {
		k.TotalRevenue += rec.Amount

		if rec.CustomerID != nil {
			ordersByCustomer[*rec.CustomerID]++
		}

		for _, item := range rec.LineItems {
			k.UnitsSold += item.Quantity
			// A missing unit cost counts as zero. This inflates margin
			// for cost-less items; the behavior is intentional and must
			// not be corrected here without upstream confirmation.
			cost := 0.0
			if item.UnitCost != nil {
				cost = *item.UnitCost
			}
			k.GrossMargin += (item.UnitPrice - cost) * float64(item.Quantity)
		}
	}

	k.UniqueCustomers = len(ordersByCustomer)

	repeat := 0
	for _, orders := range ordersByCustomer {
		if orders > 1 {
			repeat++
		}
	}

	if k.TransactionCount > 0 {
		k.AvgOrderValue = k.TotalRevenue / float64(k.TransactionCount)
	}
	if k.UniqueCustomers > 0 {
		k.RepeatRate = float64(repeat) / float64(k.UniqueCustomers)
	}
	if k.TotalRevenue > 0 {
		k.GrossMarginPct = k.GrossMargin / k.TotalRevenue
	}

	return k
}

// Engine memoizes the derived set for the most recent FilterState
// fingerprint. An unchanged state returns the cached set without
// touching the records; any other state recomputes from scratch.
type Engine struct {
	mu          sync.Mutex
	fingerprint string
	cached      domain.KPISet
	valid       bool
}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Derive(fs domain.FilterState, records []domain.TransactionRecord) domain.KPISet {
	fingerprint := fs.Fingerprint()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.valid && e.fingerprint == fingerprint {
		return e.cached
	}

	e.cached = Derive(records)
	e.fingerprint = fingerprint
	e.valid = true
	return e.cached
}

// Invalidate drops the memoized set, forcing the next call to
// recompute. Used by the periodic refresh, where the state is unchanged
// but the backing data may not be.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.valid = false
}
