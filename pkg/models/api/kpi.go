package api

import "time"

type KPISet struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TransactionCount int     `json:"transaction_count"`
	AvgOrderValue    float64 `json:"avg_order_value"`
	UnitsSold        int     `json:"units_sold"`
	UniqueCustomers  int     `json:"unique_customers"`
	RepeatRate       float64 `json:"repeat_rate"`
	GrossMargin      float64 `json:"gross_margin"`
	GrossMarginPct   float64 `json:"gross_margin_pct"`
}

type SnapshotStatus string

const (
	StatusLoading SnapshotStatus = "loading"
	StatusReady   SnapshotStatus = "ready"
	StatusError   SnapshotStatus = "error"
)

// Snapshot is the wire shape of the latest pipeline state. KPIs is nil
// while the first run is in flight or after a terminal error.
type Snapshot struct {
	Status    SnapshotStatus `json:"status"`
	Filters   FilterState    `json:"filters"`
	KPIs      *KPISet        `json:"kpis,omitempty"`
	Windows   int            `json:"windows,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}
