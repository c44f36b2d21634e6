package domain

// KPISet holds the derived business metrics for one record set. It is
// recomputed in full on every filter change; there is no incremental
// update model.
type KPISet struct {
	TotalRevenue     float64
	TransactionCount int
	AvgOrderValue    float64
	UnitsSold        int
	UniqueCustomers  int
	RepeatRate       float64
	GrossMargin      float64
	GrossMarginPct   float64
}
