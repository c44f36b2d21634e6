package domain

import "time"

// StoreMeta carries the joined store dimensions attached to a record by
// the full projection. Absent under the flat projection.
type StoreMeta struct {
	Name     string
	Barangay string
	Brand    string
}

type LineItem struct {
	ProductID string
	Category  string
	Quantity  int
	UnitPrice float64
	// UnitCost is nil when the upstream catalog has no cost on file.
	// Margin math treats a nil cost as zero.
	UnitCost *float64
}

// TransactionRecord is one sale as seen by the aggregation pipeline.
// IDs are globally unique within a session; a duplicate indicates an
// upstream defect and is detected by the audit engine, never silently
// deduplicated.
type TransactionRecord struct {
	ID         string
	Timestamp  time.Time
	Amount     float64
	CustomerID *string
	StoreID    string
	Store      *StoreMeta
	LineItems  []LineItem
}

// RetrievalResult is the outcome of one complete batched retrieval.
type RetrievalResult struct {
	Records []TransactionRecord
	// Windows is the number of pages fetched.
	Windows int
	// Truncated reports that the safety cap stopped the retrieval before
	// end of data. A warning, not an error.
	Truncated bool
}
