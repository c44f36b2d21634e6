package store

import (
	"database/sql"
	"time"
)

// TransactionRow is the persistence-layer shape of one sale. Store
// dimension columns are only populated by the full projection; the flat
// projection leaves them invalid.
type TransactionRow struct {
	ID         string
	Timestamp  time.Time
	Amount     float64
	CustomerID sql.NullString
	StoreID    string
	StoreName  sql.NullString
	Barangay   sql.NullString
	Brand      sql.NullString
	Items      []LineItemRow
}

type LineItemRow struct {
	TransactionID string
	ProductID     string
	Category      string
	Quantity      int
	UnitPrice     float64
	UnitCost      sql.NullFloat64
}
