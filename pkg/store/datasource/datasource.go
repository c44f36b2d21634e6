package datasource

import (
	"context"
	"time"

	"github.com/sari-tools/sales-atlas/pkg/models/store"
)

// Table names shared by every DataSource implementation.
const (
	TableTransactions = "transactions"
	TableCustomers    = "customers"
	TableProducts     = "products"
	TableStores       = "stores"
	TableBrands       = "brands"
)

// Dimension names a predicate may restrict. They map onto columns in
// the warehouse schema and onto record fields in the fixture.
const (
	DimBarangay = "barangay"
	DimBrand    = "brand"
	DimCategory = "category"
	DimStore    = "store_id"
)

// Projection selects the record shape a query returns.
type Projection int

const (
	// ProjectionFull joins store dimensions and fetches line items.
	ProjectionFull Projection = iota
	// ProjectionFlat selects transaction columns only. The fallback
	// shape when the backend rejects the full projection.
	ProjectionFlat
)

func (p Projection) String() string {
	if p == ProjectionFlat {
		return "flat"
	}
	return "full"
}

// Predicate restricts a query. Date bounds are inclusive; a dimension
// absent from In carries no clause at all.
type Predicate struct {
	From *time.Time
	To   *time.Time
	In   map[string][]string
}

// Window is one bounded page of a batched retrieval.
type Window struct {
	Offset int
	Limit  int
}

// AggregateSpec names a single-scalar reduction computed by the backend
// itself, independently of any local arithmetic.
type AggregateSpec struct {
	Op     string // sum, count, avg
	Column string
}

// DataSource is the uniform query/aggregate surface over the record
// store. Two implementations exist: the live warehouse and the
// deterministic in-memory fixture. The implementation is chosen once at
// construction; switching mid-pagination is outside the contract.
type DataSource interface {
	Query(ctx context.Context, table string, proj Projection, pred Predicate, w Window) ([]store.TransactionRow, error)
	Aggregate(ctx context.Context, table string, agg AggregateSpec, pred Predicate) (float64, error)
	Count(ctx context.Context, table string) (int64, error)
}
