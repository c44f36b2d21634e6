package fixture

import (
	"context"
	"fmt"

	"github.com/sari-tools/sales-atlas/pkg/models/store"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
)

const (
	DefaultSeed         = 42
	DefaultTransactions = 2500
)

// Source is the deterministic in-memory DataSource. It honors the same
// predicate, projection and aggregate semantics as the warehouse but
// never fails.
type Source struct {
	ds     *dataset
	counts map[string]int64
}

func NewSource() *Source {
	return NewSourceWithSeed(DefaultSeed, DefaultTransactions)
}

func NewSourceWithSeed(seed int64, transactions int) *Source {
	ds := generate(seed, transactions)
	return &Source{
		ds: ds,
		counts: map[string]int64{
			datasource.TableTransactions: int64(len(ds.rows)),
			datasource.TableCustomers:    int64(len(ds.customers)),
			datasource.TableProducts:     int64(len(ds.products)),
			datasource.TableStores:       int64(len(ds.stores)),
			datasource.TableBrands:       int64(len(brandNames)),
		},
	}
}

func (s *Source) Query(
	_ context.Context,
	table string,
	proj datasource.Projection,
	pred datasource.Predicate,
	w datasource.Window,
) ([]store.TransactionRow, error) {
	if table != datasource.TableTransactions {
		return nil, &datasource.Error{
			Kind:  datasource.KindNotFound,
			Op:    "query",
			Table: table,
			Err:   fmt.Errorf("table is not queryable"),
		}
	}

	matched := make([]store.TransactionRow, 0)
	for _, row := range s.ds.rows {
		if matches(row, pred) {
			matched = append(matched, projectRow(row, proj))
		}
	}

	if w.Offset >= len(matched) {
		return []store.TransactionRow{}, nil
	}
	end := w.Offset + w.Limit
	if w.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[w.Offset:end], nil
}

func (s *Source) Aggregate(
	_ context.Context,
	table string,
	agg datasource.AggregateSpec,
	pred datasource.Predicate,
) (float64, error) {
	if table != datasource.TableTransactions {
		return 0, &datasource.Error{
			Kind:  datasource.KindNotFound,
			Op:    "aggregate",
			Table: table,
			Err:   fmt.Errorf("table has no aggregate support"),
		}
	}

	sum := 0.0
	count := 0.0
	for _, row := range s.ds.rows {
		if !matches(row, pred) {
			continue
		}
		count++
		if agg.Column == "amount" {
			sum += row.Amount
		}
	}

	switch agg.Op {
	case "sum":
		return sum, nil
	case "count":
		return count, nil
	case "avg":
		if count == 0 {
			return 0, nil
		}
		return sum / count, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate op: %s", agg.Op)
	}
}

// Rows returns the full generated record set in retrieval order.
// Intended for seeding a warehouse and for tests.
func (s *Source) Rows() []store.TransactionRow {
	return s.ds.rows
}

type StoreRecord struct {
	ID       string
	Name     string
	Barangay string
	Brand    string
}

type ProductRecord struct {
	ID       string
	Name     string
	Category string
	Brand    string
}

func (s *Source) Stores() []StoreRecord {
	out := make([]StoreRecord, 0, len(s.ds.stores))
	for _, st := range s.ds.stores {
		out = append(out, StoreRecord{ID: st.id, Name: st.name, Barangay: st.barangay, Brand: st.brand})
	}
	return out
}

func (s *Source) Products() []ProductRecord {
	out := make([]ProductRecord, 0, len(s.ds.products))
	for _, p := range s.ds.products {
		out = append(out, ProductRecord{ID: p.id, Name: p.name, Category: p.category, Brand: p.brand})
	}
	return out
}

func (s *Source) Customers() []string {
	return s.ds.customers
}

func (s *Source) Brands() []string {
	return brandNames
}

func (s *Source) Count(_ context.Context, table string) (int64, error) {
	count, ok := s.counts[table]
	if !ok {
		return 0, &datasource.Error{
			Kind:  datasource.KindNotFound,
			Op:    "count",
			Table: table,
			Err:   fmt.Errorf("unknown table"),
		}
	}
	return count, nil
}

func matches(row store.TransactionRow, pred datasource.Predicate) bool {
	if pred.From != nil && row.Timestamp.Before(*pred.From) {
		return false
	}
	if pred.To != nil && row.Timestamp.After(*pred.To) {
		return false
	}
	if values := pred.In[datasource.DimStore]; len(values) > 0 && !contains(values, row.StoreID) {
		return false
	}
	if values := pred.In[datasource.DimBarangay]; len(values) > 0 && !contains(values, row.Barangay.String) {
		return false
	}
	if values := pred.In[datasource.DimBrand]; len(values) > 0 && !contains(values, row.Brand.String) {
		return false
	}
	if values := pred.In[datasource.DimCategory]; len(values) > 0 {
		found := false
		for _, item := range row.Items {
			if contains(values, item.Category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func projectRow(row store.TransactionRow, proj datasource.Projection) store.TransactionRow {
	if proj == datasource.ProjectionFull {
		return row
	}
	// The flat projection carries transaction columns only.
	row.StoreName.Valid = false
	row.Barangay.Valid = false
	row.Brand.Valid = false
	row.Items = nil
	return row
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
