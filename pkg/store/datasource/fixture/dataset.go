package fixture

import (
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sari-tools/sales-atlas/pkg/models/store"
)

// The fixture dataset is generated, not hand-written, but fully
// deterministic: the same seed always yields the same records in the
// same order. The anchor date is fixed so that generated timestamps do
// not drift between runs.
var anchor = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

var barangays = []string{
	"Poblacion", "San Isidro", "Bagong Silang", "Malanday", "Santo Nino", "Concepcion",
}

var brandNames = []string{
	"SariPrime", "TindaMart", "AllDay", "BuenaVista",
}

var categories = []string{
	"beverages", "snacks", "household", "personal_care", "canned_goods", "condiments",
}

type fixtureStore struct {
	id       string
	name     string
	barangay string
	brand    string
}

type fixtureProduct struct {
	id        string
	name      string
	category  string
	brand     string
	unitPrice float64
}

type dataset struct {
	stores    []fixtureStore
	products  []fixtureProduct
	customers []string
	rows      []store.TransactionRow
}

func generate(seed int64, transactions int) *dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &dataset{}

	for i := 0; i < 12; i++ {
		ds.stores = append(ds.stores, fixtureStore{
			id:       fmt.Sprintf("store-%03d", i+1),
			name:     fmt.Sprintf("Store %03d", i+1),
			barangay: barangays[i%len(barangays)],
			brand:    brandNames[i%len(brandNames)],
		})
	}

	for i := 0; i < 48; i++ {
		ds.products = append(ds.products, fixtureProduct{
			id:        fmt.Sprintf("prod-%03d", i+1),
			name:      fmt.Sprintf("Product %03d", i+1),
			category:  categories[i%len(categories)],
			brand:     brandNames[i%len(brandNames)],
			unitPrice: round2(5 + rng.Float64()*195),
		})
	}

	for i := 0; i < 150; i++ {
		ds.customers = append(ds.customers, fmt.Sprintf("cust-%04d", i+1))
	}

	span := 180 * 24 * time.Hour
	for i := 0; i < transactions; i++ {
		st := ds.stores[rng.Intn(len(ds.stores))]
		ts := anchor.Add(-time.Duration(rng.Int63n(int64(span))))

		row := store.TransactionRow{
			ID:        fmt.Sprintf("txn-%06d", i+1),
			Timestamp: ts,
			StoreID:   st.id,
			StoreName: sql.NullString{String: st.name, Valid: true},
			Barangay:  sql.NullString{String: st.barangay, Valid: true},
			Brand:     sql.NullString{String: st.brand, Valid: true},
		}

		// Roughly one in ten sales is a walk-in with no customer id.
		if rng.Float64() >= 0.1 {
			row.CustomerID = sql.NullString{
				String: ds.customers[rng.Intn(len(ds.customers))],
				Valid:  true,
			}
		}

		itemCount := 1 + rng.Intn(5)
		total := 0.0
		for j := 0; j < itemCount; j++ {
			p := ds.products[rng.Intn(len(ds.products))]
			qty := 1 + rng.Intn(6)
			item := store.LineItemRow{
				TransactionID: row.ID,
				ProductID:     p.id,
				Category:      p.category,
				Quantity:      qty,
				UnitPrice:     p.unitPrice,
			}
			// Cost is on file for most products, at 70-85% of price.
			if rng.Float64() >= 0.1 {
				item.UnitCost = sql.NullFloat64{
					Float64: round2(p.unitPrice * (0.70 + rng.Float64()*0.15)),
					Valid:   true,
				}
			}
			total += float64(qty) * p.unitPrice
			row.Items = append(row.Items, item)
		}
		row.Amount = round2(total)

		ds.rows = append(ds.rows, row)
	}

	sort.Slice(ds.rows, func(i, j int) bool {
		if !ds.rows[i].Timestamp.Equal(ds.rows[j].Timestamp) {
			return ds.rows[i].Timestamp.Before(ds.rows[j].Timestamp)
		}
		return ds.rows[i].ID < ds.rows[j].ID
	})

	return ds
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
