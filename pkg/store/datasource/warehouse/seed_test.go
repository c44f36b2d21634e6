package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/sari-tools/sales-atlas/pkg/services/audit"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedFromFixture(t *testing.T, ctx context.Context, db *sql.DB, src *fixture.Source) {
	seeder, err := NewSeeder(db)
	require.NoError(t, err)

	for _, st := range src.Stores() {
		require.NoError(t, seeder.AddStore(ctx, st.ID, st.Name, st.Barangay, st.Brand))
	}
	for _, p := range src.Products() {
		require.NoError(t, seeder.AddProduct(ctx, p.ID, p.Name, p.Category, p.Brand))
	}
	for i, c := range src.Customers() {
		require.NoError(t, seeder.AddCustomer(ctx, c, fmt.Sprintf("Customer %04d", i+1)))
	}
	for i, b := range src.Brands() {
		require.NoError(t, seeder.AddBrand(ctx, fmt.Sprintf("brand-%03d", i+1), b))
	}
	require.NoError(t, seeder.AddTransactions(ctx, src.Rows()))
}

func TestSeededWarehouse_MatchesFixture(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 120)
	seedFromFixture(t, ctx, db, fx)

	src, err := NewSource(db)
	require.NoError(t, err)

	count, err := src.Count(ctx, datasource.TableTransactions)
	require.NoError(t, err)
	assert.Equal(t, int64(120), count)

	stores, err := src.Count(ctx, datasource.TableStores)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stores)

	// The warehouse must agree with the fixture on total revenue.
	fxSum, err := fx.Aggregate(ctx, datasource.TableTransactions,
		datasource.AggregateSpec{Op: "sum", Column: "amount"}, datasource.Predicate{})
	require.NoError(t, err)

	whSum, err := src.Aggregate(ctx, datasource.TableTransactions,
		datasource.AggregateSpec{Op: "sum", Column: "amount"}, datasource.Predicate{})
	require.NoError(t, err)
	assert.InDelta(t, fxSum, whSum, 1e-6)
}

func TestSeededWarehouse_FullProjectionCarriesDimensionsAndItems(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 60)
	seedFromFixture(t, ctx, db, fx)

	src, err := NewSource(db)
	require.NoError(t, err)

	rows, err := src.Query(ctx, datasource.TableTransactions,
		datasource.ProjectionFull, datasource.Predicate{}, datasource.Window{Limit: 1000})

	require.NoError(t, err)
	require.Len(t, rows, 60)
	for _, row := range rows {
		assert.True(t, row.StoreName.Valid)
		assert.True(t, row.Barangay.Valid)
		assert.True(t, row.Brand.Valid)
		assert.NotEmpty(t, row.Items)
		for _, item := range row.Items {
			assert.NotEmpty(t, item.Category)
			assert.Greater(t, item.Quantity, 0)
		}
	}
}

func TestSeededWarehouse_BarangayPredicate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 200)
	seedFromFixture(t, ctx, db, fx)

	src, err := NewSource(db)
	require.NoError(t, err)

	pred := datasource.Predicate{In: map[string][]string{
		datasource.DimBarangay: {"Poblacion"},
	}}
	rows, err := src.Query(ctx, datasource.TableTransactions,
		datasource.ProjectionFull, pred, datasource.Window{Limit: 1000})

	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.Equal(t, "Poblacion", row.Barangay.String)
	}

	expected, err := fx.Query(ctx, datasource.TableTransactions,
		datasource.ProjectionFull, pred, datasource.Window{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, rows, len(expected))
}

// Flat and full projections must cover the same records for the same
// predicate; only the selected columns may differ.
func TestSeededWarehouse_FlatProjectionMatchesFullScope(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 400)
	seedFromFixture(t, ctx, db, fx)

	src, err := NewSource(db)
	require.NoError(t, err)

	preds := []datasource.Predicate{
		{In: map[string][]string{datasource.DimBarangay: {"Poblacion"}}},
		{In: map[string][]string{datasource.DimBrand: {"SariPrime"}}},
		{In: map[string][]string{datasource.DimCategory: {"snacks"}}},
	}
	for _, pred := range preds {
		full, err := src.Query(ctx, datasource.TableTransactions,
			datasource.ProjectionFull, pred, datasource.Window{Limit: 1000})
		require.NoError(t, err)
		require.NotEmpty(t, full)
		assert.Less(t, len(full), 400)

		flat, err := src.Query(ctx, datasource.TableTransactions,
			datasource.ProjectionFlat, pred, datasource.Window{Limit: 1000})
		require.NoError(t, err)
		require.Len(t, flat, len(full))
		for i := range full {
			assert.Equal(t, full[i].ID, flat[i].ID)
		}
	}
}

func TestSeededWarehouse_AggregateMatchesFlatSumUnderDimensionPredicate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 400)
	seedFromFixture(t, ctx, db, fx)

	src, err := NewSource(db)
	require.NoError(t, err)

	pred := datasource.Predicate{In: map[string][]string{
		datasource.DimBarangay: {"Poblacion"},
	}}

	rows, err := src.Query(ctx, datasource.TableTransactions,
		datasource.ProjectionFlat, pred, datasource.Window{Limit: 1000})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	local := 0.0
	for _, row := range rows {
		local += row.Amount
	}

	reported, err := src.Aggregate(ctx, datasource.TableTransactions,
		datasource.AggregateSpec{Op: "sum", Column: "amount"}, pred)
	require.NoError(t, err)
	assert.InDelta(t, local, reported, 1e-6)
}

func TestSeededWarehouse_AuditCleanUnderDimensionFilter(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 400)
	seedFromFixture(t, ctx, db, fx)

	src, err := NewSource(db)
	require.NoError(t, err)
	auditor, err := audit.NewEngine(src, audit.DefaultSettings())
	require.NoError(t, err)

	report, err := auditor.Run(ctx, datasource.Predicate{In: map[string][]string{
		datasource.DimBarangay: {"Poblacion"},
	}})

	require.NoError(t, err)
	// Clean filtered data: the local sum and the backend aggregate cover
	// the same scope, so no variance finding may appear.
	assert.InDelta(t, 0, report.RevenueVariance.Pct, 1e-6)
	assert.Equal(t, 0, report.DuplicateCount)
	assert.Greater(t, report.QualityScore, 90.0)
	for _, f := range report.Findings {
		assert.NotEqual(t, "revenue_variance", f.Issue)
	}
}

func TestSeeder_RollbackLeavesWarehouseEmpty(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fx := fixture.NewSourceWithSeed(7, 30)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	txCtx := WithTransaction(ctx, tx)

	seeder, err := NewSeeder(db)
	require.NoError(t, err)
	for _, st := range fx.Stores() {
		require.NoError(t, seeder.AddStore(txCtx, st.ID, st.Name, st.Barangay, st.Brand))
	}
	require.NoError(t, seeder.AddTransactions(txCtx, fx.Rows()))
	require.NoError(t, tx.Rollback())

	src, err := NewSource(db)
	require.NoError(t, err)
	count, err := src.Count(ctx, datasource.TableTransactions)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
