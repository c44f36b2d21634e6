package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sari-tools/sales-atlas/pkg/models/store"
)

// Seeder writes transaction rows and their dimensions into the
// warehouse. Used to load fixture data for local deployments and
// integration tests; the aggregation pipeline itself never writes.
type Seeder struct {
	db *sql.DB
}

func NewSeeder(db *sql.DB) (*Seeder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Seeder{db: db}, nil
}

// AddTransactions inserts rows plus their line items. Dimension rows
// (stores, products) referenced by the transactions must already exist.
// Runs inside the ambient transaction when one is on the context.
func (s *Seeder) AddTransactions(ctx context.Context, rows []store.TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	txStmt, err := s.prepare(ctx, `
		INSERT INTO transactions (id, ts, amount, customer_id, store_id)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer txStmt.Close()

	itemStmt, err := s.prepare(ctx, `
		INSERT INTO transaction_items (transaction_id, product_id, quantity, unit_price, unit_cost)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, row := range rows {
		if _, err := txStmt.ExecContext(ctx,
			row.ID, row.Timestamp, row.Amount, row.CustomerID, row.StoreID,
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", row.ID, err)
		}
		for _, item := range row.Items {
			if _, err := itemStmt.ExecContext(ctx,
				item.TransactionID, item.ProductID, item.Quantity, item.UnitPrice, item.UnitCost,
			); err != nil {
				return fmt.Errorf("insert item for %s: %w", row.ID, err)
			}
		}
	}

	return nil
}

func (s *Seeder) AddStore(ctx context.Context, id, name, barangay, brand string) error {
	err := s.exec(ctx,
		"INSERT INTO stores (id, name, barangay, brand) VALUES (?, ?, ?, ?)",
		id, name, barangay, brand)
	if err != nil {
		return fmt.Errorf("insert store %s: %w", id, err)
	}
	return nil
}

func (s *Seeder) AddProduct(ctx context.Context, id, name, category, brand string) error {
	err := s.exec(ctx,
		"INSERT INTO products (id, name, category, brand) VALUES (?, ?, ?, ?)",
		id, name, category, brand)
	if err != nil {
		return fmt.Errorf("insert product %s: %w", id, err)
	}
	return nil
}

func (s *Seeder) AddCustomer(ctx context.Context, id, name string) error {
	if err := s.exec(ctx, "INSERT INTO customers (id, name) VALUES (?, ?)", id, name); err != nil {
		return fmt.Errorf("insert customer %s: %w", id, err)
	}
	return nil
}

func (s *Seeder) AddBrand(ctx context.Context, id, name string) error {
	if err := s.exec(ctx, "INSERT INTO brands (id, name) VALUES (?, ?)", id, name); err != nil {
		return fmt.Errorf("insert brand %s: %w", id, err)
	}
	return nil
}

func (s *Seeder) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.PrepareContext(ctx, query)
	}
	return s.db.PrepareContext(ctx, query)
}

func (s *Seeder) exec(ctx context.Context, query string, args ...interface{}) error {
	if tx := GetTransaction(ctx); tx != nil {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
