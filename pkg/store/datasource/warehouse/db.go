package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

// Transactions carry no primary key on purpose: duplicate ids are an
// upstream defect the audit engine has to be able to observe.
const transactionsSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR NOT NULL,
		ts TIMESTAMP NOT NULL,
		amount DOUBLE NOT NULL,
		customer_id VARCHAR,
		store_id VARCHAR NOT NULL
	);
`

const transactionItemsSchema = `
	CREATE TABLE IF NOT EXISTS transaction_items (
		transaction_id VARCHAR NOT NULL,
		product_id VARCHAR NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price DOUBLE NOT NULL,
		unit_cost DOUBLE
	);
`

const customersSchema = `
	CREATE TABLE IF NOT EXISTS customers (
		id VARCHAR PRIMARY KEY,
		name VARCHAR
	);
`

const productsSchema = `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR PRIMARY KEY,
		name VARCHAR,
		category VARCHAR,
		brand VARCHAR
	);
`

const storesSchema = `
	CREATE TABLE IF NOT EXISTS stores (
		id VARCHAR PRIMARY KEY,
		name VARCHAR,
		barangay VARCHAR,
		brand VARCHAR
	);
`

const brandsSchema = `
	CREATE TABLE IF NOT EXISTS brands (
		id VARCHAR PRIMARY KEY,
		name VARCHAR
	);
`

var bootQueries = []string{
	transactionsSchema,
	transactionItemsSchema,
	customersSchema,
	productsSchema,
	storesSchema,
	brandsSchema,
}

type Settings struct {
	DbPath string
}

// NewDB opens the embedded analytics database and ensures the retail
// schema exists. Use ":memory:" for tests.
func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
