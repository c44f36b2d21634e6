package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sari-tools/sales-atlas/pkg/models/store"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
)

// Source is the live DataSource backed by the SQL warehouse. Network
// and shape failures surface as typed datasource errors; callers decide
// the retry policy.
type Source struct {
	db *sql.DB
}

func NewSource(db *sql.DB) (*Source, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Source{db: db}, nil
}

var countableTables = map[string]string{
	datasource.TableTransactions: "transactions",
	datasource.TableCustomers:    "customers",
	datasource.TableProducts:     "products",
	datasource.TableStores:       "stores",
	datasource.TableBrands:       "brands",
}

var aggregateOps = map[string]string{
	"sum":   "SUM",
	"count": "COUNT",
	"avg":   "AVG",
}

var aggregateColumns = map[string]string{
	"amount": "t.amount",
	"*":      "*",
}

func (s *Source) Query(
	ctx context.Context,
	table string,
	proj datasource.Projection,
	pred datasource.Predicate,
	w datasource.Window,
) ([]store.TransactionRow, error) {
	logger := zerolog.Ctx(ctx)

	if table != datasource.TableTransactions {
		return nil, &datasource.Error{
			Kind:  datasource.KindNotFound,
			Op:    "query",
			Table: table,
			Err:   fmt.Errorf("table is not queryable"),
		}
	}

	where, args := buildWhere(pred)

	var query string
	if proj == datasource.ProjectionFull {
		query = `
		SELECT t.id, t.ts, t.amount, t.customer_id, t.store_id, s.name, s.barangay, s.brand
		FROM transactions t
		JOIN stores s ON s.id = t.store_id` + where + `
		ORDER BY t.ts, t.id
		LIMIT ? OFFSET ?`
	} else {
		query = `
		SELECT t.id, t.ts, t.amount, t.customer_id, t.store_id
		FROM transactions t` + where + `
		ORDER BY t.ts, t.id
		LIMIT ? OFFSET ?`
	}
	args = append(args, w.Limit, w.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("query", table, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close transaction query rows")
		}
	}(rows)

	records, err := scanTransactionRows(rows, proj)
	if err != nil {
		return nil, classify("scan", table, err)
	}

	if proj == datasource.ProjectionFull && len(records) > 0 {
		if err := s.attachLineItems(ctx, records); err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (s *Source) Aggregate(
	ctx context.Context,
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

	op, ok := aggregateOps[agg.Op]
	if !ok {
		return 0, fmt.Errorf("unsupported aggregate op: %s", agg.Op)
	}
	column, ok := aggregateColumns[agg.Column]
	if !ok {
		return 0, fmt.Errorf("unsupported aggregate column: %s", agg.Column)
	}

	where, args := buildWhere(pred)
	query := fmt.Sprintf(`
		SELECT COALESCE(%s(%s), 0)
		FROM transactions t%s`, op, column, where)

	var result float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&result); err != nil {
		return 0, classify("aggregate", table, err)
	}
	return result, nil
}

func (s *Source) Count(ctx context.Context, table string) (int64, error) {
	name, ok := countableTables[table]
	if !ok {
		return 0, &datasource.Error{
			Kind:  datasource.KindNotFound,
			Op:    "count",
			Table: table,
			Err:   fmt.Errorf("unknown table"),
		}
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, classify("count", table, err)
	}
	return count, nil
}

// buildWhere translates a predicate into SQL. The projection selects
// columns, never scope: every dimension clause applies to every query,
// so store dimensions go through EXISTS subqueries rather than relying
// on a join that the flat shape does not carry.
func buildWhere(pred datasource.Predicate) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if pred.From != nil {
		clauses = append(clauses, "t.ts >= ?")
		args = append(args, *pred.From)
	}
	if pred.To != nil {
		clauses = append(clauses, "t.ts <= ?")
		args = append(args, *pred.To)
	}
	if values := pred.In[datasource.DimStore]; len(values) > 0 {
		clauses = append(clauses, fmt.Sprintf("t.store_id IN (%s)", placeholders(len(values))))
		args = append(args, toInterfaceSlice(values)...)
	}
	if values := pred.In[datasource.DimBarangay]; len(values) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			`EXISTS (
				SELECT 1 FROM stores sd
				WHERE sd.id = t.store_id AND sd.barangay IN (%s)
			)`, placeholders(len(values))))
		args = append(args, toInterfaceSlice(values)...)
	}
	if values := pred.In[datasource.DimBrand]; len(values) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			`EXISTS (
				SELECT 1 FROM stores sd
				WHERE sd.id = t.store_id AND sd.brand IN (%s)
			)`, placeholders(len(values))))
		args = append(args, toInterfaceSlice(values)...)
	}
	if values := pred.In[datasource.DimCategory]; len(values) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			`EXISTS (
				SELECT 1 FROM transaction_items ti
				JOIN products p ON p.id = ti.product_id
				WHERE ti.transaction_id = t.id AND p.category IN (%s)
			)`, placeholders(len(values))))
		args = append(args, toInterfaceSlice(values)...)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(clauses, " AND "), args
}

func (s *Source) attachLineItems(ctx context.Context, records []store.TransactionRow) error {
	logger := zerolog.Ctx(ctx)

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	query := fmt.Sprintf(`
		SELECT ti.transaction_id, ti.product_id, p.category, ti.quantity, ti.unit_price, ti.unit_cost
		FROM transaction_items ti
		JOIN products p ON p.id = ti.product_id
		WHERE ti.transaction_id IN (%s)`, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, toInterfaceSlice(ids)...)
	if err != nil {
		return classify("query_items", datasource.TableTransactions, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close line item query rows")
		}
	}(rows)

	itemsByTx := make(map[string][]store.LineItemRow)
	for rows.Next() {
		var item store.LineItemRow
		if err := rows.Scan(
			&item.TransactionID,
			&item.ProductID,
			&item.Category,
			&item.Quantity,
			&item.UnitPrice,
			&item.UnitCost,
		); err != nil {
			return classify("scan_items", datasource.TableTransactions, err)
		}
		itemsByTx[item.TransactionID] = append(itemsByTx[item.TransactionID], item)
	}
	if err := rows.Err(); err != nil {
		return classify("scan_items", datasource.TableTransactions, err)
	}

	for i := range records {
		records[i].Items = itemsByTx[records[i].ID]
	}
	return nil
}

func scanTransactionRows(rows *sql.Rows, proj datasource.Projection) ([]store.TransactionRow, error) {
	records := make([]store.TransactionRow, 0)
	for rows.Next() {
		var rec store.TransactionRow
		var err error
		if proj == datasource.ProjectionFull {
			err = rows.Scan(
				&rec.ID, &rec.Timestamp, &rec.Amount, &rec.CustomerID, &rec.StoreID,
				&rec.StoreName, &rec.Barangay, &rec.Brand,
			)
		} else {
			err = rows.Scan(&rec.ID, &rec.Timestamp, &rec.Amount, &rec.CustomerID, &rec.StoreID)
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toInterfaceSlice(ss []string) []interface{} {
	res := make([]interface{}, len(ss))
	for i, s := range ss {
		res[i] = s
	}
	return res
}
