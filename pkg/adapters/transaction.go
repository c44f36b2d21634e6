package adapters

import (
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
	"github.com/sari-tools/sales-atlas/pkg/models/store"
)

func MapStoreRowToDomainRecord(row store.TransactionRow) domain.TransactionRecord {
	rec := domain.TransactionRecord{
		ID:        row.ID,
		Timestamp: row.Timestamp,
		Amount:    row.Amount,
		StoreID:   row.StoreID,
	}

	if row.CustomerID.Valid && row.CustomerID.String != "" {
		id := row.CustomerID.String
		rec.CustomerID = &id
	}

	if row.StoreName.Valid || row.Barangay.Valid || row.Brand.Valid {
		rec.Store = &domain.StoreMeta{
			Name:     row.StoreName.String,
			Barangay: row.Barangay.String,
			Brand:    row.Brand.String,
		}
	}

	if len(row.Items) > 0 {
		rec.LineItems = make([]domain.LineItem, 0, len(row.Items))
		for _, item := range row.Items {
			li := domain.LineItem{
				ProductID: item.ProductID,
				Category:  item.Category,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			}
			if item.UnitCost.Valid {
				cost := item.UnitCost.Float64
				li.UnitCost = &cost
			}
			rec.LineItems = append(rec.LineItems, li)
		}
	}

	return rec
}

func MapStoreRowsToDomainRecords(rows []store.TransactionRow) []domain.TransactionRecord {
	records := make([]domain.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, MapStoreRowToDomainRecord(row))
	}
	return records
}
