package audit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
	"github.com/sari-tools/sales-atlas/pkg/models/store"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
)

// Settings contains the fixed thresholds the audit tags findings with.
type Settings struct {
	// VariancePctThreshold flags revenue variance above this percentage (default: 1.0)
	VariancePctThreshold float64
	// MissingPctThreshold flags missing-field density above this percentage (default: 5.0)
	MissingPctThreshold float64
	// MinDateSpanDays flags record sets covering fewer days than this (default: 30)
	MinDateSpanDays int
	// WindowSize is the page size for the validation fetch (default: 1000)
	WindowSize int
	// MaxRecords bounds the validation fetch (default: 10000)
	MaxRecords int
}

func DefaultSettings() Settings {
	return Settings{
		VariancePctThreshold: 1.0,
		MissingPctThreshold:  5.0,
		MinDateSpanDays:      30,
		WindowSize:           1000,
		MaxRecords:           10000,
	}
}

// The validation projection checks four fields per record: amount,
// timestamp, customer id, store id.
const fieldsChecked = 4

var countedTables = []string{
	datasource.TableTransactions,
	datasource.TableCustomers,
	datasource.TableProducts,
	datasource.TableStores,
	datasource.TableBrands,
}

// Engine independently re-derives top-line aggregates and diffs them
// against the backend's own numbers. Diagnostic, not on the critical
// path: no retries, and any sub-query failure aborts the whole audit.
type Engine struct {
	src      datasource.DataSource
	settings Settings
}

func NewEngine(src datasource.DataSource, settings Settings) (*Engine, error) {
	if src == nil {
		return nil, fmt.Errorf("data source is nil")
	}
	return &Engine{src: src, settings: settings}, nil
}

func (e *Engine) Run(ctx context.Context, pred datasource.Predicate) (*domain.AuditReport, error) {
	logger := zerolog.Ctx(ctx)

	report := &domain.AuditReport{
		RecordCounts: make(map[string]int64, len(countedTables)),
		Findings:     []domain.Finding{},
		GeneratedAt:  time.Now().UTC(),
	}

	for _, table := range countedTables {
		count, err := e.src.Count(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		report.RecordCounts[table] = count
	}

	rows, err := e.fetchValidationRows(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("validation fetch: %w", err)
	}

	reported, err := e.src.Aggregate(ctx, datasource.TableTransactions,
		datasource.AggregateSpec{Op: "sum", Column: "amount"}, pred)
	if err != nil {
		return nil, fmt.Errorf("backend revenue aggregate: %w", err)
	}

	calculated := 0.0
	missingFields := 0
	uniqueIDs := make(map[string]struct{}, len(rows))
	var earliest, latest time.Time

	for _, row := range rows {
		calculated += row.Amount
		uniqueIDs[row.ID] = struct{}{}
		missingFields += missingFieldCount(row)

		if !row.Timestamp.IsZero() {
			if earliest.IsZero() || row.Timestamp.Before(earliest) {
				earliest = row.Timestamp
			}
			if latest.IsZero() || row.Timestamp.After(latest) {
				latest = row.Timestamp
			}
		}
	}

	recordCount := len(rows)
	report.DuplicateCount = recordCount - len(uniqueIDs)

	delta := math.Abs(calculated - reported)
	report.RevenueVariance = domain.RevenueVariance{
		Calculated: calculated,
		Reported:   reported,
		Delta:      delta,
		Pct:        variancePct(delta, reported, calculated),
	}

	if recordCount > 0 {
		report.MissingDataPct = float64(missingFields) / float64(recordCount*fieldsChecked) * 100
	}

	if !earliest.IsZero() {
		report.DateCoverage = domain.DateCoverage{
			Earliest: earliest,
			Latest:   latest,
			SpanDays: int(latest.Sub(earliest).Hours() / 24),
		}
	}

	report.QualityScore = qualityScore(report, recordCount, e.settings)
	report.Findings = e.findings(report, recordCount)

	logger.Debug().
		Int("records", recordCount).
		Float64("quality_score", report.QualityScore).
		Int("findings", len(report.Findings)).
		Msg("audit complete")

	return report, nil
}

// fetchValidationRows pages the flat projection: id, amount, timestamp,
// customer id, store id are all the audit needs. No fallback path here.
func (e *Engine) fetchValidationRows(ctx context.Context, pred datasource.Predicate) ([]store.TransactionRow, error) {
	var rows []store.TransactionRow
	for offset := 0; offset < e.settings.MaxRecords; offset += e.settings.WindowSize {
		w := datasource.Window{Offset: offset, Limit: e.settings.WindowSize}
		batch, err := e.src.Query(ctx, datasource.TableTransactions, datasource.ProjectionFlat, pred, w)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
		if len(batch) < e.settings.WindowSize {
			break
		}
	}
	return rows, nil
}

func missingFieldCount(row store.TransactionRow) int {
	missing := 0
	if row.Amount <= 0 {
		missing++
	}
	if row.Timestamp.IsZero() {
		missing++
	}
	if !row.CustomerID.Valid || row.CustomerID.String == "" {
		missing++
	}
	if row.StoreID == "" {
		missing++
	}
	return missing
}

func variancePct(delta, reported, calculated float64) float64 {
	if reported != 0 {
		return delta / math.Abs(reported) * 100
	}
	if calculated != 0 {
		return 100
	}
	return 0
}

// qualityScore: 100 minus twice the missing-field percentage, minus ten
// times the duplicate ratio, minus the variance percentage when it
// exceeds the threshold; clamped to [0, 100].
func qualityScore(report *domain.AuditReport, recordCount int, settings Settings) float64 {
	score := 100.0
	score -= report.MissingDataPct * 2
	if recordCount > 0 {
		score -= float64(report.DuplicateCount) / float64(recordCount) * 10
	}
	if report.RevenueVariance.Pct > settings.VariancePctThreshold {
		score -= report.RevenueVariance.Pct
	}
	return math.Min(100, math.Max(0, score))
}

func (e *Engine) findings(report *domain.AuditReport, recordCount int) []domain.Finding {
	findings := []domain.Finding{}

	if recordCount == 0 {
		return append(findings, domain.Finding{
			ID:             "no_activity",
			Issue:          "no_activity",
			Description:    "No transactions matched the audited period.",
			Recommendation: "Verify the filter selection and the ingestion pipeline for the period.",
			Severity:       domain.SeverityInfo,
		})
	}

	if report.RevenueVariance.Pct > e.settings.VariancePctThreshold {
		findings = append(findings, domain.Finding{
			ID:    "revenue_variance",
			Issue: "revenue_variance",
			Description: fmt.Sprintf(
				"Locally computed revenue %.2f differs from the backend aggregate %.2f by %.2f%%.",
				report.RevenueVariance.Calculated, report.RevenueVariance.Reported, report.RevenueVariance.Pct),
			Recommendation: "Compare retrieval predicate against the backend aggregate scope; check for records dropped by the safety cap.",
			Severity:       domain.SeverityModerate,
		})
	}

	if report.MissingDataPct > e.settings.MissingPctThreshold {
		findings = append(findings, domain.Finding{
			ID:    "missing_data",
			Issue: "missing_data",
			Description: fmt.Sprintf(
				"%.2f%% of checked fields are missing or invalid, exceeding the %.1f%% threshold.",
				report.MissingDataPct, e.settings.MissingPctThreshold),
			Recommendation: "Inspect upstream ingestion for dropped amounts, timestamps, customer ids or store ids.",
			Severity:       domain.SeverityCritical,
		})
	}

	if report.DuplicateCount > 0 {
		findings = append(findings, domain.Finding{
			ID:    "duplicate_transactions",
			Issue: "duplicate_transactions",
			Description: fmt.Sprintf(
				"%d duplicate transaction ids found in %d records.",
				report.DuplicateCount, recordCount),
			Recommendation: "Duplicate ids indicate an upstream double-write; deduplicate at the source, not in the pipeline.",
			Severity:       domain.SeverityModerate,
		})
	}

	if report.DateCoverage.SpanDays < e.settings.MinDateSpanDays {
		findings = append(findings, domain.Finding{
			ID:    "short_date_coverage",
			Issue: "short_date_coverage",
			Description: fmt.Sprintf(
				"Records cover only %d days, below the %d-day minimum for trend analysis.",
				report.DateCoverage.SpanDays, e.settings.MinDateSpanDays),
			Recommendation: "Widen the date range or confirm the store has history for the period.",
			Severity:       domain.SeverityInfo,
		})
	}

	return findings
}
