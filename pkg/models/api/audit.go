package api

import "time"

type Severity string

const (
	SeverityInfo     Severity = "informational"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

type Finding struct {
	ID             string   `json:"id"`
	Issue          string   `json:"issue"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Severity       Severity `json:"severity"`
}

type RevenueVariance struct {
	Calculated float64 `json:"calculated"`
	Reported   float64 `json:"reported"`
	Delta      float64 `json:"delta"`
	Pct        float64 `json:"pct"`
}

type DateCoverage struct {
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
	SpanDays int        `json:"span_days"`
}

type AuditReport struct {
	RecordCounts    map[string]int64 `json:"record_counts"`
	QualityScore    float64          `json:"quality_score"`
	RevenueVariance RevenueVariance  `json:"revenue_variance"`
	MissingDataPct  float64          `json:"missing_data_pct"`
	DuplicateCount  int              `json:"duplicate_count"`
	DateCoverage    DateCoverage     `json:"date_coverage"`
	Findings        []Finding        `json:"findings"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
