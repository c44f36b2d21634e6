package domain

import "time"

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityModerate
	SeverityCritical
)

type Finding struct {
	ID             string
	Issue          string
	Description    string
	Recommendation string
	Severity       Severity
}

// RevenueVariance compares the locally computed revenue total against
// the backend's own aggregate for the same predicate.
type RevenueVariance struct {
	Calculated float64
	Reported   float64
	Delta      float64
	Pct        float64
}

type DateCoverage struct {
	Earliest time.Time
	Latest   time.Time
	SpanDays int
}

// AuditReport is the result of cross-validating computed aggregates
// against backend-reported ones plus structural data-quality checks.
// Computed on demand, never cached across sessions.
type AuditReport struct {
	RecordCounts    map[string]int64
	QualityScore    float64
	RevenueVariance RevenueVariance
	MissingDataPct  float64
	DuplicateCount  int
	DateCoverage    DateCoverage
	Findings        []Finding
	GeneratedAt     time.Time
}
