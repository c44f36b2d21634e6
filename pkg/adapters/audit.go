package adapters

import (
	"github.com/sari-tools/sales-atlas/pkg/models/api"
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
)

func MapDomainAuditReportToAPI(report domain.AuditReport) api.AuditReport {
	findings := make([]api.Finding, 0, len(report.Findings))
	for _, f := range report.Findings {
		findings = append(findings, api.Finding{
			ID:             f.ID,
			Issue:          f.Issue,
			Description:    f.Description,
			Recommendation: f.Recommendation,
			Severity:       MapDomainSeverityToAPI(f.Severity),
		})
	}

	return api.AuditReport{
		RecordCounts: report.RecordCounts,
		QualityScore: report.QualityScore,
		RevenueVariance: api.RevenueVariance{
			Calculated: report.RevenueVariance.Calculated,
			Reported:   report.RevenueVariance.Reported,
			Delta:      report.RevenueVariance.Delta,
			Pct:        report.RevenueVariance.Pct,
		},
		MissingDataPct: report.MissingDataPct,
		DuplicateCount: report.DuplicateCount,
		DateCoverage: api.DateCoverage{
			Earliest: timePtr(report.DateCoverage.Earliest),
			Latest:   timePtr(report.DateCoverage.Latest),
			SpanDays: report.DateCoverage.SpanDays,
		},
		Findings:    findings,
		GeneratedAt: report.GeneratedAt,
	}
}
