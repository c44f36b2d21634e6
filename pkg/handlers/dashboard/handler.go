package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sari-tools/sales-atlas/pkg/adapters"
	"github.com/sari-tools/sales-atlas/pkg/models/api"
	"github.com/sari-tools/sales-atlas/pkg/services/filterstate"
	"github.com/sari-tools/sales-atlas/pkg/services/pipeline"
)

type Handler struct {
	filters  *filterstate.Store
	pipeline *pipeline.Pipeline
}

func NewHandler(filters *filterstate.Store, p *pipeline.Pipeline) *Handler {
	return &Handler{
		filters:  filters,
		pipeline: p,
	}
}

func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, adapters.MapDomainFilterStateToAPI(h.filters.Get()))
}

// UpdateFilters replaces every filter field present in the query string
// and leaves the rest untouched. Unknown and malformed parameters are
// ignored. The mutation itself triggers the pipeline refresh.
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	h.filters.Apply(r.URL.Query())
	writeJSON(w, r, http.StatusOK, adapters.MapDomainFilterStateToAPI(h.filters.Get()))
}

func (h *Handler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	h.filters.Reset()
	writeJSON(w, r, http.StatusOK, adapters.MapDomainFilterStateToAPI(h.filters.Get()))
}

func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	snap := h.pipeline.Snapshot()

	out := api.Snapshot{
		Filters: adapters.MapDomainFilterStateToAPI(snap.Filters),
	}

	switch {
	case snap.UpdatedAt.IsZero():
		out.Status = api.StatusLoading
		writeJSON(w, r, http.StatusAccepted, out)
	case snap.Err != nil:
		out.Status = api.StatusError
		out.Error = snap.Err.Error()
		updated := snap.UpdatedAt
		out.UpdatedAt = &updated
		writeJSON(w, r, http.StatusBadGateway, out)
	default:
		kpis := adapters.MapDomainKPISetToAPI(*snap.KPIs)
		out.Status = api.StatusReady
		out.KPIs = &kpis
		out.Windows = snap.Windows
		out.Truncated = snap.Truncated
		updated := snap.UpdatedAt
		out.UpdatedAt = &updated
		writeJSON(w, r, http.StatusOK, out)
	}
}

// GetAudit runs the audit on demand. An audit failure is reported here
// and nowhere else; the KPI snapshot is unaffected.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.pipeline.Audit(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapDomainAuditReportToAPI(*report))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	logger := zerolog.Ctx(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("failed to encode response")
	}
}
