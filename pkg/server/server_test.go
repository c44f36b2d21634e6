package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sari-tools/sales-atlas/pkg/models/api"
	"github.com/sari-tools/sales-atlas/pkg/models/store"
	"github.com/sari-tools/sales-atlas/pkg/services/audit"
	"github.com/sari-tools/sales-atlas/pkg/services/filterstate"
	"github.com/sari-tools/sales-atlas/pkg/services/kpi"
	"github.com/sari-tools/sales-atlas/pkg/services/pipeline"
	"github.com/sari-tools/sales-atlas/pkg/services/retrieval"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAPI(t *testing.T) (*WebAPI, *pipeline.Pipeline) {
	src := fixture.NewSourceWithSeed(7, 300)
	filters := filterstate.NewStore()

	retriever, err := retrieval.NewEngine(src, retrieval.Config{
		WindowSize:    100,
		OffsetCeiling: 10000,
		WindowDelay:   0,
	})
	require.NoError(t, err)

	auditor, err := audit.NewEngine(src, audit.DefaultSettings())
	require.NoError(t, err)

	p, err := pipeline.New(filters, retriever, kpi.NewEngine(), auditor, pipeline.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	p.Start(ctx)

	webAPI := NewWebAPI(zerolog.Nop(), Config{
		Addr:         ":0",
		Dependencies: Dependencies{Filters: filters, Pipeline: p},
	})
	return webAPI, p
}

func waitReady(t *testing.T, p *pipeline.Pipeline) {
	require.Eventually(t, func() bool {
		return !p.Snapshot().UpdatedAt.IsZero()
	}, 5*time.Second, 10*time.Millisecond)
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetKPIs_ReadyAfterFirstRun(t *testing.T) {
	webAPI, p := setupTestAPI(t)
	waitReady(t, p)

	rec := doRequest(t, webAPI.Router(), http.MethodGet, "/api/v1/kpis")

	require.Equal(t, http.StatusOK, rec.Code)

	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, api.StatusReady, snap.Status)
	require.NotNil(t, snap.KPIs)
	assert.Equal(t, 300, snap.KPIs.TransactionCount)
	assert.Greater(t, snap.KPIs.TotalRevenue, 0.0)
	require.NotNil(t, snap.UpdatedAt)
}

func TestGetKPIs_LoadingBeforeFirstRun(t *testing.T) {
	src := fixture.NewSourceWithSeed(7, 50)
	filters := filterstate.NewStore()

	retriever, err := retrieval.NewEngine(src, retrieval.DefaultConfig())
	require.NoError(t, err)
	auditor, err := audit.NewEngine(src, audit.DefaultSettings())
	require.NoError(t, err)
	p, err := pipeline.New(filters, retriever, kpi.NewEngine(), auditor, pipeline.Config{})
	require.NoError(t, err)

	// No Start: the pipeline has never run.
	webAPI := NewWebAPI(zerolog.Nop(), Config{
		Addr:         ":0",
		Dependencies: Dependencies{Filters: filters, Pipeline: p},
	})

	rec := doRequest(t, webAPI.Router(), http.MethodGet, "/api/v1/kpis")

	require.Equal(t, http.StatusAccepted, rec.Code)

	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, api.StatusLoading, snap.Status)
	assert.Nil(t, snap.KPIs)
	assert.Nil(t, snap.UpdatedAt)
}

func TestUpdateFilters_AppliesAndRefreshes(t *testing.T) {
	webAPI, p := setupTestAPI(t)
	waitReady(t, p)

	rec := doRequest(t, webAPI.Router(), http.MethodPut,
		"/api/v1/filters?barangays=Poblacion&from=2025-02-01&to=2025-05-31")

	require.Equal(t, http.StatusOK, rec.Code)

	var fs api.FilterState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fs))
	assert.Equal(t, []string{"Poblacion"}, fs.Barangays)
	assert.Equal(t, "2025-02-01", fs.From)
	assert.Equal(t, "2025-05-31", fs.To)
	// The date range counts once no matter how many bounds are set.
	assert.Equal(t, 2, fs.ActiveFilters)

	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return len(snap.Filters.Barangays) == 1 && snap.KPIs != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Less(t, p.Snapshot().KPIs.TransactionCount, 300)
}

func TestUpdateFilters_IgnoresMalformedParams(t *testing.T) {
	webAPI, p := setupTestAPI(t)
	waitReady(t, p)

	rec := doRequest(t, webAPI.Router(), http.MethodPut,
		"/api/v1/filters?from=not-a-date&utm_ref=newsletter")

	require.Equal(t, http.StatusOK, rec.Code)

	var fs api.FilterState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fs))
	assert.Empty(t, fs.From)
	assert.Equal(t, 0, fs.ActiveFilters)
}

func TestResetFilters(t *testing.T) {
	webAPI, p := setupTestAPI(t)
	waitReady(t, p)

	doRequest(t, webAPI.Router(), http.MethodPut, "/api/v1/filters?brands=SariPrime")
	rec := doRequest(t, webAPI.Router(), http.MethodDelete, "/api/v1/filters")

	require.Equal(t, http.StatusOK, rec.Code)

	var fs api.FilterState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fs))
	assert.Empty(t, fs.Brands)
	assert.Equal(t, 0, fs.ActiveFilters)
}

func TestGetFilters(t *testing.T) {
	webAPI, p := setupTestAPI(t)
	waitReady(t, p)

	doRequest(t, webAPI.Router(), http.MethodPut, "/api/v1/filters?categories=snacks,beverages")
	rec := doRequest(t, webAPI.Router(), http.MethodGet, "/api/v1/filters")

	require.Equal(t, http.StatusOK, rec.Code)

	var fs api.FilterState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fs))
	assert.Equal(t, []string{"beverages", "snacks"}, fs.Categories)
}

type unreachableSource struct{}

func (unreachableSource) Query(
	context.Context, string, datasource.Projection, datasource.Predicate, datasource.Window,
) ([]store.TransactionRow, error) {
	return nil, &datasource.Error{
		Kind: datasource.KindNetwork, Op: "query",
		Table: datasource.TableTransactions, Err: errors.New("connection refused"),
	}
}

func (unreachableSource) Aggregate(
	context.Context, string, datasource.AggregateSpec, datasource.Predicate,
) (float64, error) {
	return 0, errors.New("connection refused")
}

func (unreachableSource) Count(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestGetKPIs_ErrorSurfacesAsBadGateway(t *testing.T) {
	filters := filterstate.NewStore()

	retriever, err := retrieval.NewEngine(unreachableSource{}, retrieval.DefaultConfig())
	require.NoError(t, err)
	auditor, err := audit.NewEngine(unreachableSource{}, audit.DefaultSettings())
	require.NoError(t, err)
	p, err := pipeline.New(filters, retriever, kpi.NewEngine(), auditor, pipeline.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	p.Start(ctx)
	waitReady(t, p)

	webAPI := NewWebAPI(zerolog.Nop(), Config{
		Addr:         ":0",
		Dependencies: Dependencies{Filters: filters, Pipeline: p},
	})

	rec := doRequest(t, webAPI.Router(), http.MethodGet, "/api/v1/kpis")

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, api.StatusError, snap.Status)
	assert.Contains(t, snap.Error, "connection refused")
	assert.Nil(t, snap.KPIs)

	// The audit fails independently with the same status.
	rec = doRequest(t, webAPI.Router(), http.MethodGet, "/api/v1/audit")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetAudit(t *testing.T) {
	webAPI, p := setupTestAPI(t)
	waitReady(t, p)

	rec := doRequest(t, webAPI.Router(), http.MethodGet, "/api/v1/audit")

	require.Equal(t, http.StatusOK, rec.Code)

	var report api.AuditReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, int64(300), report.RecordCounts["transactions"])
	assert.Greater(t, report.QualityScore, 0.0)
	assert.NotNil(t, report.Findings)
}
