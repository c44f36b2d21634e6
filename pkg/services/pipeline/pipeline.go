package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
	"github.com/sari-tools/sales-atlas/pkg/services/audit"
	"github.com/sari-tools/sales-atlas/pkg/services/filterstate"
	"github.com/sari-tools/sales-atlas/pkg/services/kpi"
	"github.com/sari-tools/sales-atlas/pkg/services/retrieval"
)

// Snapshot is the latest pipeline outcome. Immutable once published;
// consumers read, never mutate. A zero UpdatedAt means no run has
// completed yet.
type Snapshot struct {
	Filters   domain.FilterState
	KPIs      *domain.KPISet
	Windows   int
	Truncated bool
	Err       error
	UpdatedAt time.Time
}

type Config struct {
	// RefreshInterval re-triggers the whole pipeline periodically.
	// Zero disables the background refresh.
	RefreshInterval time.Duration
}

func DefaultConfig() Config {
	return Config{RefreshInterval: 5 * time.Minute}
}

// Pipeline ties the filter store to the retrieval and derivation
// engines. Every filter mutation and every periodic refresh starts a
// new run tagged with a generation token; a finished run publishes its
// snapshot only while it is still the newest started. There is no
// cancellation of in-flight retrievals, stale results are simply
// dropped.
type Pipeline struct {
	filters   *filterstate.Store
	retriever *retrieval.Engine
	kpis      *kpi.Engine
	auditor   *audit.Engine
	cfg       Config

	baseCtx    context.Context
	generation atomic.Uint64

	mu   sync.Mutex
	snap Snapshot
}

func New(
	filters *filterstate.Store,
	retriever *retrieval.Engine,
	kpis *kpi.Engine,
	auditor *audit.Engine,
	cfg Config,
) (*Pipeline, error) {
	if filters == nil || retriever == nil || kpis == nil || auditor == nil {
		return nil, fmt.Errorf("pipeline requires filters, retriever, kpi and audit engines")
	}
	return &Pipeline{
		filters:   filters,
		retriever: retriever,
		kpis:      kpis,
		auditor:   auditor,
		cfg:       cfg,
		baseCtx:   context.Background(),
	}, nil
}

// Start wires the filter subscription, runs the first refresh and, when
// configured, launches the background refresh loop. Runs spawned later
// inherit ctx; cancel it to stop the pipeline.
func (p *Pipeline) Start(ctx context.Context) {
	p.baseCtx = ctx
	p.filters.Subscribe(func(domain.FilterState) {
		p.Refresh()
	})

	p.Refresh()

	if p.cfg.RefreshInterval > 0 {
		go p.refreshLoop(ctx)
	}
}

// Refresh starts an asynchronous run against the current FilterState.
func (p *Pipeline) Refresh() {
	gen := p.generation.Add(1)
	go p.run(p.baseCtx, gen)
}

// Snapshot returns the latest published state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Audit runs the data-quality audit for the current FilterState. It is
// independent of the KPI path: a failure here leaves the snapshot
// untouched.
func (p *Pipeline) Audit(ctx context.Context) (*domain.AuditReport, error) {
	pred := retrieval.BuildPredicate(p.filters.Get())
	return p.auditor.Run(ctx, pred)
}

func (p *Pipeline) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The state is unchanged but the backing data may not be.
			p.kpis.Invalidate()
			p.Refresh()
		}
	}
}

func (p *Pipeline) run(ctx context.Context, gen uint64) {
	logger := zerolog.Ctx(ctx)
	fs := p.filters.Get()

	result, err := p.retriever.Fetch(ctx, fs)

	// The staleness check must precede derivation: a stale run that
	// derived would re-prime the KPI memo with records a newer
	// generation has already superseded.
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation.Load() {
		logger.Debug().
			Uint64("generation", gen).
			Uint64("current", p.generation.Load()).
			Msg("dropping stale pipeline result")
		return
	}

	snap := Snapshot{
		Filters:   fs,
		UpdatedAt: time.Now().UTC(),
	}
	if err != nil {
		snap.Err = err
		logger.Error().Err(err).Msg("pipeline run failed")
	} else {
		derived := p.kpis.Derive(fs, result.Records)
		snap.KPIs = &derived
		snap.Windows = result.Windows
		snap.Truncated = result.Truncated
	}
	p.snap = snap
}
