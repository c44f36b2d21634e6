package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sari-tools/sales-atlas/pkg/adapters"
	"github.com/sari-tools/sales-atlas/pkg/models/domain"
	"github.com/sari-tools/sales-atlas/pkg/models/store"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
)

type Config struct {
	// WindowSize is the fixed page size requested per query.
	WindowSize int
	// OffsetCeiling is the safety cap: retrieval never requests an
	// offset at or beyond it, bounding the total record count.
	OffsetCeiling int
	// WindowDelay is inserted after a full-sized window, the signal
	// that more data likely follows.
	WindowDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		WindowSize:    1000,
		OffsetCeiling: 10000,
		WindowDelay:   50 * time.Millisecond,
	}
}

// Engine retrieves the complete record set for a FilterState in
// sequential fixed-size windows. Sequential by design: the point is to
// bound backend load, not to finish fast.
type Engine struct {
	src datasource.DataSource
	cfg Config
}

func NewEngine(src datasource.DataSource, cfg Config) (*Engine, error) {
	if src == nil {
		return nil, fmt.Errorf("data source is nil")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", cfg.WindowSize)
	}
	if cfg.OffsetCeiling < cfg.WindowSize {
		return nil, fmt.Errorf("offset ceiling %d below window size %d", cfg.OffsetCeiling, cfg.WindowSize)
	}
	return &Engine{src: src, cfg: cfg}, nil
}

// Fetch runs one complete retrieval. Any terminal failure discards all
// accumulated windows and returns the error; a partial set is never
// reported as complete. Hitting the offset ceiling is not a failure:
// the result comes back with Truncated set.
func (e *Engine) Fetch(ctx context.Context, fs domain.FilterState) (*domain.RetrievalResult, error) {
	logger := zerolog.Ctx(ctx)

	pred := BuildPredicate(fs)
	proj := datasource.ProjectionFull

	var rows []store.TransactionRow
	offset := 0
	windows := 0
	truncated := false

	// Invariant: offset < OffsetCeiling on every query issued.
	for {
		w := datasource.Window{Offset: offset, Limit: e.cfg.WindowSize}

		batch, err := e.src.Query(ctx, datasource.TableTransactions, proj, pred, w)
		if err != nil && datasource.IsProjection(err) && proj == datasource.ProjectionFull {
			logger.Warn().
				Err(err).
				Int("offset", offset).
				Msg("full projection rejected, retrying window with flat projection")
			proj = datasource.ProjectionFlat
			batch, err = e.src.Query(ctx, datasource.TableTransactions, proj, pred, w)
		}
		if err != nil {
			return nil, fmt.Errorf("window at offset %d: %w", offset, err)
		}

		rows = append(rows, batch...)
		windows++

		if len(batch) < e.cfg.WindowSize {
			break
		}

		offset += e.cfg.WindowSize
		if offset >= e.cfg.OffsetCeiling {
			truncated = true
			logger.Warn().
				Int("records", len(rows)).
				Int("ceiling", e.cfg.OffsetCeiling).
				Msg("retrieval stopped at safety cap")
			break
		}

		if e.cfg.WindowDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.cfg.WindowDelay):
			}
		}
	}

	logger.Debug().
		Int("records", len(rows)).
		Int("windows", windows).
		Str("projection", proj.String()).
		Msg("retrieval complete")

	return &domain.RetrievalResult{
		Records:   adapters.MapStoreRowsToDomainRecords(rows),
		Windows:   windows,
		Truncated: truncated,
	}, nil
}
