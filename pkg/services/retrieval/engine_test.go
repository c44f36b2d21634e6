package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sari-tools/sales-atlas/pkg/models/domain"
	"github.com/sari-tools/sales-atlas/pkg/models/store"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDataSource is a mock implementation of datasource.DataSource for testing
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) Query(
	ctx context.Context,
	table string,
	proj datasource.Projection,
	pred datasource.Predicate,
	w datasource.Window,
) ([]store.TransactionRow, error) {
	args := m.Called(ctx, table, proj, pred, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.TransactionRow), args.Error(1)
}

func (m *MockDataSource) Aggregate(
	ctx context.Context,
	table string,
	agg datasource.AggregateSpec,
	pred datasource.Predicate,
) (float64, error) {
	args := m.Called(ctx, table, agg, pred)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockDataSource) Count(ctx context.Context, table string) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

func makeRows(prefix string, n int) []store.TransactionRow {
	rows := make([]store.TransactionRow, 0, n)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, store.TransactionRow{
			ID:        fmt.Sprintf("%s-%03d", prefix, i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Amount:    100,
			StoreID:   "store-001",
		})
	}
	return rows
}

func windowAt(offset int) interface{} {
	return mock.MatchedBy(func(w datasource.Window) bool { return w.Offset == offset })
}

func testConfig() Config {
	return Config{WindowSize: 2, OffsetCeiling: 6, WindowDelay: 0}
}

func TestEngine_SingleShortWindow(t *testing.T) {
	ctx := context.Background()
	src := new(MockDataSource)
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(0)).
		Return(makeRows("a", 1), nil).Once()

	engine, err := NewEngine(src, testConfig())
	require.NoError(t, err)

	result, err := engine.Fetch(ctx, domain.FilterState{})

	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.Windows)
	assert.False(t, result.Truncated)
	src.AssertExpectations(t)
}

func TestEngine_PaginatesUntilShortWindow(t *testing.T) {
	ctx := context.Background()
	src := new(MockDataSource)
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(0)).
		Return(makeRows("a", 2), nil).Once()
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(2)).
		Return(makeRows("b", 1), nil).Once()

	engine, err := NewEngine(src, testConfig())
	require.NoError(t, err)

	result, err := engine.Fetch(ctx, domain.FilterState{})

	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
	assert.Equal(t, 2, result.Windows)
	assert.False(t, result.Truncated)
	// Windows accumulate in arrival order.
	assert.Equal(t, "a-000", result.Records[0].ID)
	assert.Equal(t, "b-000", result.Records[2].ID)
	src.AssertExpectations(t)
}

func TestEngine_StopsAtSafetyCap(t *testing.T) {
	ctx := context.Background()
	src := new(MockDataSource)
	// Always-full windows: retrieval must stop at exactly the ceiling.
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(0)).
		Return(makeRows("a", 2), nil).Once()
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(2)).
		Return(makeRows("b", 2), nil).Once()
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(4)).
		Return(makeRows("c", 2), nil).Once()

	engine, err := NewEngine(src, testConfig())
	require.NoError(t, err)

	result, err := engine.Fetch(ctx, domain.FilterState{})

	require.NoError(t, err)
	assert.Len(t, result.Records, 6)
	assert.Equal(t, 3, result.Windows)
	assert.True(t, result.Truncated)
	src.AssertExpectations(t)
}

func TestEngine_ProjectionFailureFallsBackOnce(t *testing.T) {
	ctx := context.Background()
	projErr := &datasource.Error{
		Kind: datasource.KindProjection, Op: "query",
		Table: datasource.TableTransactions, Err: errors.New("join rejected"),
	}

	src := new(MockDataSource)
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(0)).
		Return(nil, projErr).Once()
	// The same window retried flat, then pagination continues flat.
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFlat, mock.Anything, windowAt(0)).
		Return(makeRows("a", 2), nil).Once()
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFlat, mock.Anything, windowAt(2)).
		Return(makeRows("b", 1), nil).Once()

	engine, err := NewEngine(src, testConfig())
	require.NoError(t, err)

	result, err := engine.Fetch(ctx, domain.FilterState{})

	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
	src.AssertExpectations(t)
	src.AssertNumberOfCalls(t, "Query", 3)
}

func TestEngine_ProjectionFailureThenFlatFailureAborts(t *testing.T) {
	ctx := context.Background()
	projErr := &datasource.Error{
		Kind: datasource.KindProjection, Op: "query",
		Table: datasource.TableTransactions, Err: errors.New("join rejected"),
	}
	netErr := &datasource.Error{
		Kind: datasource.KindNetwork, Op: "query",
		Table: datasource.TableTransactions, Err: errors.New("connection reset"),
	}

	src := new(MockDataSource)
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(0)).
		Return(nil, projErr).Once()
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFlat, mock.Anything, windowAt(0)).
		Return(nil, netErr).Once()

	engine, err := NewEngine(src, testConfig())
	require.NoError(t, err)

	result, err := engine.Fetch(ctx, domain.FilterState{})

	// Exactly one retry, then the whole retrieval surfaces the error.
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, datasource.IsNetwork(err))
	src.AssertNumberOfCalls(t, "Query", 2)
}

func TestEngine_NetworkFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	netErr := &datasource.Error{
		Kind: datasource.KindNetwork, Op: "query",
		Table: datasource.TableTransactions, Err: errors.New("dial tcp: timeout"),
	}

	src := new(MockDataSource)
	src.On("Query", ctx, datasource.TableTransactions, datasource.ProjectionFull, mock.Anything, windowAt(0)).
		Return(nil, netErr).Once()

	engine, err := NewEngine(src, testConfig())
	require.NoError(t, err)

	result, err := engine.Fetch(ctx, domain.FilterState{})

	require.Error(t, err)
	assert.Nil(t, result)
	src.AssertNumberOfCalls(t, "Query", 1)
}

func TestEngine_ConfigValidation(t *testing.T) {
	src := new(MockDataSource)

	_, err := NewEngine(nil, DefaultConfig())
	assert.Error(t, err)

	_, err = NewEngine(src, Config{WindowSize: 0, OffsetCeiling: 100})
	assert.Error(t, err)

	_, err = NewEngine(src, Config{WindowSize: 100, OffsetCeiling: 50})
	assert.Error(t, err)
}
