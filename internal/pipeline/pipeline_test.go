package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hydro-index-service/internal/domain"
	"github.com/couchcryptid/hydro-index-service/internal/observability"
	"github.com/couchcryptid/hydro-index-service/internal/pipeline"
	"github.com/couchcryptid/hydro-index-service/internal/store"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawObservation
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawObservation, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockPublisher struct {
	mu       sync.Mutex
	calls    [][]domain.Table
	failures int
}

func (m *mockPublisher) PublishTables(_ context.Context, tables []domain.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.calls = append(m.calls, tables)
	return nil
}

func (m *mockPublisher) published() [][]domain.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]domain.Table, 0, len(m.calls))
	for _, c := range m.calls {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func testDefaults(t *testing.T) domain.TableOptions {
	t.Helper()
	rule, err := domain.NewWetDryRule(1.0, domain.OpAtLeast)
	require.NoError(t, err)
	return domain.TableOptions{Rule: rule, Kind: domain.BlockYear}
}

func newPipeline(t *testing.T, ext pipeline.BatchExtractor, st *store.Store, pub pipeline.TablePublisher) *pipeline.Pipeline {
	t.Helper()
	return pipeline.New(ext, pipeline.NewTransformer(slog.Default()), st, pub, testDefaults(t), slog.Default(), newTestMetrics(), 50)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	batch := []domain.RawObservation{
		makeRawObservation(t, "danube", "2020-01-01", "0"),
		makeRawObservation(t, "danube", "2020-01-02", "5"),
		makeRawObservation(t, "rhine", "2020-01-01", "2.5"),
	}

	ext := &mockExtractor{batches: [][]domain.RawObservation{batch}}
	st := store.New()
	pub := &mockPublisher{}
	p := newPipeline(t, ext, st, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	published := pub.published()
	require.Len(t, published, 1)
	require.Len(t, published[0], 2)
	assert.Equal(t, "danube", published[0][0].Group)
	assert.Equal(t, "rhine", published[0][1].Group)

	series, ok := st.Snapshot("danube")
	require.True(t, ok)
	assert.Len(t, series, 2)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_PublishedTableMatchesEngine(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	batch := []domain.RawObservation{
		makeRawObservation(t, "danube", "2020-01-01", "0"),
		makeRawObservation(t, "danube", "2020-01-02", "5"),
		makeRawObservation(t, "danube", "2020-01-03", "0"),
	}

	ext := &mockExtractor{batches: [][]domain.RawObservation{batch}}
	st := store.New()
	pub := &mockPublisher{}
	p := newPipeline(t, ext, st, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	published := pub.published()
	require.Len(t, published, 1)
	require.Len(t, published[0], 1)

	series, ok := st.Snapshot("danube")
	require.True(t, ok)
	opts := testDefaults(t)
	opts.Group = "danube"
	want, err := domain.ComputeTable(series, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(want, published[0][0]); diff != "" {
		t.Fatalf("published table mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches — will block
	pub := &mockPublisher{}
	p := newPipeline(t, ext, store.New(), pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, pub.published())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_PoisonPill(t *testing.T) {
	var badCommitted, goodCommitted atomic.Bool

	bad := domain.RawObservation{Value: []byte("not json"), Offset: 7}
	bad.Commit = func(_ context.Context) error {
		badCommitted.Store(true)
		return nil
	}
	good := makeRawObservation(t, "danube", "2020-01-01", "3")
	good.Commit = func(_ context.Context) error {
		goodCommitted.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawObservation{{bad, good}}}
	st := store.New()
	pub := &mockPublisher{}
	p := newPipeline(t, ext, st, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	// The malformed record is skipped and committed; the good one flows
	// through to a published table.
	assert.True(t, badCommitted.Load())
	assert.True(t, goodCommitted.Load())

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, "danube", published[0][0].Group)

	_, ok := st.Snapshot("danube")
	assert.True(t, ok)
}

func TestPipeline_Run_PublishFailureSkipsCommit(t *testing.T) {
	var commits atomic.Int64

	rec := makeRawObservation(t, "danube", "2020-01-01", "3")
	rec.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}
	redelivered := makeRawObservation(t, "danube", "2020-01-01", "3")
	redelivered.Commit = rec.Commit

	ext := &mockExtractor{batches: [][]domain.RawObservation{{rec}, {redelivered}}}
	st := store.New()
	pub := &mockPublisher{failures: 1}
	p := newPipeline(t, ext, st, pub)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	// First delivery fails to publish and must not commit; the replay
	// upserts the same observation and commits once.
	assert.Equal(t, int64(1), commits.Load())

	series, ok := st.Snapshot("danube")
	require.True(t, ok)
	assert.Len(t, series, 1)
}

func TestPipeline_Run_DuplicateReplayPublishesNothing(t *testing.T) {
	rec := makeRawObservation(t, "danube", "2020-01-01", "3")
	replay := makeRawObservation(t, "danube", "2020-01-01", "3")

	ext := &mockExtractor{batches: [][]domain.RawObservation{{rec}, {replay}}}
	st := store.New()
	pub := &mockPublisher{}
	p := newPipeline(t, ext, st, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	// The replayed batch changes nothing, so no second table goes out.
	assert.Len(t, pub.published(), 1)
	assert.Equal(t, 1, st.Size())
}

func TestObservationTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer(slog.Default())

	got, err := tfm.Transform(context.Background(), makeRawObservation(t, "danube", "2020-06-01", "12.5"))
	require.NoError(t, err)
	assert.Equal(t, "danube", got.Group)
	assert.Equal(t, 12.5, got.Obs.Precip)

	_, err = tfm.Transform(context.Background(), domain.RawObservation{Value: []byte("not json")})
	assert.Error(t, err)
}

// --- helpers ---

func makeRawObservation(t *testing.T, basin, date, mm string) domain.RawObservation {
	t.Helper()
	data, err := json.Marshal(domain.ObservationRecord{
		Basin:    basin,
		Date:     date,
		PrecipMM: mm,
	})
	require.NoError(t, err)
	return domain.RawObservation{
		Key:   []byte(basin),
		Value: data,
	}
}
