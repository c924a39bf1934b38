package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/hydro-index-service/internal/domain"
	"github.com/couchcryptid/hydro-index-service/internal/observability"
	"github.com/couchcryptid/hydro-index-service/internal/store"
)

// BatchExtractor reads up to batchSize raw observations from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawObservation, error)
}

// Transformer converts a raw message into a grouped observation.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawObservation) (domain.GroupedObservation, error)
}

// TablePublisher writes recomputed index tables to the destination.
type TablePublisher interface {
	PublishTables(ctx context.Context, tables []domain.Table) error
}

// Pipeline orchestrates the ingest-recompute-publish loop: drain a batch
// from the source topic, fold it into the store, recompute the index table
// of every group the batch touched, and publish those tables.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	store       *store.Store
	publisher   TablePublisher
	defaults    domain.TableOptions
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline. defaults carries the service-level index
// parameters (rule, block kind, baseline); the group and year selection
// fields are ignored and filled per computation.
func New(e BatchExtractor, t Transformer, st *store.Store, pub TablePublisher, defaults domain.TableOptions, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		store:       st,
		publisher:   pub,
		defaults:    defaults,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any observations yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "block_kind", p.defaults.Kind)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one ingest-recompute-publish cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ObservationsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	ingested, dirty := p.ingestBatch(ctx, rawBatch)
	if len(ingested) == 0 {
		return true
	}

	tables, err := p.recompute(dirty)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("recompute failed", "error", err, "groups", len(dirty))
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if err := p.publisher.PublishTables(ctx, tables); err != nil {
		// Offsets stay uncommitted; the batch is redelivered and the
		// idempotent upserts converge to the same store state.
		p.logger.Error("publish tables failed", "error", err, "tables", len(tables))
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	p.metrics.TablesPublished.Add(float64(len(tables)))

	for _, raw := range ingested {
		p.commitOffset(ctx, raw)
	}

	p.metrics.GroupsTracked.Set(float64(len(p.store.Groups())))
	p.metrics.ObservationsStored.Set(float64(p.store.Size()))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// ingestBatch parses each raw message and folds the valid ones into the
// store. Malformed records are logged, counted, and committed immediately so
// a poison pill never wedges the partition. Returns the successfully
// ingested raws and the sorted group keys whose series changed.
func (p *Pipeline) ingestBatch(ctx context.Context, rawBatch []domain.RawObservation) ([]domain.RawObservation, []string) {
	ingested := make([]domain.RawObservation, 0, len(rawBatch))
	dirtySet := make(map[string]struct{})

	for _, raw := range rawBatch {
		grouped, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("parse failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ParseFailures.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		if p.store.Upsert(grouped.Group, grouped.Obs) {
			dirtySet[grouped.Group] = struct{}{}
		}
		ingested = append(ingested, raw)
	}

	dirty := make([]string, 0, len(dirtySet))
	for g := range dirtySet {
		dirty = append(dirty, g)
	}
	sort.Strings(dirty)
	return ingested, dirty
}

// recompute rebuilds the index table for each group concurrently, one
// goroutine per group, since group computations are independent.
func (p *Pipeline) recompute(groups []string) ([]domain.Table, error) {
	tables := make([]domain.Table, len(groups))

	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			series, _ := p.store.Snapshot(group)

			opts := p.defaults
			opts.Group = group
			opts.Years = nil

			computeStart := time.Now()
			table, err := domain.ComputeTable(series, opts)
			if err != nil {
				return fmt.Errorf("compute table for group %q: %w", group, err)
			}
			p.metrics.ComputeDuration.Observe(time.Since(computeStart).Seconds())

			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawObservation) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
