package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
)

const (
	// transformAttempts bounds retries of a transient transform failure.
	transformAttempts = 3

	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize request messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.InboundMessage, error)
}

// Transformer turns a request message into a match result.
type Transformer interface {
	Transform(ctx context.Context, msg domain.InboundMessage) (domain.MatchResult, error)
}

// BatchLoader writes match results to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.MatchResult) error
}

// Pipeline orchestrates the extract-match-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the most recent extract reached the broker,
// or an error describing why the pipeline is not ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not reached the broker")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-match-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.ready.Store(false)
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	p.ready.Store(true)

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	loaded, ok := p.transformAndLoad(ctx, batch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// transformAndLoad matches each message in the batch, loads the successes,
// and commits offsets. Messages that cannot be matched are committed and
// skipped. Returns the number of loaded results and false if the pipeline
// should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, batch []domain.InboundMessage, backoff *time.Duration) (int, bool) {
	results := make([]domain.MatchResult, 0, len(batch))
	matched := make([]domain.InboundMessage, 0, len(batch))

	for _, msg := range batch {
		out, err := p.transform(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return 0, false
			}
			p.logger.Warn("match failed, skipping message",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, msg)
			continue
		}
		results = append(results, out)
		matched = append(matched, msg)
	}

	if len(results) == 0 {
		return 0, true
	}

	for {
		err := p.loader.LoadBatch(ctx, results)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(results))
		if !p.backoffOrStop(ctx, backoff) {
			return 0, false
		}
	}

	p.metrics.MessagesProduced.Add(float64(len(results)))

	for _, msg := range matched {
		p.commitOffset(ctx, msg)
	}

	return len(results), true
}

// transform runs the transformer, retrying transient failures with a short
// backoff.
func (p *Pipeline) transform(ctx context.Context, msg domain.InboundMessage) (domain.MatchResult, error) {
	delay := initialBackoff
	var err error
	for attempt := 1; attempt <= transformAttempts; attempt++ {
		var out domain.MatchResult
		out, err = p.transformer.Transform(ctx, msg)
		if err == nil || !errors.Is(err, ErrTransient) {
			return out, err
		}
		if attempt < transformAttempts {
			p.logger.Debug("transient match failure, retrying", "attempt", attempt, "error", err)
			if !retry.SleepWithContext(ctx, delay) {
				return domain.MatchResult{}, ctx.Err()
			}
			delay = retry.NextBackoff(delay, maxBackoff)
		}
	}
	return domain.MatchResult{}, err
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, msg domain.InboundMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}
