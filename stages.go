package veloscout

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultStageKm is the maximum stage length for the staged strategy
	DefaultStageKm = 150.0
	// DefaultStageDelay spaces consecutive stage queries
	DefaultStageDelay = 3 * time.Second
	// DefaultStageRetries bounds retry attempts per stage
	DefaultStageRetries = 3

	stageBackoffBase = 2 * time.Second
)

// StagedProvider is the remote-staged strategy: the route is split into
// sequential stages of bounded length, one remote query per stage with a
// mandatory inter-stage delay. Stages never run in parallel: the delay
// exists to respect a shared upstream rate limit. A stage that exhausts
// its retries is skipped with a recorded warning; the run continues with
// partial results.
type StagedProvider struct {
	client     *OverpassClient
	filters    []TagFilter
	stageKm    float64
	delay      time.Duration
	maxRetries int

	// sleep is replaceable so tests can observe waits instead of waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewStagedProvider creates the remote-staged strategy.
func NewStagedProvider(client *OverpassClient, filters []TagFilter, options ...func(*StagedProvider)) *StagedProvider {
	provider := &StagedProvider{
		client:     client,
		filters:    filters,
		stageKm:    DefaultStageKm,
		delay:      DefaultStageDelay,
		maxRetries: DefaultStageRetries,
		sleep:      sleepContext,
	}
	for _, option := range options {
		option(provider)
	}
	return provider
}

// WithStageLength overrides the maximum stage length in kilometers.
func WithStageLength(stageKm float64) func(*StagedProvider) {
	return func(provider *StagedProvider) {
		provider.stageKm = stageKm
	}
}

// WithStageDelay overrides the inter-stage delay.
func WithStageDelay(delay time.Duration) func(*StagedProvider) {
	return func(provider *StagedProvider) {
		provider.delay = delay
	}
}

// WithStageRetries overrides the per-stage retry budget.
func WithStageRetries(maxRetries int) func(*StagedProvider) {
	return func(provider *StagedProvider) {
		provider.maxRetries = maxRetries
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stream implements FeatureProvider. Each stage builds a sub-corridor with
// the parent's buffer distance, so neighbouring stages overlap around the
// shared seam point and features near it are seen by both; the aggregator
// removes the resulting duplicates. The inter-stage delay paces every
// stage after the first, whether the previous stage succeeded or was
// skipped.
func (provider *StagedProvider) Stream(ctx context.Context, corridor *Corridor, emit func(RawFeature) error) (*StreamReport, error) {
	stages := splitRouteByDistance(corridor.Route(), provider.stageKm)
	report := &StreamReport{Stages: len(stages)}

	for i, stage := range stages {
		if i > 0 {
			if err := provider.sleep(ctx, provider.delay); err != nil {
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sub, err := NewCorridor(stage.points, corridor.BufferMeters())
		if err != nil {
			return report, errors.Wrapf(err, "Can't build corridor for stage %d", stage.num)
		}
		zap.L().Info("processing stage",
			zap.Int("stage", stage.num),
			zap.Int("stages", len(stages)),
			zap.Float64("start_km", stage.startKm),
			zap.Float64("end_km", stage.endKm),
		)
		features, err := provider.queryWithRetry(ctx, sub)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			warning := StageWarning{
				Stage:   stage.num,
				StartKm: stage.startKm,
				EndKm:   stage.endKm,
				Reason:  err.Error(),
			}
			report.Warnings = append(report.Warnings, warning)
			zap.L().Warn("stage skipped", zap.Int("stage", stage.num), zap.Error(err))
			continue
		}
		for _, feature := range features {
			if err := emit(feature); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

// queryWithRetry re-issues a stage query after exponential backoff when
// the upstream rate limits or times out, up to the retry budget. Other
// failures surface immediately.
func (provider *StagedProvider) queryWithRetry(ctx context.Context, sub *Corridor) ([]RawFeature, error) {
	var lastErr error
	for attempt := 0; attempt < provider.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(stageBackoffBase) * math.Pow(2, float64(attempt-1)))
			zap.L().Warn("retrying stage query",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			if err := provider.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
		features, err := provider.client.Query(ctx, sub.Bound(), provider.filters)
		if err == nil {
			return features, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, errors.Wrap(lastErr, "Retries exhausted")
}

func isRetryable(err error) bool {
	var rateLimited *UpstreamRateLimitError
	if errors.As(err, &rateLimited) {
		return true
	}
	var timedOut *UpstreamTimeoutError
	return errors.As(err, &timedOut)
}
