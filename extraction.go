package veloscout

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func strategyName(provider FeatureProvider) string {
	switch provider.(type) {
	case *SimpleProvider:
		return "simple"
	case *StagedProvider:
		return "stages"
	case *LocalProvider:
		return "local"
	default:
		return "custom"
	}
}

// Extract runs one extraction: builds the corridor, streams raw features
// from the provider, matches them against the rules and the corridor,
// scores matched roads and aggregates everything. Cancelling the context
// aborts the current network wait and any further stages; whatever was
// aggregated so far is returned marked partial.
func Extract(ctx context.Context, route []GeoPoint, bufferMeters float64, provider FeatureProvider, rules []CategoryRule, criteria *SafetyCriteria) (*ExtractionResult, error) {
	corridor, err := NewCorridor(route, bufferMeters)
	if err != nil {
		return nil, err
	}
	matcher := NewMatcher(rules, corridor)
	scorer := NewRiskScorer(criteria)
	aggregator := NewAggregator()

	report, streamErr := provider.Stream(ctx, corridor, func(raw RawFeature) error {
		poi, road := matcher.Match(raw)
		if poi != nil {
			aggregator.AddPOI(*poi)
		}
		if road != nil {
			road.Risk = scorer.Score(road)
			aggregator.AddRoad(*road)
		}
		return nil
	})

	partial := false
	stages := 0
	if report != nil {
		stages = report.Stages
		aggregator.AddWarnings(report.Warnings)
	}
	if streamErr != nil {
		if errors.Is(streamErr, context.Canceled) || errors.Is(streamErr, context.DeadlineExceeded) {
			zap.L().Warn("run cancelled, returning partial aggregate", zap.Error(streamErr))
			partial = true
		} else {
			return nil, streamErr
		}
	}

	result := aggregator.Result(strategyName(provider), stages, partial)
	zap.L().Info("extraction done",
		zap.String("strategy", result.Strategy),
		zap.Int("stages", result.Stages),
		zap.Int("pois", len(result.POIs)),
		zap.Int("roads", len(result.Roads)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("partial", result.Partial),
	)
	return result, nil
}

// SafetyAnalyzer runs the road safety workflow: resolve the smallest
// catalog region covering the corridor, acquire its extract unless a
// manual dataset path was given, stream it locally and keep the roads at
// or above the minimum risk score.
type SafetyAnalyzer struct {
	catalog  *RegionCatalog
	cache    *DatasetCache
	criteria *SafetyCriteria

	// manualPath skips region resolution and cache acquisition
	manualPath string
}

// NewSafetyAnalyzer creates an analyzer.
func NewSafetyAnalyzer(catalog *RegionCatalog, cache *DatasetCache, criteria *SafetyCriteria, options ...func(*SafetyAnalyzer)) *SafetyAnalyzer {
	analyzer := &SafetyAnalyzer{
		catalog:  catalog,
		cache:    cache,
		criteria: criteria,
	}
	for _, option := range options {
		option(analyzer)
	}
	return analyzer
}

// WithDatasetFile makes the analyzer use a pre-acquired extract instead
// of resolving and downloading a region.
func WithDatasetFile(path string) func(*SafetyAnalyzer) {
	return func(analyzer *SafetyAnalyzer) {
		analyzer.manualPath = path
	}
}

// Analyze scores all roads within bufferMeters of the route and returns
// those with risk score of at least minScore.
func (analyzer *SafetyAnalyzer) Analyze(ctx context.Context, route []GeoPoint, bufferMeters, minScore float64) (*ExtractionResult, error) {
	path := analyzer.manualPath
	if path == "" {
		corridor, err := NewCorridor(route, bufferMeters)
		if err != nil {
			return nil, err
		}
		region, err := analyzer.catalog.Resolve(corridor)
		if err != nil {
			return nil, err
		}
		zap.L().Info("resolved region",
			zap.String("region", region.Name),
			zap.String("id", region.ID),
		)
		path, err = analyzer.cache.Ensure(ctx, region)
		if err != nil {
			return nil, err
		}
	}

	provider := NewLocalProvider(path)
	result, err := Extract(ctx, route, bufferMeters, provider, nil, analyzer.criteria)
	if err != nil {
		return nil, err
	}

	unsafe := result.Roads[:0]
	for _, segment := range result.Roads {
		if segment.Risk.Score >= minScore {
			unsafe = append(unsafe, segment)
		}
	}
	result.Roads = unsafe
	zap.L().Info("unsafe roads found", zap.Int("count", len(result.Roads)), zap.Float64("min_score", minScore))
	return result, nil
}
