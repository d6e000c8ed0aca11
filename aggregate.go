package veloscout

import (
	"fmt"
	"strings"
)

// ExtractionResult is the final ordered feature collection of one run,
// together with everything needed to report degraded completeness: the
// union of per-stage warnings and the Partial marker. A run never returns
// a silent empty result; callers can always distinguish "no features
// exist" from "stages failed".
type ExtractionResult struct {
	Strategy string
	Stages   int
	POIs     []POIRecord
	Roads    []RoadSegment
	Warnings []StageWarning
	Partial  bool
}

// Aggregator deduplicates matched records across stages. First-seen wins:
// later stages never override earlier ones, which keeps results stable
// regardless of stage processing order.
type Aggregator struct {
	seenPOIs  map[string]struct{}
	seenRoads map[string]struct{}
	pois      []POIRecord
	roads     []RoadSegment
	warnings  []StageWarning
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		seenPOIs:  make(map[string]struct{}),
		seenRoads: make(map[string]struct{}),
	}
}

// poiKey identifies a POI by category, geometry rounded to a small
// coordinate epsilon and name when present.
func poiKey(poi *POIRecord) string {
	return fmt.Sprintf("%s|%.5f|%.5f|%s", poi.Category, poi.Point.Lat(), poi.Point.Lon(), poi.Name)
}

// roadKey identifies a road segment by its geometry.
func roadKey(segment *RoadSegment) string {
	var sb strings.Builder
	for _, pt := range segment.Geometry {
		fmt.Fprintf(&sb, "%.5f,%.5f;", pt.Lat(), pt.Lon())
	}
	return sb.String()
}

// AddPOI records a POI unless an identical one was seen before. Reports
// whether the record was kept.
func (aggregator *Aggregator) AddPOI(poi POIRecord) bool {
	key := poiKey(&poi)
	if _, seen := aggregator.seenPOIs[key]; seen {
		return false
	}
	aggregator.seenPOIs[key] = struct{}{}
	aggregator.pois = append(aggregator.pois, poi)
	return true
}

// AddRoad records a road segment unless one with identical geometry was
// seen before. Reports whether the record was kept.
func (aggregator *Aggregator) AddRoad(segment RoadSegment) bool {
	key := roadKey(&segment)
	if _, seen := aggregator.seenRoads[key]; seen {
		return false
	}
	aggregator.seenRoads[key] = struct{}{}
	aggregator.roads = append(aggregator.roads, segment)
	return true
}

// AddWarnings appends stage warnings, preserving their union across all
// partial results.
func (aggregator *Aggregator) AddWarnings(warnings []StageWarning) {
	aggregator.warnings = append(aggregator.warnings, warnings...)
}

// Result assembles the final collection.
func (aggregator *Aggregator) Result(strategy string, stages int, partial bool) *ExtractionResult {
	return &ExtractionResult{
		Strategy: strategy,
		Stages:   stages,
		POIs:     aggregator.pois,
		Roads:    aggregator.roads,
		Warnings: aggregator.warnings,
		Partial:  partial || len(aggregator.warnings) > 0,
	}
}
