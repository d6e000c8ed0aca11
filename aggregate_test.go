package veloscout

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorDeduplicatesPOIs(t *testing.T) {
	aggregator := NewAggregator()

	first := POIRecord{Category: "water", Name: "Fountain", Point: orb.Point{-6.95, 33.0}, DistanceToRoute: 50.0}
	duplicate := POIRecord{Category: "water", Name: "Fountain", Point: orb.Point{-6.95, 33.0}, DistanceToRoute: 80.0}

	assert.True(t, aggregator.AddPOI(first))
	assert.False(t, aggregator.AddPOI(duplicate))

	result := aggregator.Result("stages", 2, false)
	require.Len(t, result.POIs, 1)
	// First-seen record wins
	assert.Equal(t, 50.0, result.POIs[0].DistanceToRoute)
}

func TestAggregatorKeepsDistinctPOIs(t *testing.T) {
	aggregator := NewAggregator()

	assert.True(t, aggregator.AddPOI(POIRecord{Category: "water", Point: orb.Point{-6.95, 33.0}}))
	// Same location, different category
	assert.True(t, aggregator.AddPOI(POIRecord{Category: "food", Point: orb.Point{-6.95, 33.0}}))
	// Same category, location beyond the rounding epsilon
	assert.True(t, aggregator.AddPOI(POIRecord{Category: "water", Point: orb.Point{-6.95, 33.001}}))

	assert.Len(t, aggregator.Result("simple", 1, false).POIs, 3)
}

func TestAggregatorDeduplicatesRoads(t *testing.T) {
	aggregator := NewAggregator()
	geometry := orb.LineString{{-6.97, 33.0}, {-6.93, 33.0}}

	assert.True(t, aggregator.AddRoad(RoadSegment{ID: 1, Geometry: geometry}))
	assert.False(t, aggregator.AddRoad(RoadSegment{ID: 2, Geometry: geometry}))
	assert.True(t, aggregator.AddRoad(RoadSegment{ID: 3, Geometry: orb.LineString{{-6.97, 33.0}, {-6.92, 33.0}}}))

	result := aggregator.Result("stages", 3, false)
	require.Len(t, result.Roads, 2)
	assert.Equal(t, int64(1), result.Roads[0].ID)
}

func TestResultPartialFlag(t *testing.T) {
	clean := NewAggregator().Result("simple", 1, false)
	assert.False(t, clean.Partial)

	cancelled := NewAggregator().Result("simple", 1, true)
	assert.True(t, cancelled.Partial)

	degraded := NewAggregator()
	degraded.AddWarnings([]StageWarning{{Stage: 2, StartKm: 150, EndKm: 300, Reason: "Retries exhausted"}})
	result := degraded.Result("stages", 3, false)
	assert.True(t, result.Partial)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].String(), "stage 2")
}
