package veloscout

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() []CategoryRule {
	return []CategoryRule{
		{
			Name:         "water",
			Filters:      []TagFilter{{Key: "amenity", Values: []string{"drinking_water", "fountain"}}},
			BufferMeters: 500,
			Symbol:       "Drinking Water",
		},
		{
			Name:         "food",
			Filters:      []TagFilter{{Key: "amenity", Values: []string{"restaurant", "cafe", "fountain"}}},
			BufferMeters: 1000,
			Symbol:       "Restaurant",
		},
	}
}

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	corridor, err := NewCorridor(testRoute(), 1000.0)
	require.NoError(t, err)
	return NewMatcher(testRules(), corridor)
}

func TestMatchPOIFirstRuleWins(t *testing.T) {
	matcher := newTestMatcher(t)

	// "fountain" appears in both rules; the earlier one must win
	poi, road := matcher.Match(RawFeature{
		ID:    1,
		Kind:  KindNode,
		Point: orb.Point{-6.95, 33.0 + latOffset(100.0)},
		Tags:  osm.Tags{{Key: "amenity", Value: "fountain"}, {Key: "name", Value: "Old Fountain"}},
	})
	require.NotNil(t, poi)
	assert.Nil(t, road)
	assert.Equal(t, "water", poi.Category)
	assert.Equal(t, "Drinking Water", poi.Symbol)
	assert.Equal(t, "Old Fountain", poi.Name)
	assert.InDelta(t, 100.0, poi.DistanceToRoute, 5.0)
}

func TestMatchPOIRespectsRuleBuffer(t *testing.T) {
	matcher := newTestMatcher(t)

	// 700 m out: beyond the 500 m water buffer, inside the 1000 m food one
	point := orb.Point{-6.95, 33.0 + latOffset(700.0)}
	poi, _ := matcher.Match(RawFeature{
		ID:    2,
		Kind:  KindNode,
		Point: point,
		Tags:  osm.Tags{{Key: "amenity", Value: "drinking_water"}},
	})
	assert.Nil(t, poi)

	poi, _ = matcher.Match(RawFeature{
		ID:    3,
		Kind:  KindNode,
		Point: point,
		Tags:  osm.Tags{{Key: "amenity", Value: "restaurant"}},
	})
	require.NotNil(t, poi)
	assert.Equal(t, "food", poi.Category)
}

func TestMatchRejectsUnmatchedTags(t *testing.T) {
	matcher := newTestMatcher(t)
	poi, road := matcher.Match(RawFeature{
		ID:    4,
		Kind:  KindNode,
		Point: orb.Point{-6.95, 33.0},
		Tags:  osm.Tags{{Key: "amenity", Value: "bench"}},
	})
	assert.Nil(t, poi)
	assert.Nil(t, road)
}

func TestMatchRoad(t *testing.T) {
	matcher := newTestMatcher(t)
	poi, road := matcher.Match(RawFeature{
		ID:   5,
		Kind: KindWay,
		Line: orb.LineString{{-6.97, 33.0}, {-6.93, 33.0}},
		Tags: osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "name", Value: "N9"},
			{Key: "maxspeed", Value: "100"},
			{Key: "lanes", Value: "2"},
			{Key: "surface", Value: "asphalt"},
			{Key: "cycleway:right", Value: "lane"},
		},
	})
	assert.Nil(t, poi)
	require.NotNil(t, road)
	assert.Equal(t, "primary", road.Highway)
	assert.Equal(t, "N9", road.Name)
	assert.Equal(t, 100.0, road.MaxSpeed)
	assert.Equal(t, 2, road.Lanes)
	assert.Equal(t, "lane", road.Cycleway)
	assert.False(t, road.Shoulder)
	assert.Greater(t, road.LengthKm(), 0.0)
}

func TestMatchRoadExcludesNonRoadHighways(t *testing.T) {
	matcher := newTestMatcher(t)
	for _, class := range []string{"footway", "cycleway", "service", "steps"} {
		_, road := matcher.Match(RawFeature{
			ID:   6,
			Kind: KindWay,
			Line: orb.LineString{{-6.97, 33.0}, {-6.93, 33.0}},
			Tags: osm.Tags{{Key: "highway", Value: class}},
		})
		assert.Nil(t, road, "highway=%s must not count as a road", class)
	}
}

func TestMatchRoadOutsideCorridor(t *testing.T) {
	matcher := newTestMatcher(t)
	_, road := matcher.Match(RawFeature{
		ID:   7,
		Kind: KindWay,
		Line: orb.LineString{{-6.97, 33.1}, {-6.93, 33.1}},
		Tags: osm.Tags{{Key: "highway", Value: "primary"}},
	})
	assert.Nil(t, road)
}

func TestMatchIsIdempotent(t *testing.T) {
	matcher := newTestMatcher(t)
	raw := RawFeature{
		ID:    8,
		Kind:  KindNode,
		Point: orb.Point{-6.95, 33.0},
		Tags:  osm.Tags{{Key: "amenity", Value: "cafe"}},
	}
	first, _ := matcher.Match(raw)
	second, _ := matcher.Match(raw)
	require.NotNil(t, first)
	assert.Equal(t, *first, *second)
}

func TestQueryFilters(t *testing.T) {
	filters := QueryFilters(testRules())
	require.Len(t, filters, 2)
	assert.Equal(t, "amenity", filters[0].Key)
	assert.Contains(t, filters[0].Values, "drinking_water")
	assert.Contains(t, filters[1].Values, "restaurant")
}
