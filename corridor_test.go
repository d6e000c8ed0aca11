package veloscout

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// degree offset corresponding to the given amount of meters along a meridian
func latOffset(meters float64) float64 {
	return meters / 111320.0
}

func testRoute() []GeoPoint {
	return []GeoPoint{
		{Lon: -7.0, Lat: 33.0},
		{Lon: -6.95, Lat: 33.0},
		{Lon: -6.9, Lat: 33.0},
	}
}

func TestNewCorridorValidation(t *testing.T) {
	var invalidRoute *InvalidRouteError

	_, err := NewCorridor([]GeoPoint{{Lon: -7.0, Lat: 33.0}}, 500.0)
	require.ErrorAs(t, err, &invalidRoute)

	_, err = NewCorridor(testRoute(), 0.0)
	require.ErrorAs(t, err, &invalidRoute)

	_, err = NewCorridor([]GeoPoint{{Lon: -7.0, Lat: 95.0}, {Lon: -6.9, Lat: 33.0}}, 500.0)
	require.ErrorAs(t, err, &invalidRoute)

	duplicated := []GeoPoint{{Lon: -7.0, Lat: 33.0}, {Lon: -7.0, Lat: 33.0}}
	_, err = NewCorridor(duplicated, 500.0)
	require.ErrorAs(t, err, &invalidRoute)
}

func TestCorridorContainsPoint(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	near := orb.Point{-6.95, 33.0 + latOffset(100.0)}
	far := orb.Point{-6.95, 33.0 + latOffset(600.0)}

	assert.True(t, corridor.ContainsPoint(near))
	assert.False(t, corridor.ContainsPoint(far))
	assert.True(t, corridor.ContainsPoint(orb.Point{-6.95, 33.0}))
	assert.False(t, corridor.ContainsPoint(orb.Point{-10.0, 40.0}))
}

func TestCorridorDistanceToRoute(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	pt := orb.Point{-6.95, 33.0 + latOffset(100.0)}
	assert.InDelta(t, 100.0, corridor.DistanceToRoute(pt), 5.0)
	assert.InDelta(t, 0.0, corridor.DistanceToRoute(orb.Point{-6.95, 33.0}), 1.0)
}

func TestCorridorIntersectsLine(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	crossing := orb.LineString{
		{-6.95, 33.0 - latOffset(2000.0)},
		{-6.95, 33.0 + latOffset(2000.0)},
	}
	assert.True(t, corridor.IntersectsLine(crossing))

	inside := orb.LineString{
		{-6.97, 33.0 + latOffset(100.0)},
		{-6.93, 33.0 + latOffset(100.0)},
	}
	assert.True(t, corridor.IntersectsLine(inside))

	outside := orb.LineString{
		{-6.95, 33.0 + latOffset(3000.0)},
		{-6.90, 33.0 + latOffset(3000.0)},
	}
	assert.False(t, corridor.IntersectsLine(outside))

	assert.False(t, corridor.IntersectsLine(orb.LineString{}))
}

func TestCorridorAreaGrowsWithBuffer(t *testing.T) {
	narrow, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)
	wide, err := NewCorridor(testRoute(), 1000.0)
	require.NoError(t, err)

	assert.Greater(t, wide.Area(), narrow.Area())

	// Rough sanity bound: length * width + cap circle
	length := narrow.LengthKm() * 1000.0
	expected := length * 2 * 500.0
	assert.InEpsilon(t, expected, narrow.Area(), 0.25)
}

func TestCorridorLengthKm(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)
	assert.InDelta(t, getSphericalLength(testRoute()), corridor.LengthKm(), 1e-9)
}
