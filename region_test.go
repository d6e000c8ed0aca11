package veloscout

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *RegionCatalog {
	return NewRegionCatalog([]Region{
		{
			ID:     "africa",
			Name:   "Africa",
			Bound:  orb.Bound{Min: orb.Point{-27.0, -35.0}, Max: orb.Point{52.0, 38.0}},
			PBFURL: "https://example.com/africa-latest.osm.pbf",
		},
		{
			ID:     "morocco",
			Name:   "Morocco",
			Parent: "africa",
			Bound:  orb.Bound{Min: orb.Point{-13.5, 27.0}, Max: orb.Point{-0.9, 36.0}},
			PBFURL: "https://example.com/morocco-latest.osm.pbf",
		},
		{
			ID:     "algeria",
			Name:   "Algeria",
			Parent: "africa",
			Bound:  orb.Bound{Min: orb.Point{-8.7, 18.9}, Max: orb.Point{12.0, 37.1}},
			PBFURL: "https://example.com/algeria-latest.osm.pbf",
		},
	})
}

func TestResolveSmallestRegion(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	region, err := testCatalog().Resolve(corridor)
	require.NoError(t, err)
	assert.Equal(t, "morocco", region.ID)
}

func TestResolveTieBreakByCatalogOrder(t *testing.T) {
	catalog := NewRegionCatalog([]Region{
		{
			ID:     "first",
			Bound:  orb.Bound{Min: orb.Point{-10.0, 30.0}, Max: orb.Point{0.0, 36.0}},
			PBFURL: "https://example.com/first.osm.pbf",
		},
		{
			ID:     "second",
			Bound:  orb.Bound{Min: orb.Point{-10.0, 30.0}, Max: orb.Point{0.0, 36.0}},
			PBFURL: "https://example.com/second.osm.pbf",
		},
	})
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	region, err := catalog.Resolve(corridor)
	require.NoError(t, err)
	assert.Equal(t, "first", region.ID)
}

func TestResolveFallsBackToParent(t *testing.T) {
	// Corridor too wide for either country alone, the shared parent
	// covers it.
	route := []GeoPoint{
		{Lon: -10.0, Lat: 33.0},
		{Lon: 0.0, Lat: 33.0},
	}
	corridor, err := NewCorridor(route, 500.0)
	require.NoError(t, err)

	region, err := testCatalog().Resolve(corridor)
	require.NoError(t, err)
	assert.Equal(t, "africa", region.ID)
}

func TestResolveSharedAncestorWhenNoBoxContains(t *testing.T) {
	// The corridor reaches into the Atlantic past every bounding box,
	// so containment fails outright. Resolution climbs to the ancestor
	// shared by the intersected regions.
	route := []GeoPoint{
		{Lon: -30.0, Lat: 33.0},
		{Lon: -10.0, Lat: 33.0},
	}
	corridor, err := NewCorridor(route, 500.0)
	require.NoError(t, err)

	region, err := testCatalog().Resolve(corridor)
	require.NoError(t, err)
	assert.Equal(t, "africa", region.ID)
}

func TestResolveNoRegionFound(t *testing.T) {
	route := []GeoPoint{
		{Lon: -100.0, Lat: 40.0},
		{Lon: -99.9, Lat: 40.0},
	}
	corridor, err := NewCorridor(route, 500.0)
	require.NoError(t, err)

	_, err = testCatalog().Resolve(corridor)
	var noRegion *NoRegionFoundError
	require.ErrorAs(t, err, &noRegion)
}

func TestRegionFileName(t *testing.T) {
	region := Region{PBFURL: "https://download.geofabrik.de/africa/morocco-latest.osm.pbf"}
	assert.Equal(t, "morocco-latest.osm.pbf", region.FileName())
}

func TestParseGeofabrikIndex(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {
					"id": "morocco",
					"parent": "africa",
					"name": "Morocco",
					"urls": {"pbf": "https://download.geofabrik.de/africa/morocco-latest.osm.pbf"}
				},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[-13.5, 27.0], [-0.9, 27.0], [-0.9, 36.0], [-13.5, 36.0], [-13.5, 27.0]]]
				}
			},
			{
				"type": "Feature",
				"properties": {
					"id": "no-download",
					"name": "No download",
					"urls": {}
				},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[0.0, 0.0], [1.0, 0.0], [1.0, 1.0], [0.0, 0.0]]]
				}
			}
		]
	}`)

	catalog, err := ParseGeofabrikIndex(data)
	require.NoError(t, err)
	require.Len(t, catalog.Regions(), 1)

	region := catalog.Regions()[0]
	assert.Equal(t, "morocco", region.ID)
	assert.Equal(t, "africa", region.Parent)
	assert.Equal(t, "Morocco", region.Name)
	assert.InDelta(t, -13.5, region.Bound.Min.Lon(), 1e-9)
	assert.InDelta(t, 36.0, region.Bound.Max.Lat(), 1e-9)
}

func TestParseGeofabrikIndexBadPayload(t *testing.T) {
	_, err := ParseGeofabrikIndex([]byte("not geojson"))
	require.Error(t, err)
}
