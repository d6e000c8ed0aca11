package veloscout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGPX(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "route.gpx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGPXRouteFromTrack(t *testing.T) {
	path := writeGPX(t, `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <trk>
    <trkseg>
      <trkpt lat="33.0" lon="-7.0"/>
      <trkpt lat="33.0" lon="-6.95"/>
    </trkseg>
    <trkseg>
      <trkpt lat="33.0" lon="-6.9"/>
    </trkseg>
  </trk>
</gpx>`)

	route, err := LoadGPXRoute(path)
	require.NoError(t, err)
	require.Len(t, route, 3)
	assert.Equal(t, GeoPoint{Lat: 33.0, Lon: -7.0}, route[0])
	assert.Equal(t, GeoPoint{Lat: 33.0, Lon: -6.9}, route[2])
}

func TestLoadGPXRouteFallsBackToRoutePoints(t *testing.T) {
	path := writeGPX(t, `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <rte>
    <rtept lat="33.0" lon="-7.0"/>
    <rtept lat="33.1" lon="-6.9"/>
  </rte>
</gpx>`)

	route, err := LoadGPXRoute(path)
	require.NoError(t, err)
	require.Len(t, route, 2)
	assert.Equal(t, 33.1, route[1].Lat)
}

func TestLoadGPXRouteFallsBackToWaypoints(t *testing.T) {
	path := writeGPX(t, `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <wpt lat="33.0" lon="-7.0"/>
  <wpt lat="33.1" lon="-6.9"/>
</gpx>`)

	route, err := LoadGPXRoute(path)
	require.NoError(t, err)
	assert.Len(t, route, 2)
}

func TestLoadGPXRouteEmptyFile(t *testing.T) {
	path := writeGPX(t, `<?xml version="1.0"?><gpx version="1.1" creator="test"></gpx>`)

	_, err := LoadGPXRoute(path)
	var invalidRoute *InvalidRouteError
	require.ErrorAs(t, err, &invalidRoute)
}

func TestLoadGPXRouteMissingFile(t *testing.T) {
	_, err := LoadGPXRoute(filepath.Join(t.TempDir(), "absent.gpx"))
	require.Error(t, err)
}

func TestLoadGPXRouteBadXML(t *testing.T) {
	path := writeGPX(t, "not xml at all <<<")
	_, err := LoadGPXRoute(path)
	require.Error(t, err)
}
