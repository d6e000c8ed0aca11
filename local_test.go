package veloscout

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanBoundKeepsNearbyWayNodes(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	bound := corridor.Bound()
	scan := scanBound(corridor)

	// A way node just past the corridor box still gets its location
	// cached, so the assembled line keeps its real shape there.
	nearby := orb.Point{bound.Max.Lon() + 0.02, bound.Center().Lat()}
	assert.False(t, bound.Contains(nearby))
	assert.True(t, scan.Contains(nearby))

	far := orb.Point{bound.Max.Lon() + 1.0, bound.Center().Lat()}
	assert.False(t, scan.Contains(far))
}

func TestLocalProviderMissingFile(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	provider := NewLocalProvider(filepath.Join(t.TempDir(), "absent.osm.pbf"))
	_, err = provider.Stream(context.Background(), corridor, func(RawFeature) error { return nil })

	var unavailable *DatasetUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestLocalProviderCorruptFile(t *testing.T) {
	corridor, err := NewCorridor(testRoute(), 500.0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "garbage.osm.pbf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a pbf stream"), 0o644))

	provider := NewLocalProvider(path)
	_, err = provider.Stream(context.Background(), corridor, func(RawFeature) error { return nil })

	var corrupt *DatasetCorruptError
	require.ErrorAs(t, err, &corrupt)
}
