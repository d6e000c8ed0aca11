package veloscout

import (
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultGeofabrikIndexURL is the public catalog of downloadable extracts
const DefaultGeofabrikIndexURL = "https://download.geofabrik.de/index-v1.json"

// Region is a named downloadable OSM extract with a bounding box. Regions
// form a containment hierarchy through the Parent field.
type Region struct {
	ID     string
	Name   string
	Parent string
	Bound  orb.Bound
	PBFURL string
}

// FileName returns the file name component of the region's download URL.
func (region Region) FileName() string {
	parts := strings.Split(region.PBFURL, "/")
	return parts[len(parts)-1]
}

// boundArea returns bounding box area in square degrees. Used for relative
// comparison only.
func boundArea(b orb.Bound) float64 {
	return (b.Max.Lon() - b.Min.Lon()) * (b.Max.Lat() - b.Min.Lat())
}

func boundContains(outer, inner orb.Bound) bool {
	return outer.Contains(inner.Min) && outer.Contains(inner.Max)
}

// RegionCatalog is an ordered list of regions. Order is significant: it is
// the deterministic tie-break when two regions have equal bounding box area.
type RegionCatalog struct {
	regions []Region
	byID    map[string]int
}

// NewRegionCatalog builds a catalog preserving the given region order.
func NewRegionCatalog(regions []Region) *RegionCatalog {
	byID := make(map[string]int, len(regions))
	for i := range regions {
		byID[regions[i].ID] = i
	}
	return &RegionCatalog{regions: regions, byID: byID}
}

// Regions returns the catalog entries in order.
func (catalog *RegionCatalog) Regions() []Region {
	return catalog.regions
}

// ParseGeofabrikIndex parses the Geofabrik index-v1 GeoJSON feature
// collection into a region catalog. Features without a PBF download URL
// are skipped.
func ParseGeofabrikIndex(data []byte) (*RegionCatalog, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse regions index")
	}
	regions := make([]Region, 0, len(fc.Features))
	for _, feature := range fc.Features {
		if feature.Geometry == nil {
			continue
		}
		urls, ok := feature.Properties["urls"].(map[string]interface{})
		if !ok {
			continue
		}
		pbfURL, ok := urls["pbf"].(string)
		if !ok || pbfURL == "" {
			continue
		}
		bound, ok := geometryBound(feature.Geometry)
		if !ok {
			continue
		}
		region := Region{
			Bound:  bound,
			PBFURL: pbfURL,
		}
		if id, ok := feature.Properties["id"].(string); ok {
			region.ID = id
		}
		if name, ok := feature.Properties["name"].(string); ok {
			region.Name = name
		}
		if parent, ok := feature.Properties["parent"].(string); ok {
			region.Parent = parent
		}
		regions = append(regions, region)
	}
	return NewRegionCatalog(regions), nil
}

func geometryBound(geometry *geojson.Geometry) (orb.Bound, bool) {
	bound := orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	extend := func(coord []float64) {
		if len(coord) < 2 {
			return
		}
		bound.Min[0] = math.Min(bound.Min[0], coord[0])
		bound.Min[1] = math.Min(bound.Min[1], coord[1])
		bound.Max[0] = math.Max(bound.Max[0], coord[0])
		bound.Max[1] = math.Max(bound.Max[1], coord[1])
	}
	switch {
	case geometry.IsPolygon():
		for _, ring := range geometry.Polygon {
			for _, coord := range ring {
				extend(coord)
			}
		}
	case geometry.IsMultiPolygon():
		for _, polygon := range geometry.MultiPolygon {
			for _, ring := range polygon {
				for _, coord := range ring {
					extend(coord)
				}
			}
		}
	default:
		return bound, false
	}
	if math.IsInf(bound.Min[0], 1) {
		return bound, false
	}
	return bound, true
}

// Resolve picks the smallest region whose bounding box fully contains the
// corridor's bounding box. Equal areas resolve to the region listed
// earlier in the catalog. When no bounding box contains the corridor
// outright it can still poke past the catalog's coverage, a coastal
// buffer reaching into the sea for example; the parent chains of the
// intersecting regions are then climbed to their smallest shared
// ancestor, whose extract covers every intersected area. Only a corridor
// touching no region at all gives up with NoRegionFoundError.
func (catalog *RegionCatalog) Resolve(corridor *Corridor) (Region, error) {
	target := corridor.Bound()

	best, found := catalog.pickSmallest(func(region Region) bool {
		return boundContains(region.Bound, target)
	})
	if found {
		return best, nil
	}

	var shared map[string]struct{}
	for _, region := range catalog.regions {
		if !region.Bound.Intersects(target) {
			continue
		}
		chain := map[string]struct{}{region.ID: {}}
		parent := region.Parent
		for parent != "" {
			idx, ok := catalog.byID[parent]
			if !ok {
				break
			}
			chain[parent] = struct{}{}
			parent = catalog.regions[idx].Parent
		}
		if shared == nil {
			shared = chain
			continue
		}
		for id := range shared {
			if _, ok := chain[id]; !ok {
				delete(shared, id)
			}
		}
	}
	best, found = catalog.pickSmallest(func(region Region) bool {
		_, ok := shared[region.ID]
		return ok
	})
	if found {
		return best, nil
	}
	return Region{}, &NoRegionFoundError{Bound: target}
}

// pickSmallest returns the region with minimal bounding box area among
// those accepted by the predicate, preferring earlier catalog entries on
// equal area.
func (catalog *RegionCatalog) pickSmallest(accept func(Region) bool) (Region, bool) {
	best := Region{}
	bestArea := math.Inf(1)
	found := false
	for _, region := range catalog.regions {
		if !accept(region) {
			continue
		}
		area := boundArea(region.Bound)
		if area < bestArea {
			best = region
			bestArea = area
			found = true
		}
	}
	return best, found
}

// LoadRegionCatalog fetches the Geofabrik index and parses it into a
// catalog. The raw index is cached on disk and refreshed when older
// than maxAge, so repeated runs do not hammer the download server.
func LoadRegionCatalog(ctx context.Context, indexURL, cacheDir string, maxAge time.Duration) (*RegionCatalog, error) {
	cachePath := filepath.Join(cacheDir, "geofabrik-index.json")
	if info, err := os.Stat(cachePath); err == nil && time.Since(info.ModTime()) < maxAge {
		data, err := os.ReadFile(cachePath)
		if err == nil {
			catalog, err := ParseGeofabrikIndex(data)
			if err == nil {
				return catalog, nil
			}
			zap.L().Warn("Cached region index is unreadable, refetching", zap.Error(err))
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare region index request")
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Can't download region index")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Can't download region index: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read region index")
	}
	catalog, err := ParseGeofabrikIndex(data)
	if err != nil {
		return nil, err
	}
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err == nil {
			_ = os.WriteFile(cachePath, data, 0o644)
		}
	}
	return catalog, nil
}
