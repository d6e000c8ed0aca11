package veloscout

import (
	"context"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

// LocalProvider is the local-file strategy: a single forward streaming
// pass over a bulk PBF extract. Files can reach tens of gigabytes, so the
// dataset is never loaded whole; only node locations inside the corridor's
// bounding box are remembered so that way geometry can be assembled later
// in the same pass.
type LocalProvider struct {
	path string
}

// NewLocalProvider creates the local-file strategy for the given PBF path.
func NewLocalProvider(path string) *LocalProvider {
	return &LocalProvider{path: path}
}

// scanPadDeg widens the node-caching box past the corridor bound so ways
// that briefly leave it keep their real shape, roughly 5.5 km at the
// equator.
const scanPadDeg = 0.05

// scanBound is the prefilter box for caching node locations during a
// local scan.
func scanBound(corridor *Corridor) orb.Bound {
	return corridor.Bound().Pad(scanPadDeg)
}

// Stream implements FeatureProvider. A node is only considered once the
// cheap bounding box prefilter passed; full tag and geometry evaluation is
// left to the matcher. Way nodes beyond the padded box stay unknown, so a
// way that strays further out is assembled as a straight chord across the
// gap. Missing file is DatasetUnavailableError, malformed stream is
// DatasetCorruptError; both are fatal to the run.
func (provider *LocalProvider) Stream(ctx context.Context, corridor *Corridor, emit func(RawFeature) error) (*StreamReport, error) {
	f, err := os.Open(provider.path)
	if err != nil {
		return nil, &DatasetUnavailableError{Path: provider.path, Reason: err.Error()}
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, 4)
	defer scanner.Close()

	bound := scanBound(corridor)
	nodeLocations := make(map[osm.NodeID]orb.Point)
	var scannedNodes, scannedWays, emitted int

	for scanner.Scan() {
		switch object := scanner.Object().(type) {
		case *osm.Node:
			scannedNodes++
			pt := orb.Point{object.Lon, object.Lat}
			if !bound.Contains(pt) {
				continue
			}
			nodeLocations[object.ID] = pt
			if len(object.Tags) == 0 {
				continue
			}
			emitted++
			if err := emit(RawFeature{
				ID:    int64(object.ID),
				Kind:  KindNode,
				Point: pt,
				Tags:  object.Tags,
			}); err != nil {
				return nil, err
			}
		case *osm.Way:
			scannedWays++
			if len(object.Tags) == 0 {
				continue
			}
			line := make(orb.LineString, 0, len(object.Nodes))
			for _, wayNode := range object.Nodes {
				if pt, ok := nodeLocations[wayNode.ID]; ok {
					line = append(line, pt)
				}
			}
			// Ways entirely outside the bounding box have no known nodes
			if len(line) < 2 {
				continue
			}
			emitted++
			if err := emit(RawFeature{
				ID:    int64(object.ID),
				Kind:  KindWay,
				Point: line[0],
				Line:  line,
				Tags:  object.Tags,
			}); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DatasetCorruptError{Path: provider.path, Reason: err.Error()}
	}
	zap.L().Info("local scan done",
		zap.String("file", provider.path),
		zap.Int("nodes", scannedNodes),
		zap.Int("ways", scannedWays),
		zap.Int("emitted", emitted),
	)
	return &StreamReport{Stages: 1}, nil
}
