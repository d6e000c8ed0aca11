package veloscout

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// FeatureKind discriminates raw feature geometry
type FeatureKind uint16

const (
	KindNode = FeatureKind(iota + 1)
	KindWay
)

func (iotaIdx FeatureKind) String() string {
	return [...]string{"node", "way"}[iotaIdx-1]
}

// RawFeature is an unprocessed map entity produced by a provider strategy.
// Point carries geometry for nodes (and ways reduced to their center by
// the remote API); Line carries geometry for ways when it is known. The
// value is handed to the matcher by copy and never retained.
type RawFeature struct {
	ID    int64
	Kind  FeatureKind
	Point orb.Point
	Line  orb.LineString
	Tags  osm.Tags
}

// StreamReport describes how a stream run went: how many stages were
// issued and which of them had to be skipped.
type StreamReport struct {
	Stages   int
	Warnings []StageWarning
}

// FeatureProvider produces a stream of raw map features relevant to a
// corridor. A stream is finite and not restartable: every Stream call
// re-acquires the data. Implementations call emit for each feature as it
// becomes available and stop early when emit or the context fails.
type FeatureProvider interface {
	Stream(ctx context.Context, corridor *Corridor, emit func(RawFeature) error) (*StreamReport, error)
}
