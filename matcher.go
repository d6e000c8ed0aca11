package veloscout

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// TagFilter accepts features carrying one of Values under Key. An empty
// Values list accepts any value of the key.
type TagFilter struct {
	Key    string   `mapstructure:"key" yaml:"key"`
	Values []string `mapstructure:"values" yaml:"values"`
}

func (filter TagFilter) matches(tags osm.Tags) bool {
	value := tags.Find(filter.Key)
	if value == "" {
		return false
	}
	if len(filter.Values) == 0 {
		return true
	}
	for _, accepted := range filter.Values {
		if value == accepted {
			return true
		}
	}
	return false
}

// CategoryRule maps a POI category to its accepted tag predicates. Rules
// live in ordered slices: the first matching rule wins and configuration
// order is never reshuffled.
type CategoryRule struct {
	Name         string      `mapstructure:"name" yaml:"name"`
	Filters      []TagFilter `mapstructure:"filters" yaml:"filters"`
	BufferMeters float64     `mapstructure:"buffer" yaml:"buffer"`
	Symbol       string      `mapstructure:"symbol" yaml:"symbol"`
}

func (rule CategoryRule) matches(tags osm.Tags) bool {
	for _, filter := range rule.Filters {
		if filter.matches(tags) {
			return true
		}
	}
	return false
}

// QueryFilters flattens category rules into the tag filters a remote
// query is built from.
func QueryFilters(rules []CategoryRule) []TagFilter {
	filters := []TagFilter{}
	for _, rule := range rules {
		filters = append(filters, rule.Filters...)
	}
	return filters
}

// POIRecord is a categorized point of interest inside the corridor.
type POIRecord struct {
	ID              int64
	Category        string
	Name            string
	Symbol          string
	Point           orb.Point
	Snapped         orb.Point
	DistanceToRoute float64
	Tags            osm.Tags
}

// RoadSegment is a way matched as a road, with the attributes the risk
// scorer consumes. Risk is attached once by the scorer and the segment is
// immutable afterwards.
type RoadSegment struct {
	ID       int64
	Name     string
	Geometry orb.LineString
	Highway  string
	MaxSpeed float64
	Lanes    int
	Surface  string
	Cycleway string
	Shoulder bool
	Bicycle  string
	Risk     RiskScore
}

// LengthKm returns approximate segment length in kilometers.
func (segment *RoadSegment) LengthKm() float64 {
	line := make([]GeoPoint, len(segment.Geometry))
	for i, pt := range segment.Geometry {
		line[i] = GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()}
	}
	return getSphericalLength(line)
}

// Highway classes that never count as roads for cycling analysis.
var excludedHighways = map[string]struct{}{
	"footway":    {},
	"path":       {},
	"cycleway":   {},
	"service":    {},
	"track":      {},
	"steps":      {},
	"pedestrian": {},
	"bridleway":  {},
	"corridor":   {},
}

// Matcher applies category rules and the corridor spatial predicate to
// raw features. It is a pure mapping: matching the same feature twice
// yields the same result.
type Matcher struct {
	rules    []CategoryRule
	corridor *Corridor
}

// NewMatcher creates a matcher over an ordered rule set.
func NewMatcher(rules []CategoryRule, corridor *Corridor) *Matcher {
	return &Matcher{rules: rules, corridor: corridor}
}

// Match classifies a raw feature as a POI or a road segment, or rejects
// it. Category rules are evaluated in order and the first match wins;
// features whose geometry misses the corridor are rejected regardless of
// tags.
func (matcher *Matcher) Match(raw RawFeature) (*POIRecord, *RoadSegment) {
	if poi := matcher.matchPOI(raw); poi != nil {
		return poi, nil
	}
	return nil, matcher.matchRoad(raw)
}

func (matcher *Matcher) matchPOI(raw RawFeature) *POIRecord {
	for _, rule := range matcher.rules {
		if !rule.matches(raw.Tags) {
			continue
		}
		// A rule buffer overrides the corridor buffer for its category
		limit := matcher.corridor.BufferMeters()
		if rule.BufferMeters > 0 {
			limit = rule.BufferMeters
		}
		distance := matcher.corridor.DistanceToRoute(raw.Point)
		if distance > limit {
			return nil
		}
		return &POIRecord{
			ID:              raw.ID,
			Category:        rule.Name,
			Name:            raw.Tags.Find("name"),
			Symbol:          rule.Symbol,
			Point:           raw.Point,
			Snapped:         raw.Point,
			DistanceToRoute: distance,
			Tags:            raw.Tags,
		}
	}
	return nil
}

func (matcher *Matcher) matchRoad(raw RawFeature) *RoadSegment {
	if raw.Kind != KindWay || len(raw.Line) < 2 {
		return nil
	}
	highway := raw.Tags.Find("highway")
	if highway == "" {
		return nil
	}
	if _, excluded := excludedHighways[highway]; excluded {
		return nil
	}
	if !matcher.corridor.IntersectsLine(raw.Line) {
		return nil
	}
	return &RoadSegment{
		ID:       raw.ID,
		Name:     raw.Tags.Find("name"),
		Geometry: raw.Line,
		Highway:  highway,
		MaxSpeed: parseMaxspeed(raw.Tags.Find("maxspeed")),
		Lanes:    parseLanes(raw.Tags.Find("lanes")),
		Surface:  raw.Tags.Find("surface"),
		Cycleway: cyclewayValue(raw.Tags),
		Shoulder: hasShoulder(raw.Tags),
		Bicycle:  raw.Tags.Find("bicycle"),
	}
}
