package veloscout

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

const capSegments = 8

// Corridor is a buffered polygon around a route polyline. It is built once
// per extraction run and is read-only input for every downstream component.
// The spatial predicate "within buffer distance of the route" is evaluated
// in a locally scaled Web Mercator plane, which for a rounded-cap buffer is
// the same test as containment in the buffer polygon.
type Corridor struct {
	route        []GeoPoint
	bufferMeters float64

	polygon   orb.Polygon
	bound     orb.Bound
	euclidean orb.LineString // projected route, EPSG:3857
	projBuf   float64        // buffer distance in projected units
	scale     float64        // mercator distortion at the route centroid
	segments  rtree.RTreeG[int]
}

// NewCorridor builds a corridor around the route buffered by bufferMeters
// on both sides with rounded end caps.
func NewCorridor(route []GeoPoint, bufferMeters float64) (*Corridor, error) {
	if len(route) < 2 {
		return nil, &InvalidRouteError{Reason: "route must contain at least 2 points"}
	}
	if bufferMeters <= 0 {
		return nil, &InvalidRouteError{Reason: "buffer distance must be positive"}
	}
	for _, pt := range route {
		if !pt.valid() {
			return nil, &InvalidRouteError{Reason: pt.String() + " is out of geographic range"}
		}
	}

	line := make(orb.LineString, 0, len(route))
	for _, pt := range route {
		projected := pointToEuclidean(orb.Point{pt.Lon, pt.Lat})
		// Collapse repeated points, they break offset vector math
		if len(line) > 0 && projected == line[len(line)-1] {
			continue
		}
		line = append(line, projected)
	}
	if len(line) < 2 {
		return nil, &InvalidRouteError{Reason: "route collapses to a single point"}
	}

	corridor := &Corridor{
		route:        route,
		bufferMeters: bufferMeters,
		euclidean:    line,
		scale:        mercatorScale(findCentroid(route).Lat),
	}
	corridor.projBuf = bufferMeters * corridor.scale
	corridor.polygon = corridor.buildPolygon()
	corridor.bound = corridor.polygon.Bound()
	corridor.indexSegments()
	return corridor, nil
}

// buildPolygon assembles the buffer ring: left offset line, rounded cap at
// the route end, reversed right offset line, rounded cap at the start.
func (corridor *Corridor) buildPolygon() orb.Polygon {
	line := corridor.euclidean
	d := corridor.projBuf

	left := offsetCurve(line, d)
	right := offsetCurve(line, -d)

	ring := orb.Ring{}
	ring = append(ring, left...)
	ring = append(ring, capArc(line[len(line)-1], line[len(line)-2], d)...)
	for i := len(right) - 1; i >= 0; i-- {
		ring = append(ring, right[i])
	}
	ring = append(ring, capArc(line[0], line[1], d)...)
	ring = append(ring, ring[0])

	spherical := make(orb.Ring, len(ring))
	for i, pt := range ring {
		spherical[i] = pointToSpherical(pt)
	}
	return orb.Polygon{spherical}
}

// capArc samples a semicircle of radius d around end, sweeping from the
// left offset side to the right one. prev fixes the sweep orientation.
func capArc(end, prev orb.Point, d float64) []orb.Point {
	dirX := end[0] - prev[0]
	dirY := end[1] - prev[1]
	length := math.Hypot(dirX, dirY)
	startAngle := math.Atan2(dirX, -dirY) // angle of the left offset normal
	if length == 0 {
		return nil
	}
	arc := make([]orb.Point, 0, capSegments+1)
	for i := 0; i <= capSegments; i++ {
		angle := startAngle - math.Pi*float64(i)/float64(capSegments)
		arc = append(arc, orb.Point{
			end[0] + d*math.Cos(angle),
			end[1] + d*math.Sin(angle),
		})
	}
	return arc
}

// indexSegments stores every route segment in an R-tree keyed by its
// geographic bounding box padded by the buffer distance, giving a cheap
// prefilter for the spatial predicate.
func (corridor *Corridor) indexSegments() {
	for i := 1; i < len(corridor.route); i++ {
		p := corridor.route[i-1]
		q := corridor.route[i]
		minLat := math.Min(p.Lat, q.Lat)
		maxLat := math.Max(p.Lat, q.Lat)
		minLon := math.Min(p.Lon, q.Lon)
		maxLon := math.Max(p.Lon, q.Lon)
		padLat := corridor.bufferMeters / 111320.0
		padLon := padLat * mercatorScale(maxLat)
		corridor.segments.Insert(
			[2]float64{minLon - padLon, minLat - padLat},
			[2]float64{maxLon + padLon, maxLat + padLat},
			i,
		)
	}
}

// Route returns the corridor's source route.
func (corridor *Corridor) Route() []GeoPoint {
	return corridor.route
}

// BufferMeters returns buffer distance the corridor was built with.
func (corridor *Corridor) BufferMeters() float64 {
	return corridor.bufferMeters
}

// Polygon returns corridor polygon in geographic coordinates.
func (corridor *Corridor) Polygon() orb.Polygon {
	return corridor.polygon
}

// Bound returns geographic bounding box of the corridor polygon.
func (corridor *Corridor) Bound() orb.Bound {
	return corridor.bound
}

// Area returns corridor area in square meters. It grows monotonically with
// buffer distance and route length.
func (corridor *Corridor) Area() float64 {
	return ringArea(lineToEuclideanRing(corridor.polygon[0])) / (corridor.scale * corridor.scale)
}

func lineToEuclideanRing(ring orb.Ring) orb.Ring {
	projected := make(orb.Ring, len(ring))
	for i, pt := range ring {
		projected[i] = pointToEuclidean(pt)
	}
	return projected
}

// candidateSegments returns indices of route segments whose padded boxes
// intersect the query box.
func (corridor *Corridor) candidateSegments(min, max [2]float64) []int {
	result := make([]int, 0)
	corridor.segments.Search(min, max, func(_, _ [2]float64, idx int) bool {
		result = append(result, idx)
		return true
	})
	return result
}

func (corridor *Corridor) segmentEuclidean(idx int) (orb.Point, orb.Point) {
	p := corridor.route[idx-1]
	q := corridor.route[idx]
	return pointToEuclidean(orb.Point{p.Lon, p.Lat}), pointToEuclidean(orb.Point{q.Lon, q.Lat})
}

// ContainsPoint reports whether a geographic point lies inside the corridor.
func (corridor *Corridor) ContainsPoint(pt orb.Point) bool {
	if !corridor.bound.Contains(pt) {
		return false
	}
	projected := pointToEuclidean(pt)
	for _, idx := range corridor.candidateSegments([2]float64{pt.Lon(), pt.Lat()}, [2]float64{pt.Lon(), pt.Lat()}) {
		a, b := corridor.segmentEuclidean(idx)
		if pointSegmentDistance(projected, a, b) <= corridor.projBuf {
			return true
		}
	}
	return false
}

// IntersectsLine reports whether any part of a geographic line lies inside
// the corridor.
func (corridor *Corridor) IntersectsLine(line orb.LineString) bool {
	if len(line) == 0 {
		return false
	}
	if len(line) == 1 {
		return corridor.ContainsPoint(line[0])
	}
	if !corridor.bound.Intersects(line.Bound()) {
		return false
	}
	for i := 1; i < len(line); i++ {
		p := line[i-1]
		q := line[i]
		min := [2]float64{math.Min(p.Lon(), q.Lon()), math.Min(p.Lat(), q.Lat())}
		max := [2]float64{math.Max(p.Lon(), q.Lon()), math.Max(p.Lat(), q.Lat())}
		projectedP := pointToEuclidean(p)
		projectedQ := pointToEuclidean(q)
		for _, idx := range corridor.candidateSegments(min, max) {
			a, b := corridor.segmentEuclidean(idx)
			if segmentSegmentDistance(projectedP, projectedQ, a, b) <= corridor.projBuf {
				return true
			}
		}
	}
	return false
}

// DistanceToRoute returns distance in meters from a geographic point to the
// nearest route segment.
func (corridor *Corridor) DistanceToRoute(pt orb.Point) float64 {
	projected := pointToEuclidean(pt)
	min := math.Inf(1)
	for i := 1; i < len(corridor.route); i++ {
		a, b := corridor.segmentEuclidean(i)
		if dist := pointSegmentDistance(projected, a, b); dist < min {
			min = dist
		}
	}
	return min / corridor.scale
}

// LengthKm returns route length in kilometers.
func (corridor *Corridor) LengthKm() float64 {
	return getSphericalLength(corridor.route)
}
