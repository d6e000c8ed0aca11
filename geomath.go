package veloscout

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0
	pi180Rev    = 180.0 / math.Pi
)

// GeoPoint representation of point on Earth
type GeoPoint struct {
	Lat float64
	Lon float64
}

// String returns pretty printed value for GeoPoint
func (gp GeoPoint) String() string {
	return fmt.Sprintf("Lon: %f | Lat: %f", gp.Lon, gp.Lat)
}

// valid reports whether the point lies in geographic range
func (gp GeoPoint) valid() bool {
	return gp.Lat >= -90.0 && gp.Lat <= 90.0 && gp.Lon >= -180.0 && gp.Lon <= 180.0
}

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg  * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// greatCircleDistance returns distance between two geo-points (kilometers)
func greatCircleDistance(p, q GeoPoint) float64 {
	lat1 := degreesToRadians(p.Lat)
	lon1 := degreesToRadians(p.Lon)
	lat2 := degreesToRadians(q.Lat)
	lon2 := degreesToRadians(q.Lon)
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	ans := c * earthRadius
	return ans
}

// getSphericalLength returns length for given line (kilometers)
func getSphericalLength(line []GeoPoint) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += greatCircleDistance(line[i-1], line[i])
	}
	return totalLength
}

// findCentroid returns center point for given line (not middle point)
func findCentroid(line []GeoPoint) GeoPoint {
	totalPoints := len(line)
	if totalPoints == 1 {
		return line[0]
	}
	x, y, z := 0.0, 0.0, 0.0
	for i := 0; i < totalPoints; i++ {
		longitude := degreesToRadians(line[i].Lon)
		latitude := degreesToRadians(line[i].Lat)
		c1 := math.Cos(latitude)
		x += c1 * math.Cos(longitude)
		y += c1 * math.Sin(longitude)
		z += math.Sin(latitude)
	}

	x /= float64(totalPoints)
	y /= float64(totalPoints)
	z /= float64(totalPoints)

	centralLongitude := math.Atan2(y, x)
	centralSquareRoot := math.Sqrt(x*x + y*y)
	centralLatitude := math.Atan2(z, centralSquareRoot)

	return GeoPoint{
		Lon: radiansTodegrees(centralLongitude),
		Lat: radiansTodegrees(centralLatitude),
	}
}

// Check if two segments intersects and returns intersections Point
// p1, p2 - first segment
// p3, p4 - second segment
// Note: Euclidean space
func intersect(p1, p2, p3, p4 orb.Point) (orb.Point, error) {
	// Calculate the coefficients of the linear equations
	a1 := p2[1] - p1[1]
	b1 := p1[0] - p2[0]
	c1 := a1*p1[0] + b1*p1[1]
	a2 := p4[1] - p3[1]
	b2 := p3[0] - p4[0]
	c2 := a2*p3[0] + b2*p3[1]

	// Calculate the determinant
	det := a1*b2 - a2*b1
	if det == 0 {
		return orb.Point{}, fmt.Errorf("The lines are parallel")
	}

	// Calculate the intersection point
	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}, nil
}

func offsetCurve(line orb.LineString, distance float64) orb.LineString {
	// Initialize result list and segment list
	var result orb.LineString
	var segments [][2]orb.Point

	// Iterate over line segments and calculate offset segments
	for i := 1; i < len(line); i++ {
		// Get current and previous points
		p1 := line[i-1]
		p2 := line[i]

		// Calculate the vector between the points
		vec := [2]float64{p2[0] - p1[0], p2[1] - p1[1]}

		// Normalize the vector
		vecLen := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
		vec = [2]float64{vec[0] / vecLen, vec[1] / vecLen}

		// Rotate the vector by 90 degrees
		rotated := [2]float64{-vec[1], vec[0]}

		// Scale the rotated vector by the distance
		offset := [2]float64{rotated[0] * distance, rotated[1] * distance}

		// Calculate the offset points
		op1 := [2]float64{p1[0] + offset[0], p1[1] + offset[1]}
		op2 := [2]float64{p2[0] + offset[0], p2[1] + offset[1]}

		// Add the offset segment to the list of segments
		segments = append(segments, [2]orb.Point{op1, op2})
	}

	result = append(result, segments[0][0])
	// Iterate over the segments and calculate the intersections
	for i := 1; i < len(segments); i++ {
		// Get the current and previous segments
		seg1 := segments[i-1]
		seg2 := segments[i]
		// Calculate the intersection point
		intersection, err := intersect(seg1[0], seg1[1], seg2[0], seg2[1])
		if err != nil {
			continue
		}
		// If there is an intersection, add the intersection and the current segment to the result
		result = append(result, intersection)
	}
	result = append(result, segments[len(segments)-1][1])
	return result
}

// pointSegmentDistance returns distance from point to segment [a, b]
// (assuming points are Euclidean: Lon == X, Lat == Y)
func pointSegmentDistance(p, a, b orb.Point) float64 {
	abX := b[0] - a[0]
	abY := b[1] - a[1]
	apX := p[0] - a[0]
	apY := p[1] - a[1]
	lenSq := abX*abX + abY*abY
	if lenSq == 0 {
		return math.Hypot(apX, apY)
	}
	t := (apX*abX + apY*abY) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closestX := a[0] + t*abX
	closestY := a[1] + t*abY
	return math.Hypot(p[0]-closestX, p[1]-closestY)
}

// ccw orientation test for three points (Euclidean space)
func ccw(a, b, c orb.Point) bool {
	return (c[1]-a[1])*(b[0]-a[0]) > (b[1]-a[1])*(c[0]-a[0])
}

// segmentsCross reports whether segments [a, b] and [c, d] intersect
// (assuming points are Euclidean)
func segmentsCross(a, b, c, d orb.Point) bool {
	return ccw(a, c, d) != ccw(b, c, d) && ccw(a, b, c) != ccw(a, b, d)
}

// segmentSegmentDistance returns minimal distance between segments [a, b]
// and [c, d] (assuming points are Euclidean)
func segmentSegmentDistance(a, b, c, d orb.Point) float64 {
	if segmentsCross(a, b, c, d) {
		return 0.0
	}
	min := pointSegmentDistance(a, c, d)
	if dist := pointSegmentDistance(b, c, d); dist < min {
		min = dist
	}
	if dist := pointSegmentDistance(c, a, b); dist < min {
		min = dist
	}
	if dist := pointSegmentDistance(d, a, b); dist < min {
		min = dist
	}
	return min
}

// ringArea returns area of a closed ring via the shoelace formula
// (assuming points are Euclidean)
func ringArea(ring orb.Ring) float64 {
	area := 0.0
	for i := 1; i < len(ring); i++ {
		area += ring[i-1][0]*ring[i][1] - ring[i][0]*ring[i-1][1]
	}
	return math.Abs(area) / 2.0
}

// routeStage is a consecutive slice of a route produced by
// splitRouteByDistance. Neighbour stages share their boundary point.
type routeStage struct {
	num     int
	startKm float64
	endKm   float64
	points  []GeoPoint
}

// splitRouteByDistance cuts the route into consecutive stages of roughly
// maxStageKm length. Each stage starts at the last point of the previous
// one so that no span of the route is lost at a seam.
func splitRouteByDistance(route []GeoPoint, maxStageKm float64) []routeStage {
	stages := []routeStage{}
	current := []GeoPoint{route[0]}
	currentKm := 0.0
	startKm := 0.0
	num := 1
	for i := 1; i < len(route); i++ {
		current = append(current, route[i])
		currentKm += greatCircleDistance(route[i-1], route[i])
		if currentKm >= maxStageKm && i < len(route)-1 {
			stages = append(stages, routeStage{
				num:     num,
				startKm: startKm,
				endKm:   startKm + currentKm,
				points:  current,
			})
			num++
			startKm += currentKm
			currentKm = 0.0
			current = []GeoPoint{route[i]}
		}
	}
	if len(current) > 1 {
		stages = append(stages, routeStage{
			num:     num,
			startKm: startKm,
			endKm:   startKm + currentKm,
			points:  current,
		})
	}
	return stages
}
