package veloscout

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthR = 20037508.34
)

func epsg3857To4326(x, y float64) (float64, float64) {
	lon := x * 180 / earthR
	lat := math.Atan(math.Exp(y*math.Pi/earthR))*360/math.Pi - 90
	return lon, lat
}

func epsg4326To3857(lon, lat float64) (float64, float64) {
	x := lon * earthR / 180
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * earthR / 180
	return x, y
}

func pointToEuclidean(pt orb.Point) orb.Point {
	euclideanX, euclideanY := epsg4326To3857(pt.Lon(), pt.Lat())
	return orb.Point{euclideanX, euclideanY}
}

func pointToSpherical(pt orb.Point) orb.Point {
	lon, lat := epsg3857To4326(pt.X(), pt.Y())
	return orb.Point{lon, lat}
}

// mercatorScale returns the Web Mercator length distortion at given
// latitude. One meter on the ground spans scale projected meters.
func mercatorScale(lat float64) float64 {
	return 1.0 / math.Cos(degreesToRadians(lat))
}
