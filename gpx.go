package veloscout

import (
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
)

type gpxPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type gpxDocument struct {
	Tracks []struct {
		Segments []struct {
			Points []gpxPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
	Routes []struct {
		Points []gpxPoint `xml:"rtept"`
	} `xml:"rte"`
	Waypoints []gpxPoint `xml:"wpt"`
}

// LoadGPXRoute reads the ordered route points from a GPX file. Track
// points are preferred; route points and then bare waypoints are the
// fallbacks, matching how recorded and planned files differ in practice.
func LoadGPXRoute(path string) ([]GeoPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read GPX file")
	}
	var doc gpxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "Can't parse GPX file")
	}

	points := []GeoPoint{}
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, pt := range segment.Points {
				points = append(points, GeoPoint{Lat: pt.Lat, Lon: pt.Lon})
			}
		}
	}
	if len(points) == 0 {
		for _, route := range doc.Routes {
			for _, pt := range route.Points {
				points = append(points, GeoPoint{Lat: pt.Lat, Lon: pt.Lon})
			}
		}
	}
	if len(points) == 0 {
		for _, pt := range doc.Waypoints {
			points = append(points, GeoPoint{Lat: pt.Lat, Lon: pt.Lon})
		}
	}
	if len(points) == 0 {
		return nil, &InvalidRouteError{Reason: "no points found in GPX file " + path}
	}
	return points, nil
}
