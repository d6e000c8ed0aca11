package veloscout

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// ExportPOIsCSV writes the POI collection as CSV with the column layout
// downstream spreadsheets expect.
func ExportPOIsCSV(w io.Writer, pois []POIRecord) error {
	writer := csv.NewWriter(w)
	header := []string{"category", "name", "lat", "lon", "snapped_lat", "snapped_lon", "amenity", "shop", "tourism", "distance_to_route"}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "Can't write CSV header")
	}
	for _, poi := range pois {
		record := []string{
			poi.Category,
			poi.Name,
			fmt.Sprintf("%f", poi.Point.Lat()),
			fmt.Sprintf("%f", poi.Point.Lon()),
			fmt.Sprintf("%f", poi.Snapped.Lat()),
			fmt.Sprintf("%f", poi.Snapped.Lon()),
			poi.Tags.Find("amenity"),
			poi.Tags.Find("shop"),
			poi.Tags.Find("tourism"),
			fmt.Sprintf("%d", int(poi.DistanceToRoute)),
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "Can't write CSV record")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush CSV")
}

type gpxWaypoint struct {
	XMLName xml.Name `xml:"wpt"`
	Lat     float64  `xml:"lat,attr"`
	Lon     float64  `xml:"lon,attr"`
	Name    string   `xml:"name,omitempty"`
	Desc    string   `xml:"desc,omitempty"`
	Symbol  string   `xml:"sym,omitempty"`
}

type gpxExport struct {
	XMLName   xml.Name      `xml:"gpx"`
	Version   string        `xml:"version,attr"`
	Creator   string        `xml:"creator,attr"`
	Namespace string        `xml:"xmlns,attr"`
	Waypoints []gpxWaypoint `xml:"wpt"`
}

// ExportPOIsGPX writes the POI collection as GPX waypoints with device
// symbols, for loading onto bike computers.
func ExportPOIsGPX(w io.Writer, pois []POIRecord) error {
	doc := gpxExport{
		Version:   "1.1",
		Creator:   "veloscout",
		Namespace: "http://www.topografix.com/GPX/1/1",
	}
	for _, poi := range pois {
		name := poi.Name
		if name == "" {
			name = poi.Category
		}
		doc.Waypoints = append(doc.Waypoints, gpxWaypoint{
			Lat:    poi.Snapped.Lat(),
			Lon:    poi.Snapped.Lon(),
			Name:   name,
			Desc:   poi.Category,
			Symbol: poi.Symbol,
		})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "Can't write GPX header")
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrap(err, "Can't encode GPX")
	}
	return nil
}

// ExportGeoJSON writes the full result as a GeoJSON feature collection:
// POIs as points, road segments as linestrings carrying their risk
// breakdown for visualization.
func ExportGeoJSON(w io.Writer, result *ExtractionResult) error {
	fc := geojson.NewFeatureCollection()
	for _, poi := range result.POIs {
		feature := geojson.NewPointFeature([]float64{poi.Point.Lon(), poi.Point.Lat()})
		feature.SetProperty("category", poi.Category)
		feature.SetProperty("name", poi.Name)
		feature.SetProperty("symbol", poi.Symbol)
		feature.SetProperty("snapped_lon", poi.Snapped.Lon())
		feature.SetProperty("snapped_lat", poi.Snapped.Lat())
		feature.SetProperty("distance_to_route", int(poi.DistanceToRoute))
		for _, key := range []string{"amenity", "shop", "tourism"} {
			if value := poi.Tags.Find(key); value != "" {
				feature.SetProperty(key, value)
			}
		}
		fc.AddFeature(feature)
	}
	for i := range result.Roads {
		segment := &result.Roads[i]
		coordinates := make([][]float64, len(segment.Geometry))
		for j, pt := range segment.Geometry {
			coordinates[j] = []float64{pt.Lon(), pt.Lat()}
		}
		feature := geojson.NewLineStringFeature(coordinates)
		feature.SetProperty("osm_id", segment.ID)
		feature.SetProperty("name", segment.Name)
		feature.SetProperty("highway_type", segment.Highway)
		feature.SetProperty("maxspeed", segment.MaxSpeed)
		feature.SetProperty("lanes", segment.Lanes)
		feature.SetProperty("risk_score", segment.Risk.Score)
		feature.SetProperty("risk_level", string(segment.Risk.Level))
		feature.SetProperty("risk_factors", factorNames(segment.Risk.Factors))
		feature.SetProperty("color", segment.Risk.Level.Color())
		feature.SetProperty("length_km", segment.LengthKm())
		fc.AddFeature(feature)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't encode GeoJSON")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "Can't write GeoJSON")
	}
	return nil
}

// ImportGeoJSONPOIs reads the point features of a previously exported
// GeoJSON result back into POI records, so results can be re-exported
// in another format without re-running the extraction.
func ImportGeoJSONPOIs(r io.Reader) ([]POIRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read GeoJSON")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse GeoJSON")
	}
	pois := []POIRecord{}
	for _, feature := range fc.Features {
		if feature.Geometry == nil || !feature.Geometry.IsPoint() || len(feature.Geometry.Point) < 2 {
			continue
		}
		point := orb.Point{feature.Geometry.Point[0], feature.Geometry.Point[1]}
		poi := POIRecord{Point: point, Snapped: point}
		if category, ok := feature.Properties["category"].(string); ok {
			poi.Category = category
		} else {
			// Road features carry no category
			continue
		}
		if name, ok := feature.Properties["name"].(string); ok {
			poi.Name = name
		}
		if symbol, ok := feature.Properties["symbol"].(string); ok {
			poi.Symbol = symbol
		}
		lon, lonOk := feature.Properties["snapped_lon"].(float64)
		lat, latOk := feature.Properties["snapped_lat"].(float64)
		if lonOk && latOk {
			poi.Snapped = orb.Point{lon, lat}
		}
		if distance, ok := feature.Properties["distance_to_route"].(float64); ok {
			poi.DistanceToRoute = distance
		}
		tags := osm.Tags{}
		for _, key := range []string{"amenity", "shop", "tourism"} {
			if value, ok := feature.Properties[key].(string); ok {
				tags = append(tags, osm.Tag{Key: key, Value: value})
			}
		}
		poi.Tags = tags
		pois = append(pois, poi)
	}
	return pois, nil
}

func factorNames(factors []RiskFactor) string {
	names := make([]string, len(factors))
	for i, factor := range factors {
		names[i] = factor.Name
	}
	return strings.Join(names, ",")
}
