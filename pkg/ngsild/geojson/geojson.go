package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
)

//Geometry is implemented by all GeoJSON geometry types that a
//GeoProperty value can hold
type Geometry interface {
	GeometryType() string
	AsPoint() Point
}

//LatLon is a latitude/longitude coordinate pair. NGSI-LD GeoProperty
//values are GeoJSON and therefore longitude first, so converting a
//LatLon to a Point swaps the axis order.
type LatLon struct {
	Latitude  float64
	Longitude float64
}

//Point is a GeoJSON Point geometry, coordinates ordered [lon, lat]
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func (p Point) GeometryType() string {
	return p.Type
}

func (p Point) AsPoint() Point {
	return Point{
		Type:        p.Type,
		Coordinates: [2]float64{p.Coordinates[0], p.Coordinates[1]},
	}
}

func (p Point) Latitude() float64 {
	return p.Coordinates[1]
}

func (p Point) Longitude() float64 {
	return p.Coordinates[0]
}

//NewPoint creates a Point from WGS84 longitude and latitude
func NewPoint(longitude, latitude float64) Point {
	return Point{
		Type:        "Point",
		Coordinates: [2]float64{longitude, latitude},
	}
}

//NewPointFromLatLon creates a Point from a (lat, lon) pair. Note the
//axis swap: the resulting GeoJSON coordinates are [lon, lat].
func NewPointFromLatLon(latitude, longitude float64) Point {
	return NewPoint(longitude, latitude)
}

//LineString is a GeoJSON LineString geometry
type LineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

func (ls LineString) GeometryType() string {
	return ls.Type
}

func (ls LineString) AsPoint() Point {
	return Point{
		Type:        "Point",
		Coordinates: [2]float64{ls.Coordinates[0][0], ls.Coordinates[0][1]},
	}
}

//NewLineString creates a LineString from an array of position arrays
func NewLineString(coordinates [][]float64) LineString {
	return LineString{
		Type:        "LineString",
		Coordinates: coordinates,
	}
}

//MultiPoint is a GeoJSON MultiPoint geometry
type MultiPoint struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

func (mp MultiPoint) GeometryType() string {
	return mp.Type
}

func (mp MultiPoint) AsPoint() Point {
	return Point{
		Type:        "Point",
		Coordinates: [2]float64{mp.Coordinates[0][0], mp.Coordinates[0][1]},
	}
}

//NewMultiPoint creates a MultiPoint from an array of position arrays
func NewMultiPoint(coordinates [][]float64) MultiPoint {
	return MultiPoint{
		Type:        "MultiPoint",
		Coordinates: coordinates,
	}
}

//Polygon is a GeoJSON Polygon geometry
type Polygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

func (p Polygon) GeometryType() string {
	return p.Type
}

func (p Polygon) AsPoint() Point {
	return Point{
		Type:        "Point",
		Coordinates: [2]float64{p.Coordinates[0][0][0], p.Coordinates[0][0][1]},
	}
}

//NewPolygon creates a Polygon from an array of linear ring arrays
func NewPolygon(coordinates [][][]float64) Polygon {
	return Polygon{
		Type:        "Polygon",
		Coordinates: coordinates,
	}
}

//UnmarshalGeometry converts a decoded GeoProperty value into a typed geometry
func UnmarshalGeometry(value map[string]any) (Geometry, error) {
	geoType, ok := value["type"]
	if !ok {
		return nil, errors.NewFormatError("geometries without a type are not supported")
	}

	geoTypeStr, ok := geoType.(string)
	if !ok {
		return nil, errors.NewFormatError("geometry type value is of an unconvertible type")
	}

	untypedCoordinates, ok := value["coordinates"]
	if !ok {
		return nil, errors.NewFormatError("unable to unmarshal a geometry with no coordinates")
	}

	switch geoTypeStr {
	case "Point":
		coordinates, ok := untypedCoordinates.([]any)
		if !ok || len(coordinates) < 2 {
			return nil, errors.NewFormatError("point coordinates array is malformed or has insufficient length")
		}

		lon, okLon := coordinates[0].(float64)
		lat, okLat := coordinates[1].(float64)

		if !okLon || !okLat {
			return nil, errors.NewFormatError("point coordinates not convertible to float64")
		}

		return NewPoint(lon, lat), nil
	case "LineString":
		coords, err := unmarshalPositionArray(untypedCoordinates)
		if err != nil {
			return nil, err
		}
		return NewLineString(coords), nil
	case "MultiPoint":
		coords, err := unmarshalPositionArray(untypedCoordinates)
		if err != nil {
			return nil, err
		}
		return NewMultiPoint(coords), nil
	case "Polygon":
		coordinates, ok := untypedCoordinates.([]any)
		if !ok {
			return nil, errors.NewFormatError("malformed polygon coordinates")
		}

		rings := make([][][]float64, 0, len(coordinates))

		for _, r := range coordinates {
			ring, err := unmarshalPositionArray(r)
			if err != nil {
				return nil, err
			}
			rings = append(rings, ring)
		}

		return NewPolygon(rings), nil
	default:
		return nil, errors.NewFormatError(fmt.Sprintf("unknown geometry type %s not supported", geoTypeStr))
	}
}

//UnmarshalGeometryFromJSON converts a raw GeoProperty value into a typed geometry
func UnmarshalGeometryFromJSON(body []byte) (Geometry, error) {
	value := map[string]any{}
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, errors.NewFormatError("geometry is not a JSON object: " + err.Error())
	}

	return UnmarshalGeometry(value)
}

func unmarshalPositionArray(value any) ([][]float64, error) {
	positions, ok := value.([]any)
	if !ok {
		return nil, errors.NewFormatError("malformed coordinates: expected an array of positions")
	}

	coords := make([][]float64, 0, len(positions))

	for _, p := range positions {
		position, ok := p.([]any)
		if !ok {
			return nil, errors.NewFormatError("malformed coordinates: position is not an array")
		}

		c := make([]float64, 0, len(position))

		for _, ordinate := range position {
			v, ok := ordinate.(float64)
			if !ok {
				return nil, errors.NewFormatError("failed to convert coordinate to float64")
			}

			c = append(c, v)
		}

		coords = append(coords, c)
	}

	return coords, nil
}
