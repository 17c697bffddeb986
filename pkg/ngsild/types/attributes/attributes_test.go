package attributes

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	ngsierrors "github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/contextsource/ngsild-client/pkg/ngsild/geojson"
	"github.com/matryer/is"
)

func TestNewPropertyWithUnitCode(t *testing.T) {
	is := is.New(t)

	p, err := NewProperty(22, UnitCode("GP"))

	is.NoErr(err)
	is.Equal(p.Kind(), KindProperty)
	is.Equal(p.Type(), "Property")
	is.Equal(p.UnitCode(), "GP")

	b, err := json.Marshal(p)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Property","value":22,"unitCode":"GP"}`)
}

func TestPropertyMetadataRendersInCanonicalOrder(t *testing.T) {
	is := is.New(t)

	p, err := NewProperty(100.0,
		DatasetID("Dataset:01"),
		ObservedAt("2022-01-01T10:00:00Z"),
		UnitCode("LTR"),
	)

	is.NoErr(err)

	b, err := json.Marshal(p)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Property","value":100,"unitCode":"LTR","observedAt":"2022-01-01T10:00:00Z","datasetId":"urn:ngsi-ld:Dataset:01"}`)
}

func TestObservedAtMustBeAnInstant(t *testing.T) {
	is := is.New(t)

	_, err := NewProperty(22, ObservedAt("2018-08-07"))

	is.True(errors.Is(err, ngsierrors.ErrDateFormat))
	is.Equal(err.Error(), "observedAt must be a DateTime : 2018-08-07")
}

func TestNewPropertyRejectsUnmappableValues(t *testing.T) {
	is := is.New(t)

	_, err := NewProperty(struct{ X int }{X: 1})
	is.True(errors.Is(err, ngsierrors.ErrUnmatchedType))

	_, err = NewProperty(nil)
	is.True(errors.Is(err, ngsierrors.ErrUnmatchedType))
}

func TestNewPropertyPromotesTemporalValues(t *testing.T) {
	is := is.New(t)

	p, err := NewProperty(time.Date(2018, 8, 7, 12, 0, 0, 0, time.UTC))

	is.NoErr(err)
	is.Equal(p.Kind(), KindTemporalProperty)
	is.Equal(p.Type(), "Property")

	b, err := json.Marshal(p)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Property","value":{"@type":"DateTime","@value":"2018-08-07T12:00:00Z"}}`)
}

func TestEscapedEncodesStringValues(t *testing.T) {
	is := is.New(t)

	p, err := NewProperty("Main Square & Park", Escaped())

	is.NoErr(err)
	is.Equal(p.Value(), "Main+Square+%26+Park")
}

func TestTemporalPropertiesCarryNoMetadata(t *testing.T) {
	is := is.New(t)

	p, err := NewTemporalProperty("2018-08-07T12:00:00Z",
		UnitCode("CEL"),
		ObservedAt("2018-08-07T12:00:00Z"),
		DatasetID("Dataset:01"),
	)

	is.NoErr(err)

	b, err := json.Marshal(p)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Property","value":{"@type":"DateTime","@value":"2018-08-07T12:00:00Z"}}`)
}

func TestNewTemporalPropertyAcceptsDatesAndTimes(t *testing.T) {
	is := is.New(t)

	p, err := NewTemporalProperty("2018-08-07")
	is.NoErr(err)
	is.Equal(p.Value(), TemporalValue{Type: "Date", Value: "2018-08-07"})

	p, err = NewTemporalProperty("12:00:00Z")
	is.NoErr(err)
	is.Equal(p.Value(), TemporalValue{Type: "Time", Value: "12:00:00Z"})

	_, err = NewTemporalProperty("not a date")
	is.True(errors.Is(err, ngsierrors.ErrDateFormat))
}

func TestNewGeoPropertySwapsLatLonAxes(t *testing.T) {
	is := is.New(t)

	g, err := NewGeoProperty(geojson.LatLon{Latitude: 44.0, Longitude: -8.0})

	is.NoErr(err)
	is.Equal(g.Kind(), KindGeoProperty)

	b, err := json.Marshal(g)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"GeoProperty","value":{"type":"Point","coordinates":[-8,44]}}`)
}

func TestNewGeoPropertyAcceptsGeometries(t *testing.T) {
	is := is.New(t)

	g, err := NewGeoProperty(geojson.NewPoint(17.2, 64.4))
	is.NoErr(err)
	is.Equal(g.Value().(geojson.Point).Coordinates, [2]float64{17.2, 64.4})

	_, err = NewGeoProperty("not a geometry")
	is.True(errors.Is(err, ngsierrors.ErrUnmatchedType))
}

func TestNewRelationshipPrefixesTarget(t *testing.T) {
	is := is.New(t)

	r, err := NewRelationship("Camera:C1")

	is.NoErr(err)
	is.Equal(r.Object(), "urn:ngsi-ld:Camera:C1")
	is.True(!r.IsMultiObject())

	b, err := json.Marshal(r)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Relationship","object":"urn:ngsi-ld:Camera:C1"}`)
}

type testTarget struct{ id string }

func (t testTarget) ID() string { return t.id }

func TestNewRelationshipAcceptsIdentifiableTargets(t *testing.T) {
	is := is.New(t)

	r, err := NewRelationship(testTarget{id: "Camera:C1"})

	is.NoErr(err)
	is.Equal(r.Object(), "urn:ngsi-ld:Camera:C1")

	_, err = NewRelationship(42)
	is.True(errors.Is(err, ngsierrors.ErrUnmatchedType))
}

func TestNewRelationshipAcceptsEntitySlices(t *testing.T) {
	is := is.New(t)

	r, err := NewRelationship([]testTarget{{id: "Camera:C1"}, {id: "Camera:C2"}})

	is.NoErr(err)
	is.True(r.IsMultiObject())
	is.Equal(r.Objects(), []string{"urn:ngsi-ld:Camera:C1", "urn:ngsi-ld:Camera:C2"})

	_, err = NewRelationship([]int{1, 2})
	is.True(errors.Is(err, ngsierrors.ErrUnmatchedType))
}

func TestMultiObjectRelationshipDropsTimestampMetadata(t *testing.T) {
	is := is.New(t)

	r, err := NewRelationship([]string{"Camera:C1", "Camera:C2"},
		ObservedAt("2018-08-07T12:00:00Z"),
		DatasetID("Dataset:01"),
	)

	is.NoErr(err)
	is.True(r.IsMultiObject())
	is.Equal(r.Objects(), []string{"urn:ngsi-ld:Camera:C1", "urn:ngsi-ld:Camera:C2"})

	b, err := json.Marshal(r)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Relationship","object":["urn:ngsi-ld:Camera:C1","urn:ngsi-ld:Camera:C2"]}`)
}

func TestAttachNestedAttribute(t *testing.T) {
	is := is.New(t)

	spots, _ := NewProperty(121)
	reliability, _ := NewProperty(0.7)
	providedBy, _ := NewRelationship("Camera:C1")

	spots.Attach("reliability", reliability)
	spots.Attach("providedBy", providedBy)

	nested, ok := spots.Nested("reliability")
	is.True(ok)
	is.Equal(nested.Value(), 0.7)

	b, err := json.Marshal(spots)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"Property","value":121,"reliability":{"type":"Property","value":0.7},"providedBy":{"type":"Relationship","object":"urn:ngsi-ld:Camera:C1"}}`)
}

func TestSimplifiedValue(t *testing.T) {
	is := is.New(t)

	p, _ := NewProperty(22, UnitCode("GP"))
	is.Equal(p.SimplifiedValue(), 22)

	tp, _ := NewTemporalProperty("2018-08-07T12:00:00Z")
	is.Equal(tp.SimplifiedValue(), "2018-08-07T12:00:00Z")

	r, _ := NewRelationship("Camera:C1")
	is.Equal(r.SimplifiedValue(), "urn:ngsi-ld:Camera:C1")

	mr, _ := NewRelationship([]string{"Camera:C1", "Camera:C2"})
	is.Equal(mr.SimplifiedValue(), []string{"urn:ngsi-ld:Camera:C1", "urn:ngsi-ld:Camera:C2"})
}

func TestClassify(t *testing.T) {
	is := is.New(t)

	kind, err := Classify(map[string]any{"type": "Property", "value": 22.5})
	is.NoErr(err)
	is.Equal(kind, KindProperty)

	kind, err = Classify(map[string]any{"type": "Property", "value": map[string]any{"@type": "DateTime", "@value": "2018-08-07T12:00:00Z"}})
	is.NoErr(err)
	is.Equal(kind, KindTemporalProperty)

	kind, err = Classify(map[string]any{"type": "GeoProperty", "value": map[string]any{"type": "Point", "coordinates": []any{-8.0, 44.0}}})
	is.NoErr(err)
	is.Equal(kind, KindGeoProperty)

	kind, err = Classify(map[string]any{"type": "Relationship", "object": "urn:ngsi-ld:Camera:C1"})
	is.NoErr(err)
	is.Equal(kind, KindRelationship)

	kind, err = Classify(map[string]any{"type": "Relationship", "object": []any{"urn:ngsi-ld:Camera:C1", "urn:ngsi-ld:Camera:C2"}})
	is.NoErr(err)
	is.Equal(kind, KindRelationship)
}

func TestClassifyRejectsMalformedAttributes(t *testing.T) {
	is := is.New(t)

	testCases := []struct {
		attr     any
		expected string
	}{
		{"not an object", "attribute must be a JSON object"},
		{map[string]any{"value": 22.5}, "attribute has no type"},
		{map[string]any{"type": "GeoProperty"}, "malformed GeoProperty"},
		{map[string]any{"type": "Relationship", "object": "Camera:C1"}, "malformed Relationship"},
		{map[string]any{"type": "Relationship"}, "malformed Relationship"},
		{map[string]any{"type": "Property"}, "property has no value"},
		{map[string]any{"type": "Property", "value": map[string]any{"@type": "Interval"}}, "malformed temporal property"},
		{map[string]any{"type": "IntangibleProperty", "value": 22.5}, "attribute has unknown type IntangibleProperty"},
	}

	for _, tc := range testCases {
		_, err := Classify(tc.attr)
		is.True(errors.Is(err, ngsierrors.ErrFormat)) // should be a format error
		is.Equal(err.Error(), tc.expected)
	}
}

func TestUnmarshalPreservesMemberOrder(t *testing.T) {
	is := is.New(t)

	doc := `{"type":"Property","value":22.5,"unitCode":"CEL","observedAt":"2018-08-07T12:00:00Z","accuracy":{"type":"Property","value":0.95},"note":"calibrated"}`

	a := &Attribute{}
	is.NoErr(json.Unmarshal([]byte(doc), a))

	is.Equal(a.Kind(), KindProperty)
	is.Equal(a.Value(), 22.5)
	is.Equal(a.UnitCode(), "CEL")
	is.Equal(a.ObservedAt(), "2018-08-07T12:00:00Z")

	nested, ok := a.Nested("accuracy")
	is.True(ok)
	is.Equal(nested.Value(), 0.95)

	b, err := json.Marshal(a)
	is.NoErr(err)
	is.Equal(string(b), doc)
}

func TestUnmarshalRelationshipRoundTrip(t *testing.T) {
	is := is.New(t)

	doc := `{"type":"Relationship","object":"urn:ngsi-ld:Camera:C1","observedAt":"2018-08-07T12:00:00Z","datasetId":"urn:ngsi-ld:Dataset:01"}`

	a := &Attribute{}
	is.NoErr(json.Unmarshal([]byte(doc), a))

	is.Equal(a.Kind(), KindRelationship)
	is.Equal(a.Object(), "urn:ngsi-ld:Camera:C1")
	is.Equal(a.DatasetID(), "urn:ngsi-ld:Dataset:01")

	b, err := json.Marshal(a)
	is.NoErr(err)
	is.Equal(string(b), doc)
}

func TestDecodeKeepsOutOfPlaceMetadata(t *testing.T) {
	is := is.New(t)

	// observedAt on a multi object relationship and unitCode on a
	// GeoProperty have no canonical slot, but still round trip
	docs := []string{
		`{"type":"Relationship","object":["urn:ngsi-ld:Camera:C1","urn:ngsi-ld:Camera:C2"],"observedAt":"2018-08-07T12:00:00Z"}`,
		`{"type":"GeoProperty","value":{"type":"Point","coordinates":[-8,44]},"unitCode":"DEG"}`,
	}

	for _, doc := range docs {
		a := &Attribute{}
		is.NoErr(json.Unmarshal([]byte(doc), a))

		b, err := json.Marshal(a)
		is.NoErr(err)
		is.Equal(string(b), doc)
	}
}

func TestGetAndDelete(t *testing.T) {
	is := is.New(t)

	p, _ := NewProperty(22, UnitCode("GP"), ObservedAt("2018-08-07T12:00:00Z"), UserData("note", "ok"))

	v, ok := p.Get("value")
	is.True(ok)
	is.Equal(v, 22)

	v, ok = p.Get("unitCode")
	is.True(ok)
	is.Equal(v, "GP")

	v, ok = p.Get("note")
	is.True(ok)
	is.Equal(v, "ok")

	_, ok = p.Get("object")
	is.True(!ok)

	is.True(p.Delete("observedAt"))
	_, ok = p.Get("observedAt")
	is.True(!ok)

	is.True(p.Delete("note"))
	is.True(!p.Delete("note"))
}

func TestSetObservedAtValidatesKind(t *testing.T) {
	is := is.New(t)

	p, _ := NewProperty(22)

	is.NoErr(p.SetObservedAt("2018-08-07T12:00:00Z"))
	is.Equal(p.ObservedAt(), "2018-08-07T12:00:00Z")

	err := p.SetObservedAt("12:00:00Z")
	is.True(errors.Is(err, ngsierrors.ErrDateFormat))
}
