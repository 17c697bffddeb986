// Package attributes builds and classifies the four NGSI-LD attribute
// kinds: Property, TemporalProperty, GeoProperty and Relationship.
//
// An Attribute keeps its extra members in insertion order and renders
// them back in that same order, so a document survives a decode and
// re-encode round trip byte for byte.
package attributes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/contextsource/ngsild-client/pkg/ngsild/geojson"
	"github.com/contextsource/ngsild-client/pkg/ngsild/iso8601"
	"github.com/contextsource/ngsild-client/pkg/ngsild/urn"
)

//Kind discriminates the attribute variants
type Kind int

const (
	KindProperty Kind = iota
	KindTemporalProperty
	KindGeoProperty
	KindRelationship
)

func (k Kind) String() string {
	switch k {
	case KindTemporalProperty:
		return "TemporalProperty"
	case KindGeoProperty:
		return "GeoProperty"
	case KindRelationship:
		return "Relationship"
	default:
		return "Property"
	}
}

//AttributeType is the type member the kind puts on the wire. Temporal
//properties share the "Property" type string with plain properties.
func (k Kind) AttributeType() string {
	switch k {
	case KindGeoProperty:
		return "GeoProperty"
	case KindRelationship:
		return "Relationship"
	default:
		return "Property"
	}
}

//TemporalValue is the value member of a temporal property
type TemporalValue struct {
	Type  string `json:"@type"`
	Value string `json:"@value"`
}

type member struct {
	name  string
	value any
}

//Attribute is a single NGSI-LD attribute of any kind
type Attribute struct {
	kind Kind

	value   any
	objects []string
	multi   bool

	unitCode   *string
	observedAt *string
	datasetID  *string

	autoObserved bool

	members []member
}

type attrValue struct {
	unitCode   string
	observedAt any
	datasetID  string
	escape     bool
	userData   []member
}

//DecoratorFunc attaches optional metadata to an attribute under construction
type DecoratorFunc func(*attrValue)

//UnitCode attaches a UN/CEFACT common code describing the unit of the value
func UnitCode(code string) DecoratorFunc {
	return func(av *attrValue) {
		av.unitCode = code
	}
}

//ObservedAt attaches the instant the value was observed at. The value
//may be a time.Time, an iso8601.Value or an encoded string, but it
//must denote an instant. Pass Auto to share one timestamp across all
//attributes of an entity.
func ObservedAt(value any) DecoratorFunc {
	return func(av *attrValue) {
		av.observedAt = value
	}
}

//DatasetID attaches a dataset identifier, prefixed into the NGSI-LD namespace
func DatasetID(id string) DecoratorFunc {
	return func(av *attrValue) {
		av.datasetID = id
	}
}

//UserData attaches an arbitrary extra member to the attribute
func UserData(name string, value any) DecoratorFunc {
	return func(av *attrValue) {
		av.userData = append(av.userData, member{name: name, value: value})
	}
}

//Escaped URL-encodes string values before they are stored
func Escaped() DecoratorFunc {
	return func(av *attrValue) {
		av.escape = true
	}
}

type autoObservedAt struct{}

//Auto makes ObservedAt reuse the first timestamp parsed while building
//the enclosing entity, or the current time if none has been seen yet
var Auto autoObservedAt

func collect(decorators []DecoratorFunc) *attrValue {
	av := &attrValue{}
	for _, decorate := range decorators {
		decorate(av)
	}
	return av
}

//NewProperty creates a Property holding a native value. Values that
//carry temporal information are promoted to a temporal property.
func NewProperty(value any, decorators ...DecoratorFunc) (*Attribute, error) {
	switch value.(type) {
	case iso8601.Value, time.Time:
		return NewTemporalProperty(value, decorators...)
	}

	av := collect(decorators)

	if !isPlainValue(value) {
		return nil, errors.NewUnmatchedTypeError(value)
	}

	if av.escape {
		if s, ok := value.(string); ok {
			value = url.QueryEscape(s)
		}
	}

	a := &Attribute{kind: KindProperty, value: value}

	if err := a.applyMetadata(av, true); err != nil {
		return nil, err
	}

	return a, nil
}

//NewTemporalProperty creates a Property whose value is a tagged
//temporal encoding. Temporal properties carry no metadata of their
//own, so any decorators are ignored.
func NewTemporalProperty(value any, _ ...DecoratorFunc) (*Attribute, error) {
	iso, temporalType, err := iso8601.Parse(value)
	if err != nil {
		return nil, err
	}

	return &Attribute{
		kind:  KindTemporalProperty,
		value: TemporalValue{Type: string(temporalType), Value: iso},
	}, nil
}

//NewGeoProperty creates a GeoProperty from a geometry or a lat/lon
//pair. A geojson.LatLon is converted to a Point with the coordinates
//in GeoJSON axis order, longitude first.
func NewGeoProperty(value any, decorators ...DecoratorFunc) (*Attribute, error) {
	av := collect(decorators)

	var geometry geojson.Geometry

	switch v := value.(type) {
	case geojson.LatLon:
		geometry = geojson.NewPointFromLatLon(v.Latitude, v.Longitude)
	case geojson.Geometry:
		geometry = v
	default:
		return nil, errors.NewUnmatchedTypeError(value)
	}

	a := &Attribute{kind: KindGeoProperty, value: geometry}

	if err := a.applyMetadata(av, false); err != nil {
		return nil, err
	}

	return a, nil
}

//NewRelationship creates a Relationship targeting one or more
//entities. String targets are prefixed into the NGSI-LD namespace.
//Multi object relationships carry no observedAt or datasetId, so
//those decorators are ignored when a slice is passed.
func NewRelationship(object any, decorators ...DecoratorFunc) (*Attribute, error) {
	av := collect(decorators)

	a := &Attribute{kind: KindRelationship}

	switch v := object.(type) {
	case string:
		a.objects = []string{urn.Prefix(v)}
	case []string:
		a.multi = true
		targets := make([]string, 0, len(v))
		for _, o := range v {
			targets = append(targets, urn.Prefix(o))
		}
		a.objects = targets
	case interface{ ID() string }:
		a.objects = []string{urn.Prefix(v.ID())}
	default:
		rv := reflect.ValueOf(object)
		if rv.Kind() != reflect.Slice {
			return nil, errors.NewUnmatchedTypeError(object)
		}

		// slices of identifiable entities, or of anything else that
		// can serve as a target
		a.multi = true
		targets := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			switch o := rv.Index(i).Interface().(type) {
			case string:
				targets = append(targets, urn.Prefix(o))
			case interface{ ID() string }:
				targets = append(targets, urn.Prefix(o.ID()))
			default:
				return nil, errors.NewUnmatchedTypeError(object)
			}
		}
		a.objects = targets
	}

	if a.multi {
		a.members = append(a.members, av.userData...)
		return a, nil
	}

	return a, a.applyMetadata(av, false)
}

func (a *Attribute) applyMetadata(av *attrValue, withUnitCode bool) error {
	if withUnitCode && av.unitCode != "" {
		code := av.unitCode
		a.unitCode = &code
	}

	if av.observedAt != nil {
		if _, isAuto := av.observedAt.(autoObservedAt); isAuto {
			a.autoObserved = true
		} else {
			iso, temporalType, err := iso8601.Parse(av.observedAt)
			if err != nil {
				return err
			}
			if temporalType != iso8601.TemporalTypeDateTime {
				return errors.NewDateFormatError("observedAt must be a DateTime : " + iso)
			}
			a.observedAt = &iso
		}
	}

	if av.datasetID != "" {
		id := urn.Prefix(av.datasetID)
		a.datasetID = &id
	}

	a.members = append(a.members, av.userData...)

	return nil
}

func isPlainValue(value any) bool {
	switch value.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}

	return false
}

func (a *Attribute) Kind() Kind {
	return a.kind
}

//Type returns the type member this attribute puts on the wire
func (a *Attribute) Type() string {
	return a.kind.AttributeType()
}

func (a *Attribute) Value() any {
	return a.value
}

//Object returns the target of a single object relationship
func (a *Attribute) Object() string {
	if len(a.objects) > 0 {
		return a.objects[0]
	}
	return ""
}

//Objects returns all targets of a relationship
func (a *Attribute) Objects() []string {
	return a.objects
}

//IsMultiObject reports whether the relationship was built from a slice
//of targets and therefore renders its object member as a list
func (a *Attribute) IsMultiObject() bool {
	return a.multi
}

func (a *Attribute) UnitCode() string {
	if a.unitCode != nil {
		return *a.unitCode
	}
	return ""
}

func (a *Attribute) ObservedAt() string {
	if a.observedAt != nil {
		return *a.observedAt
	}
	return ""
}

func (a *Attribute) DatasetID() string {
	if a.datasetID != nil {
		return *a.datasetID
	}
	return ""
}

func (a *Attribute) SetValue(value any) {
	a.value = value
}

func (a *Attribute) SetUnitCode(code string) {
	a.unitCode = &code
}

//SetObservedAt replaces the observation timestamp, which must denote an instant
func (a *Attribute) SetObservedAt(value any) error {
	iso, temporalType, err := iso8601.Parse(value)
	if err != nil {
		return err
	}
	if temporalType != iso8601.TemporalTypeDateTime {
		return errors.NewDateFormatError("observedAt must be a DateTime : " + iso)
	}

	a.observedAt = &iso
	a.autoObserved = false

	return nil
}

func (a *Attribute) SetDatasetID(id string) {
	prefixed := urn.Prefix(id)
	a.datasetID = &prefixed
}

func (a *Attribute) SetObject(object string) {
	a.objects = []string{urn.Prefix(object)}
	a.multi = false
}

//HasAutoObservedAt reports whether the observation timestamp is still
//waiting to be resolved against the entity wide timestamp cache
func (a *Attribute) HasAutoObservedAt() bool {
	return a.autoObserved
}

//ResolveObservedAt fills in an auto observation timestamp with an
//already validated encoded instant
func (a *Attribute) ResolveObservedAt(iso string) {
	a.observedAt = &iso
	a.autoObserved = false
}

//Attach adds a nested attribute as an extra member
func (a *Attribute) Attach(name string, child *Attribute) {
	a.setMember(name, child)
}

//Nested looks up an extra member holding a nested attribute
func (a *Attribute) Nested(name string) (*Attribute, bool) {
	for _, m := range a.members {
		if m.name == name {
			child, ok := m.value.(*Attribute)
			return child, ok
		}
	}
	return nil, false
}

//Member looks up an extra member by name
func (a *Attribute) Member(name string) (any, bool) {
	for _, m := range a.members {
		if m.name == name {
			return m.value, true
		}
	}
	return nil, false
}

//ForEachMember calls back for every extra member in insertion order
func (a *Attribute) ForEachMember(callback func(name string, value any)) {
	for _, m := range a.members {
		callback(m.name, m.value)
	}
}

func (a *Attribute) setMember(name string, value any) {
	for i, m := range a.members {
		if m.name == name {
			a.members[i].value = value
			return
		}
	}
	a.members = append(a.members, member{name: name, value: value})
}

//SetMember adds or replaces an extra member
func (a *Attribute) SetMember(name string, value any) {
	a.setMember(name, value)
}

//RemoveMember removes an extra member and reports whether it existed
func (a *Attribute) RemoveMember(name string) bool {
	for i, m := range a.members {
		if m.name == name {
			a.members = append(a.members[:i], a.members[i+1:]...)
			return true
		}
	}
	return false
}

//Get looks up a member by name, covering the well known metadata
//members as well as any extra members. Nested attributes are returned
//as *Attribute values.
func (a *Attribute) Get(name string) (any, bool) {
	switch name {
	case "type":
		return a.Type(), true
	case "value":
		if a.kind != KindRelationship {
			return a.value, true
		}
		return nil, false
	case "object":
		if a.kind == KindRelationship {
			if a.multi {
				return a.objects, true
			}
			return a.Object(), true
		}
		return nil, false
	case "unitCode":
		if a.unitCode != nil {
			return *a.unitCode, true
		}
		return nil, false
	case "observedAt":
		if a.observedAt != nil {
			return *a.observedAt, true
		}
		return nil, false
	case "datasetId":
		if a.datasetID != nil {
			return *a.datasetID, true
		}
		return nil, false
	}

	return a.Member(name)
}

//Delete removes a member by name and reports whether it existed
func (a *Attribute) Delete(name string) bool {
	switch name {
	case "unitCode":
		existed := a.unitCode != nil
		a.unitCode = nil
		return existed
	case "observedAt":
		existed := a.observedAt != nil
		a.observedAt = nil
		a.autoObserved = false
		return existed
	case "datasetId":
		existed := a.datasetID != nil
		a.datasetID = nil
		return existed
	}

	return a.RemoveMember(name)
}

//SimplifiedValue returns the value of the attribute in key values
//form: the native value, the encoded temporal string, the geometry,
//or the relationship target(s)
func (a *Attribute) SimplifiedValue() any {
	switch a.kind {
	case KindTemporalProperty:
		return a.value.(TemporalValue).Value
	case KindRelationship:
		if a.multi {
			return a.objects
		}
		return a.Object()
	default:
		return a.value
	}
}

//Classify determines the kind of a decoded attribute record without
//rebuilding it. It mirrors the validation a context broker performs.
func Classify(attr any) (Kind, error) {
	body, ok := attr.(map[string]any)
	if !ok {
		return 0, errors.NewFormatError("attribute must be a JSON object")
	}

	attrType, ok := body["type"].(string)
	if !ok {
		return 0, errors.NewFormatError("attribute has no type")
	}

	switch attrType {
	case "GeoProperty":
		if value, ok := body["value"]; ok && value != nil {
			return KindGeoProperty, nil
		}
		return 0, errors.NewFormatError("malformed GeoProperty")
	case "Relationship":
		switch object := body["object"].(type) {
		case string:
			if urn.IsPrefixed(object) {
				return KindRelationship, nil
			}
		case []any:
			for _, o := range object {
				target, ok := o.(string)
				if !ok || !urn.IsPrefixed(target) {
					return 0, errors.NewFormatError("malformed Relationship")
				}
			}
			return KindRelationship, nil
		}
		return 0, errors.NewFormatError("malformed Relationship")
	case "Property":
		value, ok := body["value"]
		if !ok || value == nil {
			return 0, errors.NewFormatError("property has no value")
		}
		if inner, ok := value.(map[string]any); ok {
			switch inner["@type"] {
			case "DateTime", "Date", "Time":
				return KindTemporalProperty, nil
			}
			return 0, errors.NewFormatError("malformed temporal property")
		}
		return KindProperty, nil
	default:
		return 0, errors.NewFormatError("attribute has unknown type " + attrType)
	}
}

//UnmarshalA rebuilds a typed attribute from a decoded record. Member
//order within the record is not recoverable from a map, so metadata
//is rendered back in canonical order.
func UnmarshalA(body map[string]any) (*Attribute, error) {
	kind, err := Classify(body)
	if err != nil {
		return nil, err
	}

	a := &Attribute{kind: kind}

	switch kind {
	case KindTemporalProperty:
		inner := body["value"].(map[string]any)
		innerValue, _ := inner["@value"].(string)
		innerType, _ := inner["@type"].(string)
		a.value = TemporalValue{Type: innerType, Value: innerValue}
	case KindGeoProperty:
		valueMap, ok := body["value"].(map[string]any)
		if !ok {
			return nil, errors.NewFormatError("malformed GeoProperty")
		}
		geometry, err := geojson.UnmarshalGeometry(valueMap)
		if err != nil {
			return nil, err
		}
		a.value = geometry
	case KindRelationship:
		switch object := body["object"].(type) {
		case string:
			a.objects = []string{object}
		case []any:
			a.multi = true
			for _, o := range object {
				a.objects = append(a.objects, o.(string))
			}
		}
	default:
		a.value = body["value"]
	}

	if value, ok := body["unitCode"]; ok {
		if unitCode, ok := value.(string); ok && kind == KindProperty {
			a.unitCode = &unitCode
		} else {
			a.members = append(a.members, member{name: "unitCode", value: value})
		}
	}
	if value, ok := body["observedAt"]; ok {
		if observedAt, ok := value.(string); ok && kind != KindTemporalProperty && !a.multi {
			a.observedAt = &observedAt
		} else {
			a.members = append(a.members, member{name: "observedAt", value: value})
		}
	}
	if value, ok := body["datasetId"]; ok {
		if datasetID, ok := value.(string); ok && kind != KindTemporalProperty && !a.multi {
			a.datasetID = &datasetID
		} else {
			a.members = append(a.members, member{name: "datasetId", value: value})
		}
	}

	for name, value := range body {
		switch name {
		case "type", "value", "object", "unitCode", "observedAt", "datasetId":
			continue
		}

		if child, ok := value.(map[string]any); ok {
			if _, err := Classify(child); err == nil {
				nested, err := UnmarshalA(child)
				if err != nil {
					return nil, err
				}
				a.members = append(a.members, member{name: name, value: nested})
				continue
			}
		}

		a.members = append(a.members, member{name: name, value: value})
	}

	return a, nil
}

//MarshalJSON renders the attribute with its members in canonical
//order: type, value or object, unitCode, observedAt, datasetId, then
//any extra members in insertion order
func (a Attribute) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}

	buf.WriteString("{\"type\":\"")
	buf.WriteString(a.Type())
	buf.WriteString("\"")

	if a.kind == KindRelationship {
		buf.WriteString(",\"object\":")
		var encoded []byte
		var err error
		if a.multi {
			encoded, err = json.Marshal(a.objects)
		} else {
			encoded, err = json.Marshal(a.Object())
		}
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	} else {
		encoded, err := json.Marshal(a.value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attribute value: %w", err)
		}
		buf.WriteString(",\"value\":")
		buf.Write(encoded)
	}

	if a.unitCode != nil {
		buf.WriteString(",\"unitCode\":")
		encoded, _ := json.Marshal(*a.unitCode)
		buf.Write(encoded)
	}

	if a.observedAt != nil {
		buf.WriteString(",\"observedAt\":")
		encoded, _ := json.Marshal(*a.observedAt)
		buf.Write(encoded)
	}

	if a.datasetID != nil {
		buf.WriteString(",\"datasetId\":")
		encoded, _ := json.Marshal(*a.datasetID)
		buf.Write(encoded)
	}

	for _, m := range a.members {
		name, _ := json.Marshal(m.name)
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attribute member %s: %w", m.name, err)
		}
		buf.WriteString(",")
		buf.Write(name)
		buf.WriteString(":")
		buf.Write(value)
	}

	buf.WriteString("}")

	return buf.Bytes(), nil
}

//UnmarshalJSON decodes an attribute record, preserving the order of
//any extra members
func (a *Attribute) UnmarshalJSON(data []byte) error {
	names, raws, err := DecodeOrderedObject(data)
	if err != nil {
		return errors.NewFormatError("attribute must be a JSON object: " + err.Error())
	}

	body := map[string]any{}
	for i, name := range names {
		var value any
		if err := json.Unmarshal(raws[i], &value); err != nil {
			return err
		}
		body[name] = value
	}

	kind, err := Classify(body)
	if err != nil {
		return err
	}

	decoded := &Attribute{kind: kind}

	switch kind {
	case KindTemporalProperty:
		inner := body["value"].(map[string]any)
		innerValue, _ := inner["@value"].(string)
		innerType, _ := inner["@type"].(string)
		decoded.value = TemporalValue{Type: innerType, Value: innerValue}
	case KindGeoProperty:
		valueMap, ok := body["value"].(map[string]any)
		if !ok {
			return errors.NewFormatError("malformed GeoProperty")
		}
		geometry, err := geojson.UnmarshalGeometry(valueMap)
		if err != nil {
			return err
		}
		decoded.value = geometry
	case KindRelationship:
		switch object := body["object"].(type) {
		case string:
			decoded.objects = []string{object}
		case []any:
			decoded.multi = true
			for _, o := range object {
				decoded.objects = append(decoded.objects, o.(string))
			}
		}
	default:
		decoded.value = body["value"]
	}

	for i, name := range names {
		switch name {
		case "type", "value", "object":
			continue
		case "unitCode":
			if unitCode, ok := body[name].(string); ok && kind == KindProperty {
				decoded.unitCode = &unitCode
			} else {
				// out of place on this kind, kept as an opaque member
				decoded.members = append(decoded.members, member{name: name, value: body[name]})
			}
			continue
		case "observedAt":
			if observedAt, ok := body[name].(string); ok && kind != KindTemporalProperty && !decoded.multi {
				decoded.observedAt = &observedAt
			} else {
				decoded.members = append(decoded.members, member{name: name, value: body[name]})
			}
			continue
		case "datasetId":
			if datasetID, ok := body[name].(string); ok && kind != KindTemporalProperty && !decoded.multi {
				decoded.datasetID = &datasetID
			} else {
				decoded.members = append(decoded.members, member{name: name, value: body[name]})
			}
			continue
		}

		if child, ok := body[name].(map[string]any); ok {
			if _, err := Classify(child); err == nil {
				nested := &Attribute{}
				if err := nested.UnmarshalJSON(raws[i]); err != nil {
					return err
				}
				decoded.members = append(decoded.members, member{name: name, value: nested})
				continue
			}
		}

		decoded.members = append(decoded.members, member{name: name, value: body[name]})
	}

	*a = *decoded

	return nil
}

//DecodeOrderedObject reads a JSON object and returns its member names
//and raw values in document order, which encoding/json maps discard
func DecodeOrderedObject(data []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected an object, got %v", tok)
	}

	names := []string{}
	raws := []json.RawMessage{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}

		name, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected a member name, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}

		names = append(names, name)
		raws = append(raws, raw)
	}

	return names, raws, nil
}
