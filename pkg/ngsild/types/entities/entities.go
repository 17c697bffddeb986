// Package entities implements the NGSI-LD entity document: an ordered
// attribute container with a fluent builder API for constructing
// normalized entities and a key values rendering for consuming them.
package entities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/contextsource/ngsild-client/pkg/ngsild/geojson"
	"github.com/contextsource/ngsild-client/pkg/ngsild/iso8601"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types/attributes"
	"github.com/contextsource/ngsild-client/pkg/ngsild/urn"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//DefaultContextURL is the NGSI-LD core context, used whenever the
//creator of an entity does not decorate it with one
const DefaultContextURL string = "https://uri.etsi.org/ngsi-ld/v1/ngsi-ld-core-context.jsonld"

//LinkHeader points requests without a body to the default context
var LinkHeader string = fmt.Sprintf(
	"<%s>; rel=\"http://www.w3.org/ns/json-ld#context\"; type=\"application/ld+json\"",
	DefaultContextURL,
)

//DefaultNGSITenant is the implicit tenant used when none is specified
const DefaultNGSITenant string = "default"

//Config holds the construction time settings of an entity document
type Config struct {
	//AutoPrefix controls whether short entity identifiers are
	//expanded to urn:ngsi-ld:<type>:<id> at construction
	AutoPrefix bool
}

func DefaultConfig() Config {
	return Config{AutoPrefix: true}
}

type EntityDecoratorFunc func(e *EntityImpl)

//namedAttribute is one root level member of the entity: a typed
//attribute or, for members that are not attribute records, the raw
//decoded value
type namedAttribute struct {
	name string
	attr *attributes.Attribute
	raw  any
}

//EntityImpl holds one NGSI-LD entity with its attributes in insertion order
type EntityImpl struct {
	entityID   string
	entityType string

	//context holds the JSON-LD context as an ordered sequence of
	//context URIs (string) and inline context objects (map)
	context []any

	attrs   []namedAttribute
	anchors []*attributes.Attribute
	last    *attributes.Attribute

	timestamps iso8601.AutoTimestamp

	cfg Config
}

//New creates an entity with the default configuration. Unprefixed
//identifiers are expanded using the entity type, so New("Room1",
//"Room") and New("urn:ngsi-ld:Room:Room1", "Room") are equivalent.
func New(entityID, entityType string, decorators ...EntityDecoratorFunc) (*EntityImpl, error) {
	return NewWithConfig(DefaultConfig(), entityID, entityType, decorators...)
}

//NewWithConfig creates an entity with explicit settings
func NewWithConfig(cfg Config, entityID, entityType string, decorators ...EntityDecoratorFunc) (*EntityImpl, error) {
	if entityID == "" {
		return nil, errors.NewMissingIDError("an entity must have an id")
	}

	if entityType == "" {
		return nil, errors.NewMissingTypeError("an entity must have a type")
	}

	if cfg.AutoPrefix {
		entityID = fullyQualifiedID(entityType, entityID)
	}

	e := &EntityImpl{
		entityID:   entityID,
		entityType: entityType,
		cfg:        cfg,
	}

	for _, decorator := range decorators {
		decorator(e)
	}

	// Set the default context if it wasnt decorated by the creator
	if e.context == nil {
		e.context = []any{DefaultContextURL}
	}

	return e, nil
}

//NewFromID creates an entity from a fully qualified identifier alone,
//inferring the entity type from its namespace specific string
func NewFromID(entityID string, decorators ...EntityDecoratorFunc) (*EntityImpl, error) {
	entityType := urn.InferType(entityID)
	if entityType == "" {
		return nil, errors.NewMissingTypeError("unable to infer a type from " + entityID)
	}

	return New(entityID, entityType, decorators...)
}

//fullyQualifiedID expands a short identifier into the NGSI-LD
//namespace, inserting the type segment if the identifier does not
//already start with it
func fullyQualifiedID(entityType, entityID string) string {
	if urn.IsPrefixed(entityID) {
		return entityID
	}

	if strings.HasPrefix(entityID, entityType+":") {
		return urn.Prefix(entityID)
	}

	return urn.Prefix(entityType + ":" + entityID)
}

//NewFragment creates an entity fragment, a partial document without
//an id and type, used for attribute update requests
func NewFragment(decorators ...EntityDecoratorFunc) (types.EntityFragment, error) {
	e := &EntityImpl{}

	for _, decorator := range decorators {
		decorator(e)
	}

	if e.context == nil {
		e.context = []any{DefaultContextURL}
	}

	return e, nil
}

func NewFragmentFromJSON(body []byte) (types.EntityFragment, error) {
	e := &EntityImpl{}
	if err := json.Unmarshal(body, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity fragment: %w", err)
	}

	return e, nil
}

//NewFromJSON decodes a complete entity document. The id, type and
//@context members are all required.
func NewFromJSON(body []byte) (*EntityImpl, error) {
	e := &EntityImpl{}
	if err := json.Unmarshal(body, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	if e.entityID == "" {
		return nil, errors.NewMissingIDError("the entity has no id")
	}

	if e.entityType == "" {
		return nil, errors.NewMissingTypeError("the entity has no type")
	}

	if e.context == nil {
		return nil, errors.NewMissingContextError("the entity has no @context")
	}

	return e, nil
}

//NewFromMap rebuilds an entity from an already decoded document.
//Member order is not recoverable from a map, so attributes end up in
//lexical order.
func NewFromMap(body map[string]any) (*EntityImpl, error) {
	if _, ok := body["id"]; !ok {
		return nil, errors.NewMissingIDError("the entity has no id")
	}

	if _, ok := body["type"]; !ok {
		return nil, errors.NewMissingTypeError("the entity has no type")
	}

	if _, ok := body["@context"]; !ok {
		return nil, errors.NewMissingContextError("the entity has no @context")
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return NewFromJSON(data)
}

func NewFromSlice(body []byte) ([]types.Entity, error) {
	impls := []EntityImpl{}
	err := json.Unmarshal(body, &impls)
	if err != nil {
		return nil, err
	}

	arr := make([]types.Entity, 0, len(impls))

	for i := range impls {
		arr = append(arr, &impls[i])
	}

	return arr, nil
}

//Load reads an entity document from a file
func Load(path string) (*EntityImpl, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity from %s: %w", path, err)
	}

	return NewFromJSON(body)
}

//Fetch retrieves an entity document over HTTP
func Fetch(ctx context.Context, url string) (*EntityImpl, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entity from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch entity from %s: unexpected response code %d (%w)", url, resp.StatusCode, errors.ErrBadResponse)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return NewFromJSON(body)
}

func (e EntityImpl) ID() string {
	return e.entityID
}

func (e EntityImpl) Type() string {
	return e.entityType
}

func (e EntityImpl) Context() []any {
	return e.context
}

//Attribute looks up a root level attribute by name
func (e *EntityImpl) Attribute(name string) (*attributes.Attribute, bool) {
	for _, na := range e.attrs {
		if na.name == name && na.attr != nil {
			return na.attr, true
		}
	}
	return nil, false
}

func (e EntityImpl) ForEachAttribute(callback func(attributeType, attributeName string, contents any)) error {
	for _, na := range e.attrs {
		if na.attr != nil {
			callback(na.attr.Type(), na.name, na.attr)
		}
	}

	return nil
}

//RemoveAttribute removes a root level member and reports whether it existed
func (e *EntityImpl) RemoveAttribute(name string) bool {
	for i, na := range e.attrs {
		if na.name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			if e.last == na.attr {
				e.last = nil
			}
			return true
		}
	}
	return false
}

//RemoveSystemAttributes strips the createdAt and modifiedAt members
//that brokers add, at the entity root and inside every attribute
func (e *EntityImpl) RemoveSystemAttributes() {
	e.RemoveAttribute("createdAt")
	e.RemoveAttribute("modifiedAt")

	for _, na := range e.attrs {
		if na.attr != nil {
			scrubSystemAttributes(na.attr)
		}
	}
}

func scrubSystemAttributes(a *attributes.Attribute) {
	a.RemoveMember("createdAt")
	a.RemoveMember("modifiedAt")

	children := []*attributes.Attribute{}
	a.ForEachMember(func(name string, value any) {
		if child, ok := value.(*attributes.Attribute); ok {
			children = append(children, child)
		}
	})

	for _, child := range children {
		scrubSystemAttributes(child)
	}
}

//Prop builds a Property and attaches it to the entity root, or to the
//current anchor when one is set
func (e *EntityImpl) Prop(name string, value any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewProperty(value, decorators...)
	if err != nil {
		return nil, err
	}

	return e.attach(name, a), nil
}

//TProp builds a temporal Property and attaches it
func (e *EntityImpl) TProp(name string, value any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewTemporalProperty(value, decorators...)
	if err != nil {
		return nil, err
	}

	return e.attach(name, a), nil
}

//GProp builds a GeoProperty and attaches it
func (e *EntityImpl) GProp(name string, value any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewGeoProperty(value, decorators...)
	if err != nil {
		return nil, err
	}

	return e.attach(name, a), nil
}

//Rel builds a Relationship and attaches it
func (e *EntityImpl) Rel(name string, object any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewRelationship(object, decorators...)
	if err != nil {
		return nil, err
	}

	return e.attach(name, a), nil
}

//Location attaches the conventional location GeoProperty from a
//latitude and longitude pair
func (e *EntityImpl) Location(latitude, longitude float64) (*AttachedAttribute, error) {
	return e.GProp("location", geojson.LatLon{Latitude: latitude, Longitude: longitude})
}

//Observed attaches the conventional dateObserved temporal Property
func (e *EntityImpl) Observed(value any) (*AttachedAttribute, error) {
	return e.TProp("dateObserved", value)
}

//Anchor makes the most recently attached root attribute the nesting
//target: subsequent builder calls attach beneath it until Unanchor
func (e *EntityImpl) Anchor() *EntityImpl {
	if e.last != nil {
		e.anchors = append(e.anchors, e.last)
	}
	return e
}

//Unanchor pops the current nesting target
func (e *EntityImpl) Unanchor() *EntityImpl {
	if len(e.anchors) > 0 {
		e.anchors = e.anchors[:len(e.anchors)-1]
	}
	return e
}

func (e *EntityImpl) attach(name string, a *attributes.Attribute) *AttachedAttribute {
	e.resolveTimestamps(a)

	if len(e.anchors) > 0 {
		anchor := e.anchors[len(e.anchors)-1]
		anchor.Attach(name, a)
	} else {
		e.setAttribute(name, a)
		e.last = a
	}

	return &AttachedAttribute{entity: e, name: name, attr: a}
}

//resolveTimestamps settles auto observation timestamps against the
//entity wide cache, and feeds explicit ones into it
func (e *EntityImpl) resolveTimestamps(a *attributes.Attribute) {
	if a.HasAutoObservedAt() {
		a.ResolveObservedAt(e.timestamps.Resolve())
	} else if iso := a.ObservedAt(); iso != "" {
		e.timestamps.Observe(iso)
	}
}

func (e *EntityImpl) setAttribute(name string, a *attributes.Attribute) {
	for i, na := range e.attrs {
		if na.name == name {
			e.attrs[i] = namedAttribute{name: name, attr: a}
			return
		}
	}
	e.attrs = append(e.attrs, namedAttribute{name: name, attr: a})
}

func (e *EntityImpl) setRawMember(name string, value any) {
	for i, na := range e.attrs {
		if na.name == name {
			e.attrs[i] = namedAttribute{name: name, raw: value}
			return
		}
	}
	e.attrs = append(e.attrs, namedAttribute{name: name, raw: value})
}

//AttachedAttribute is the handle returned by the builder methods. Its
//own builder methods attach beneath the attribute it refers to, which
//is how nesting is expressed without anchoring.
type AttachedAttribute struct {
	entity *EntityImpl
	name   string
	attr   *attributes.Attribute
}

func (aa *AttachedAttribute) Name() string {
	return aa.name
}

func (aa *AttachedAttribute) Attribute() *attributes.Attribute {
	return aa.attr
}

//Anchor makes this attribute the nesting target for subsequent
//builder calls on the entity
func (aa *AttachedAttribute) Anchor() *AttachedAttribute {
	aa.entity.anchors = append(aa.entity.anchors, aa.attr)
	return aa
}

func (aa *AttachedAttribute) nest(name string, a *attributes.Attribute) *AttachedAttribute {
	aa.entity.resolveTimestamps(a)
	aa.attr.Attach(name, a)
	return &AttachedAttribute{entity: aa.entity, name: name, attr: a}
}

//Prop builds a Property nested beneath this attribute
func (aa *AttachedAttribute) Prop(name string, value any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewProperty(value, decorators...)
	if err != nil {
		return nil, err
	}

	return aa.nest(name, a), nil
}

//TProp builds a temporal Property nested beneath this attribute
func (aa *AttachedAttribute) TProp(name string, value any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewTemporalProperty(value, decorators...)
	if err != nil {
		return nil, err
	}

	return aa.nest(name, a), nil
}

//GProp builds a GeoProperty nested beneath this attribute
func (aa *AttachedAttribute) GProp(name string, value any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewGeoProperty(value, decorators...)
	if err != nil {
		return nil, err
	}

	return aa.nest(name, a), nil
}

//Rel builds a Relationship nested beneath this attribute
func (aa *AttachedAttribute) Rel(name string, object any, decorators ...attributes.DecoratorFunc) (*AttachedAttribute, error) {
	a, err := attributes.NewRelationship(object, decorators...)
	if err != nil {
		return nil, err
	}

	return aa.nest(name, a), nil
}

//GetPath navigates nested attributes and metadata members through a
//dotted path such as "availableSpotNumber.reliability.value"
func (e *EntityImpl) GetPath(path string) (any, bool) {
	segments := strings.Split(path, ".")

	var root *namedAttribute
	for i := range e.attrs {
		if e.attrs[i].name == segments[0] {
			root = &e.attrs[i]
			break
		}
	}

	if root == nil {
		return nil, false
	}

	if root.attr == nil {
		if len(segments) == 1 {
			return root.raw, true
		}
		return nil, false
	}

	current := root.attr

	for i := 1; i < len(segments); i++ {
		value, ok := current.Get(segments[i])
		if !ok {
			return nil, false
		}

		if i == len(segments)-1 {
			return value, true
		}

		child, ok := value.(*attributes.Attribute)
		if !ok {
			return nil, false
		}

		current = child
	}

	return current, true
}

//SetPath replaces the member a dotted path points at. Intermediate
//segments must already exist.
func (e *EntityImpl) SetPath(path string, value any) error {
	segments := strings.Split(path, ".")

	if len(segments) == 1 {
		if a, ok := value.(*attributes.Attribute); ok {
			e.setAttribute(segments[0], a)
		} else {
			e.setRawMember(segments[0], value)
		}
		return nil
	}

	current, ok := e.Attribute(segments[0])
	if !ok {
		return errors.NewFormatError("no such attribute: " + segments[0])
	}

	for i := 1; i < len(segments)-1; i++ {
		next, ok := current.Get(segments[i])
		if !ok {
			return errors.NewFormatError("no such member: " + strings.Join(segments[:i+1], "."))
		}

		child, ok := next.(*attributes.Attribute)
		if !ok {
			return errors.NewFormatError("not a nested attribute: " + strings.Join(segments[:i+1], "."))
		}

		current = child
	}

	leaf := segments[len(segments)-1]

	switch leaf {
	case "value":
		current.SetValue(value)
	case "object":
		object, ok := value.(string)
		if !ok {
			return errors.NewUnmatchedTypeError(value)
		}
		current.SetObject(object)
	case "unitCode":
		code, ok := value.(string)
		if !ok {
			return errors.NewUnmatchedTypeError(value)
		}
		current.SetUnitCode(code)
	case "observedAt":
		return current.SetObservedAt(value)
	case "datasetId":
		id, ok := value.(string)
		if !ok {
			return errors.NewUnmatchedTypeError(value)
		}
		current.SetDatasetID(id)
	default:
		if a, ok := value.(*attributes.Attribute); ok {
			current.Attach(leaf, a)
		} else {
			current.SetMember(leaf, value)
		}
	}

	return nil
}

//DeletePath removes the member a dotted path points at from its
//immediate parent and reports whether it existed
func (e *EntityImpl) DeletePath(path string) bool {
	segments := strings.Split(path, ".")

	if len(segments) == 1 {
		return e.RemoveAttribute(segments[0])
	}

	current, ok := e.Attribute(segments[0])
	if !ok {
		return false
	}

	for i := 1; i < len(segments)-1; i++ {
		next, ok := current.Get(segments[i])
		if !ok {
			return false
		}

		child, ok := next.(*attributes.Attribute)
		if !ok {
			return false
		}

		current = child
	}

	return current.Delete(segments[len(segments)-1])
}

//Relationship is one (attribute name, target) pair of the entity's
//relationships view
type Relationship struct {
	Name   string
	Target string
}

//Relationships returns the ordered (name, target) pairs of every root
//level Relationship, with one pair per target for multi object ones.
//List valued members, such as datasetId discriminated multi attribute
//arrays, contribute one pair per Relationship record in the list.
func (e *EntityImpl) Relationships() []Relationship {
	rels := []Relationship{}

	for _, na := range e.attrs {
		if na.attr != nil {
			if na.attr.Kind() != attributes.KindRelationship {
				continue
			}

			for _, target := range na.attr.Objects() {
				rels = append(rels, Relationship{Name: na.name, Target: target})
			}

			continue
		}

		items, ok := na.raw.([]any)
		if !ok {
			continue
		}

		for _, item := range items {
			kind, err := attributes.Classify(item)
			if err != nil || kind != attributes.KindRelationship {
				continue
			}

			switch object := item.(map[string]any)["object"].(type) {
			case string:
				rels = append(rels, Relationship{Name: na.name, Target: object})
			case []any:
				for _, o := range object {
					if target, ok := o.(string); ok {
						rels = append(rels, Relationship{Name: na.name, Target: target})
					}
				}
			}
		}
	}

	return rels
}

//Equal reports whether two entities have deeply equal normalized
//forms, regardless of attribute insertion order
func (e EntityImpl) Equal(other types.EntityFragment) bool {
	mine, err := e.MarshalJSON()
	if err != nil {
		return false
	}

	theirs, err := other.MarshalJSON()
	if err != nil {
		return false
	}

	var a, b map[string]any
	if err := json.Unmarshal(mine, &a); err != nil {
		return false
	}
	if err := json.Unmarshal(theirs, &b); err != nil {
		return false
	}

	return reflect.DeepEqual(a, b)
}

//MarshalJSON renders the normalized form: id, type, the attributes in
//insertion order, and @context last
func (e EntityImpl) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')

	written := 0

	writeMember := func(name string, value any) error {
		if written > 0 {
			buf.WriteByte(',')
		}
		written++

		encodedName, _ := json.Marshal(name)
		buf.Write(encodedName)
		buf.WriteByte(':')

		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal entity member %s: %w", name, err)
		}
		buf.Write(encoded)

		return nil
	}

	if e.entityID != "" {
		writeMember("id", e.entityID)
	}

	if e.entityType != "" {
		writeMember("type", e.entityType)
	}

	for _, na := range e.attrs {
		var value any = na.raw
		if na.attr != nil {
			value = na.attr
		}
		if err := writeMember(na.name, value); err != nil {
			return nil, err
		}
	}

	if e.context != nil {
		writeMember("@context", e.context)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (e *EntityImpl) UnmarshalJSON(data []byte) error {
	names, raws, err := attributes.DecodeOrderedObject(data)
	if err != nil {
		return errors.NewFormatError("entity must be a JSON object: " + err.Error())
	}

	decoded := &EntityImpl{cfg: DefaultConfig()}

	for i, name := range names {
		switch name {
		case "id":
			if err := json.Unmarshal(raws[i], &decoded.entityID); err != nil {
				return errors.NewFormatError("entity id must be a string")
			}
		case "type":
			if err := json.Unmarshal(raws[i], &decoded.entityType); err != nil {
				return errors.NewFormatError("entity type must be a string")
			}
		case "@context":
			ctx, err := decodeContext(raws[i])
			if err != nil {
				return err
			}
			decoded.context = ctx
		default:
			if bytes.HasPrefix(bytes.TrimSpace(raws[i]), []byte("{")) {
				a := &attributes.Attribute{}
				if err := a.UnmarshalJSON(raws[i]); err != nil {
					return err
				}
				decoded.attrs = append(decoded.attrs, namedAttribute{name: name, attr: a})
				continue
			}

			var raw any
			if err := json.Unmarshal(raws[i], &raw); err != nil {
				return err
			}
			decoded.attrs = append(decoded.attrs, namedAttribute{name: name, raw: raw})
		}
	}

	*e = *decoded

	return nil
}

//decodeContext accepts the three shapes a JSON-LD context arrives in:
//a single URI, an inline context object, or an ordered array mixing both
func decodeContext(raw json.RawMessage) ([]any, error) {
	trimmed := bytes.TrimSpace(raw)

	switch {
	case bytes.HasPrefix(trimmed, []byte("\"")):
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, errors.NewFormatError("unsupported @context: " + err.Error())
		}
		return []any{single}, nil
	case bytes.HasPrefix(trimmed, []byte("{")):
		inline := map[string]any{}
		if err := json.Unmarshal(raw, &inline); err != nil {
			return nil, errors.NewFormatError("unsupported @context: " + err.Error())
		}
		return []any{inline}, nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		ctx := []any{}
		if err := json.Unmarshal(raw, &ctx); err != nil {
			return nil, errors.NewFormatError("unsupported @context: " + err.Error())
		}
		return ctx, nil
	default:
		return nil, errors.NewFormatError("unsupported @context: " + string(raw))
	}
}

//KeyValues returns the simplified form of the entity as a map
func (e *EntityImpl) KeyValues() map[string]any {
	kv := map[string]any{}

	if e.entityID != "" {
		kv["id"] = e.entityID
	}

	if e.entityType != "" {
		kv["type"] = e.entityType
	}

	for _, na := range e.attrs {
		if na.attr != nil {
			kv[na.name] = na.attr.SimplifiedValue()
		} else {
			kv[na.name] = na.raw
		}
	}

	if e.context != nil {
		kv["@context"] = e.context
	}

	return kv
}

//MarshalKeyValues renders the simplified form, with the members in
//the same order as the normalized form
func (e *EntityImpl) MarshalKeyValues() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')

	written := 0

	writeMember := func(name string, value any) error {
		if written > 0 {
			buf.WriteByte(',')
		}
		written++

		encodedName, _ := json.Marshal(name)
		buf.Write(encodedName)
		buf.WriteByte(':')

		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal entity member %s: %w", name, err)
		}
		buf.Write(encoded)

		return nil
	}

	if e.entityID != "" {
		writeMember("id", e.entityID)
	}

	if e.entityType != "" {
		writeMember("type", e.entityType)
	}

	for _, na := range e.attrs {
		var value any = na.raw
		if na.attr != nil {
			value = na.attr.SimplifiedValue()
		}
		if err := writeMember(na.name, value); err != nil {
			return nil, err
		}
	}

	if e.context != nil {
		writeMember("@context", e.context)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

//Context sets the JSON-LD context of the entity
func Context(ctx []string) EntityDecoratorFunc {
	return func(e *EntityImpl) {
		e.context = make([]any, 0, len(ctx))
		for _, c := range ctx {
			e.context = append(e.context, c)
		}
	}
}

//DefaultContext sets the NGSI-LD core context
func DefaultContext() EntityDecoratorFunc {
	return Context([]string{DefaultContextURL})
}

//DefaultBrokerContext sets the default context served by the given broker
func DefaultBrokerContext(brokerURL string) EntityDecoratorFunc {
	return Context([]string{brokerURL + "/ngsi-ld/v1/jsonldContexts/default-context.jsonld"})
}

//A attaches an already built attribute, for use with NewFragment
func A(name string, attr *attributes.Attribute) EntityDecoratorFunc {
	return func(e *EntityImpl) {
		e.resolveTimestamps(attr)
		e.setAttribute(name, attr)
	}
}
