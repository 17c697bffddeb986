package entities

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types"
	"github.com/contextsource/ngsild-client/pkg/ngsild/types/attributes"
)

//TemporalAttributeImpl is one attribute of a temporal entity: the
//ordered instances of its value over time
type TemporalAttributeImpl struct {
	name          string
	attributeType string
	instances     []types.AttributeInstance

	//condensed marks attributes decoded from the temporalValues
	//representation, where each instance is a [value, timestamp] pair
	condensed bool
}

func (t TemporalAttributeImpl) Name() string {
	return t.name
}

func (t TemporalAttributeImpl) AttributeType() string {
	return t.attributeType
}

func (t TemporalAttributeImpl) Instances() []types.AttributeInstance {
	return t.instances
}

//EntityTemporalImpl holds the temporal representation of an entity,
//with its attributes in document order
type EntityTemporalImpl struct {
	entityID   string
	entityType string
	context    []any

	attrs []TemporalAttributeImpl
}

//NewTemporalFromJSON decodes a temporal entity document
func NewTemporalFromJSON(body []byte) (types.EntityTemporal, error) {
	e := &EntityTemporalImpl{}
	if err := json.Unmarshal(body, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal temporal entity: %w", err)
	}

	if e.entityID == "" {
		return nil, errors.NewMissingIDError("the temporal entity has no id")
	}

	if e.entityType == "" {
		return nil, errors.NewMissingTypeError("the temporal entity has no type")
	}

	return e, nil
}

//NewTemporalFromSlice decodes an array of temporal entity documents
func NewTemporalFromSlice(body []byte) ([]types.EntityTemporal, error) {
	impls := []EntityTemporalImpl{}
	if err := json.Unmarshal(body, &impls); err != nil {
		return nil, fmt.Errorf("failed to unmarshal temporal entities: %w", err)
	}

	arr := make([]types.EntityTemporal, 0, len(impls))

	for i := range impls {
		arr = append(arr, &impls[i])
	}

	return arr, nil
}

func (e EntityTemporalImpl) ID() string {
	return e.entityID
}

func (e EntityTemporalImpl) Type() string {
	return e.entityType
}

func (e EntityTemporalImpl) Attributes() []types.TemporalAttribute {
	attrs := make([]types.TemporalAttribute, 0, len(e.attrs))
	for _, a := range e.attrs {
		attrs = append(attrs, a)
	}
	return attrs
}

type temporalInstance struct {
	Type       string `json:"type"`
	Value      any    `json:"value"`
	ObservedAt string `json:"observedAt,omitempty"`
}

//MarshalJSON renders the temporal entity the way it was received:
//attributes decoded from the condensed representation render back to
//values pair arrays, all others to arrays of attribute instances
func (e EntityTemporalImpl) MarshalJSON() ([]byte, error) {
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
			return fmt.Errorf("failed to marshal temporal entity member %s: %w", name, err)
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

	for _, a := range e.attrs {
		if a.condensed {
			values := make([][]any, 0, len(a.instances))
			for _, instance := range a.instances {
				values = append(values, []any{instance.Value, instance.ObservedAt})
			}

			err := writeMember(a.name, struct {
				Type   string  `json:"type"`
				Values [][]any `json:"values"`
			}{Type: a.attributeType, Values: values})
			if err != nil {
				return nil, err
			}
			continue
		}

		instances := make([]temporalInstance, 0, len(a.instances))
		for _, instance := range a.instances {
			instances = append(instances, temporalInstance{
				Type:       a.attributeType,
				Value:      instance.Value,
				ObservedAt: instance.ObservedAt,
			})
		}

		if err := writeMember(a.name, instances); err != nil {
			return nil, err
		}
	}

	if e.context != nil {
		writeMember("@context", e.context)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (e *EntityTemporalImpl) UnmarshalJSON(data []byte) error {
	names, raws, err := attributes.DecodeOrderedObject(data)
	if err != nil {
		return errors.NewFormatError("temporal entity must be a JSON object: " + err.Error())
	}

	decoded := &EntityTemporalImpl{}

	for i, name := range names {
		switch name {
		case "id":
			if err := json.Unmarshal(raws[i], &decoded.entityID); err != nil {
				return errors.NewFormatError("temporal entity id must be a string")
			}
		case "type":
			if err := json.Unmarshal(raws[i], &decoded.entityType); err != nil {
				return errors.NewFormatError("temporal entity type must be a string")
			}
		case "@context":
			ctx, err := decodeContext(raws[i])
			if err != nil {
				return err
			}
			decoded.context = ctx
		default:
			attr, err := unmarshalTemporalAttribute(name, raws[i])
			if err != nil {
				return err
			}
			decoded.attrs = append(decoded.attrs, attr)
		}
	}

	*e = *decoded

	return nil
}

//unmarshalTemporalAttribute accepts the three shapes a temporal
//attribute arrives in: an array of instances, a single instance
//object, or the condensed form with a values array of pairs
func unmarshalTemporalAttribute(name string, raw json.RawMessage) (TemporalAttributeImpl, error) {
	attr := TemporalAttributeImpl{name: name, attributeType: "Property"}

	trimmed := bytes.TrimSpace(raw)

	if bytes.HasPrefix(trimmed, []byte("[")) {
		instances := []temporalInstance{}
		if err := json.Unmarshal(raw, &instances); err != nil {
			return attr, errors.NewFormatError(fmt.Sprintf("malformed temporal attribute %s: %s", name, err.Error()))
		}

		for _, instance := range instances {
			if instance.Type != "" {
				attr.attributeType = instance.Type
			}
			attr.instances = append(attr.instances, types.AttributeInstance{
				Value:      instance.Value,
				ObservedAt: instance.ObservedAt,
			})
		}

		return attr, nil
	}

	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return attr, errors.NewFormatError("malformed temporal attribute " + name)
	}

	condensed := struct {
		Type   string            `json:"type"`
		Values []json.RawMessage `json:"values"`
	}{}

	if err := json.Unmarshal(raw, &condensed); err != nil {
		return attr, errors.NewFormatError(fmt.Sprintf("malformed temporal attribute %s: %s", name, err.Error()))
	}

	if condensed.Values != nil {
		if condensed.Type != "" {
			attr.attributeType = condensed.Type
		}
		attr.condensed = true

		for _, pairRaw := range condensed.Values {
			pair := []any{}
			if err := json.Unmarshal(pairRaw, &pair); err != nil || len(pair) != 2 {
				return attr, errors.NewFormatError("malformed values pair in temporal attribute " + name)
			}

			observedAt, ok := pair[1].(string)
			if !ok {
				return attr, errors.NewFormatError("malformed observation timestamp in temporal attribute " + name)
			}

			attr.instances = append(attr.instances, types.AttributeInstance{
				Value:      pair[0],
				ObservedAt: observedAt,
			})
		}

		return attr, nil
	}

	instance := temporalInstance{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return attr, errors.NewFormatError(fmt.Sprintf("malformed temporal attribute %s: %s", name, err.Error()))
	}

	if instance.Type != "" {
		attr.attributeType = instance.Type
	}

	attr.instances = append(attr.instances, types.AttributeInstance{
		Value:      instance.Value,
		ObservedAt: instance.ObservedAt,
	})

	return attr, nil
}
