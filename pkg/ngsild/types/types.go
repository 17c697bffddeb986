package types

type EntityFragment interface {
	ForEachAttribute(func(attributeType, attributeName string, contents any)) error
	MarshalJSON() ([]byte, error)
}

type Entity interface {
	EntityFragment

	ID() string
	Type() string
}

type Attribute interface {
	Type() string
}

//AttributeInstance is a single observation within a temporal
//evolution: a value and the instant it was observed at
type AttributeInstance struct {
	Value      any
	ObservedAt string
}

type TemporalAttribute interface {
	Name() string
	AttributeType() string
	Instances() []AttributeInstance
}

type EntityTemporal interface {
	ID() string
	Type() string
	Attributes() []TemporalAttribute
	MarshalJSON() ([]byte, error)
}
