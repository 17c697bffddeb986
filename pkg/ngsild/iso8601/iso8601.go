// Package iso8601 converts between native temporal values and the
// ISO8601 string encodings that NGSI-LD mandates for temporal
// properties and the observedAt metadata attribute.
//
// NGSI-LD dates are expressed in UTC. The three supported encodings
// have fixed widths, which makes the kind of an encoded string
// unambiguous: a DateTime is 20 characters ending in Z, a Date is 10
// characters and a Time is 9 characters ending in Z.
package iso8601

import (
	"time"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
)

//TemporalType is the kind of a temporal value
type TemporalType string

const (
	TemporalTypeDateTime TemporalType = "DateTime"
	TemporalTypeDate     TemporalType = "Date"
	TemporalTypeTime     TemporalType = "Time"
)

const (
	dateTimeLayout string = "2006-01-02T15:04:05Z"
	dateLayout     string = "2006-01-02"
	timeLayout     string = "15:04:05Z"
)

//Value is a temporal value tagged with its kind
type Value struct {
	typ TemporalType
	t   time.Time
}

//NewDateTime creates an instant value, converting the supplied time to UTC
func NewDateTime(t time.Time) Value {
	return Value{typ: TemporalTypeDateTime, t: t.UTC().Truncate(time.Second)}
}

//NewDate creates a calendar date value (the time of day is discarded)
func NewDate(t time.Time) Value {
	y, m, d := t.Date()
	return Value{typ: TemporalTypeDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

//NewTime creates a time of day value (the calendar date is discarded)
func NewTime(t time.Time) Value {
	return Value{typ: TemporalTypeTime, t: time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

func (v Value) Type() TemporalType {
	return v.typ
}

func (v Value) Time() time.Time {
	return v.t
}

//String encodes the value using the fixed width layout of its kind
func (v Value) String() string {
	switch v.typ {
	case TemporalTypeDate:
		return v.t.Format(dateLayout)
	case TemporalTypeTime:
		return v.t.Format(timeLayout)
	default:
		return v.t.Format(dateTimeLayout)
	}
}

//FromDateTime encodes an instant, converting to UTC first if needed.
//Timezone-naive callers should construct their time.Time in UTC.
func FromDateTime(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}

//FromDate encodes a calendar date
func FromDate(t time.Time) string {
	return t.Format(dateLayout)
}

//FromTime encodes a time of day, assumed to be UTC
func FromTime(t time.Time) string {
	return t.Format(timeLayout)
}

//UTCNow encodes the current instant
func UTCNow() string {
	return FromDateTime(time.Now())
}

//Decode parses an encoded temporal string. The kind is dispatched on
//string length alone, then a strict parse is attempted.
func Decode(value string) (Value, error) {
	switch len(value) {
	case 20:
		t, err := time.Parse(dateTimeLayout, value)
		if err == nil {
			return Value{typ: TemporalTypeDateTime, t: t}, nil
		}
	case 10:
		t, err := time.Parse(dateLayout, value)
		if err == nil {
			return Value{typ: TemporalTypeDate, t: t}, nil
		}
	case 9:
		t, err := time.Parse(timeLayout, value)
		if err == nil {
			return Value{typ: TemporalTypeTime, t: t}, nil
		}
	}

	return Value{}, errors.NewDateFormatError("bad date format: " + value)
}

//Parse accepts any value carrying temporal information (a Value, a
//time.Time or an encoded string) and normalizes it. It is the single
//entry point the attribute builders use to accept flexible caller input.
func Parse(value any) (string, TemporalType, error) {
	switch v := value.(type) {
	case Value:
		return v.String(), v.typ, nil
	case time.Time:
		return FromDateTime(v), TemporalTypeDateTime, nil
	case string:
		decoded, err := Decode(v)
		if err != nil {
			return "", "", err
		}
		return v, decoded.Type(), nil
	default:
		return "", "", errors.NewDateFormatError("bad date format: value is neither a temporal value nor a string")
	}
}

//AutoTimestamp caches the first observation timestamp seen while
//building an entity, so that many related observations can share
//exactly one timestamp without the caller repeating it.
type AutoTimestamp struct {
	cached string
}

//Observe caches the supplied encoded instant unless one is already cached
func (a *AutoTimestamp) Observe(iso string) {
	if a.cached == "" {
		a.cached = iso
	}
}

//Resolve returns the cached instant, caching the current time on first use
func (a *AutoTimestamp) Resolve() string {
	if a.cached == "" {
		a.cached = UTCNow()
	}
	return a.cached
}
