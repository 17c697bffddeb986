package urn

import (
	"errors"
	"strings"
	"testing"

	ngsierrors "github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/matryer/is"
)

func TestParse(t *testing.T) {
	is := is.New(t)

	u, err := Parse("urn:ngsi-ld:Vehicle:A4567")

	is.NoErr(err)
	is.Equal(u.NID, "ngsi-ld")
	is.Equal(u.NSS, "Vehicle:A4567")
	is.Equal(u.String(), "urn:ngsi-ld:Vehicle:A4567")
}

func TestParseFailsOnMalformedInput(t *testing.T) {
	is := is.New(t)

	for _, fqn := range []string{"", "Vehicle:A4567", "urn:", "urn:ngsi+ld:Vehicle:A4567", "urn:ngsi-ld:"} {
		_, err := Parse(fqn)
		is.True(err != nil)                               // malformed urn should not parse
		is.True(errors.Is(err, ngsierrors.ErrFormat))     // should be a format error
	}
}

func TestPrefixIsIdempotent(t *testing.T) {
	is := is.New(t)

	is.Equal(Prefix("Vehicle:A4567"), "urn:ngsi-ld:Vehicle:A4567")
	is.Equal(Prefix(Prefix("Vehicle:A4567")), Prefix("Vehicle:A4567"))
	is.Equal(Prefix(""), "")
}

func TestShortenInvertsPrefix(t *testing.T) {
	is := is.New(t)

	is.Equal(Shorten(Prefix("Vehicle:A4567")), "Vehicle:A4567")
	is.Equal(Shorten("Vehicle:A4567"), "Vehicle:A4567")
	is.Equal(Shorten(Prefix("Vehicle:A4567")), Shorten("Vehicle:A4567"))
}

func TestIsPrefixed(t *testing.T) {
	is := is.New(t)

	is.True(IsPrefixed("urn:ngsi-ld:Vehicle:A4567"))
	is.True(!IsPrefixed("Vehicle:A4567"))
}

func TestInferType(t *testing.T) {
	is := is.New(t)

	is.Equal(InferType("Vehicle:A4567"), "Vehicle")
	is.Equal(InferType("urn:ngsi-ld:Vehicle:A4567"), "Vehicle")
	is.Equal(InferType("NoRemainder"), "")
}

func TestSplit(t *testing.T) {
	is := is.New(t)

	entityType, shortID, err := Split("urn:ngsi-ld:Vehicle:A4567")

	is.NoErr(err)
	is.Equal(entityType, "Vehicle")
	is.Equal(shortID, "Vehicle:A4567")
}

func TestSplitFailsWithoutTypeSegment(t *testing.T) {
	is := is.New(t)

	_, _, err := Split("urn:ngsi-ld:NoRemainder")
	is.True(err != nil)
}

func TestNewEntityID(t *testing.T) {
	is := is.New(t)

	entityID := NewEntityID("Vehicle")

	is.True(strings.HasPrefix(entityID, "urn:ngsi-ld:Vehicle:"))

	entityType, _, err := Split(entityID)
	is.NoErr(err)
	is.Equal(entityType, "Vehicle")
}
