// Package urn handles identifiers in the NGSI-LD namespace and allows
// the rest of the library to work with unprefixed strings.
//
// See "NGSI-LD namespace" in ETSI GS CIM 009, Annex A.3.
package urn

import (
	"regexp"
	"strings"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	"github.com/google/uuid"
)

const (
	//DefaultNID is the namespace identifier of the NGSI-LD namespace
	DefaultNID string = "ngsi-ld"
	//DefaultPrefix is scheme + NID, the part that Prefix prepends and Shorten strips
	DefaultPrefix string = "urn:" + DefaultNID + ":"
)

var urnPattern = regexp.MustCompile(`^urn:([0-9a-zA-Z-]+):(.+)$`)

//Urn holds the parts of a parsed urn string
type Urn struct {
	NID string
	NSS string
}

//Parse validates a fully qualified urn string and splits it into its parts
func Parse(fqn string) (Urn, error) {
	m := urnPattern.FindStringSubmatch(fqn)
	if m == nil {
		return Urn{}, errors.NewFormatError("bad urn format: " + fqn)
	}

	return Urn{NID: m[1], NSS: m[2]}, nil
}

//String returns the fully qualified name
func (u Urn) String() string {
	return "urn:" + u.NID + ":" + u.NSS
}

//InferType extracts the entity type from the namespace specific string,
//assuming the naming convention urn:ngsi-ld:<type>:<remainder>
func (u Urn) InferType() string {
	if idx := strings.Index(u.NSS, ":"); idx > 0 {
		return u.NSS[:idx]
	}
	return ""
}

//IsPrefixed checks whether the given string starts with the NGSI-LD prefix
func IsPrefixed(value string) bool {
	return strings.HasPrefix(value, DefaultPrefix)
}

//Prefix prepends the NGSI-LD prefix to a string (idempotent)
func Prefix(value string) string {
	if value == "" || IsPrefixed(value) {
		return value
	}
	return DefaultPrefix + value
}

//Shorten removes the NGSI-LD prefix from a string if present
func Shorten(value string) string {
	if IsPrefixed(value) {
		return value[len(DefaultPrefix):]
	}
	return value
}

//InferType extracts the type from a short identifier following the
//<type>:<remainder> naming convention, or "" when no type can be found
func InferType(value string) string {
	u := Urn{NID: DefaultNID, NSS: Shorten(value)}
	return u.InferType()
}

//Split returns the entity type and the short (unprefixed) identifier
//of a fully qualified urn string
func Split(fqn string) (string, string, error) {
	u, err := Parse(fqn)
	if err != nil {
		return "", "", err
	}

	entityType := u.InferType()
	if entityType == "" {
		return "", "", errors.NewFormatError("urn does not follow the <type>:<remainder> convention: " + fqn)
	}

	return entityType, u.NSS, nil
}

//NewEntityID mints a random, fully qualified entity identifier for the given type
func NewEntityID(entityType string) string {
	return Prefix(entityType + ":" + uuid.NewString())
}
