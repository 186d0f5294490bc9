// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when a cigarro type string is not one of the known types.
var ErrUnknownType = errors.New("unknown cigarro type")

// CigarroType is the closed set of catalog categories.
type CigarroType string

// Known cigarro types.
const (
	TypeLager    CigarroType = "LAGER"
	TypeMalzbier CigarroType = "MALZBIER"
	TypeWitbier  CigarroType = "WITBIER"
	TypeWeiss    CigarroType = "WEISS"
	TypeAle      CigarroType = "ALE"
	TypeIPA      CigarroType = "IPA"
	TypeStout    CigarroType = "STOUT"
)

var typeDescriptions = map[CigarroType]string{
	TypeLager:    "Lager",
	TypeMalzbier: "Malzbier",
	TypeWitbier:  "Witbier",
	TypeWeiss:    "Weiss",
	TypeAle:      "Ale",
	TypeIPA:      "IPA",
	TypeStout:    "Stout",
}

// CigarroTypes returns all known types in declaration order.
func CigarroTypes() []CigarroType {
	return []CigarroType{
		TypeLager,
		TypeMalzbier,
		TypeWitbier,
		TypeWeiss,
		TypeAle,
		TypeIPA,
		TypeStout,
	}
}

// ParseCigarroType parses s case-insensitively.
func ParseCigarroType(s string) (CigarroType, error) {
	t := CigarroType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known types.
func (t CigarroType) Valid() bool {
	_, ok := typeDescriptions[t]
	return ok
}

// Description returns the human readable name of the type.
func (t CigarroType) Description() string {
	return typeDescriptions[t]
}

// String implements fmt.Stringer.
func (t CigarroType) String() string {
	return string(t)
}

// MarshalText implements encoding.TextMarshaler.
func (t CigarroType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It is used by both the
// JSON request decoder and the YAML seed loader.
func (t *CigarroType) UnmarshalText(text []byte) error {
	parsed, err := ParseCigarroType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Cigarro is the persisted catalog entry.
type Cigarro struct {
	ID       int64       `bson:"id"`
	Name     string      `bson:"name"`
	Brand    string      `bson:"brand"`
	Max      int         `bson:"max"`
	Quantity int         `bson:"quantity"`
	Type     CigarroType `bson:"type"`
}

// CanIncrement reports whether adding amount keeps the quantity within [0, Max].
// It returns the resulting quantity either way.
func (c *Cigarro) CanIncrement(amount int) (int, bool) {
	next := c.Quantity + amount
	return next, next <= c.Max && next >= 0
}
