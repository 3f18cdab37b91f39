// Package tokenkey implements the token identity primitive shared by every
// other component: a 4-tuple (collection, category, type, additionalKey)
// canonically serialized as "collection|category|type|additionalKey".
package tokenkey

import (
	"fmt"
	"strings"
)

// DefaultCategory, DefaultType and DefaultAdditionalKey are the template tail
// used when a registry or asset record only supplies a symbol.
const (
	DefaultCategory      = "Unit"
	DefaultType          = "none"
	DefaultAdditionalKey = "none"
)

// Key is a token identity. Two keys are equal iff all four fields match.
type Key struct {
	Collection    string
	Category      string
	Type          string
	AdditionalKey string
}

// New builds a Key from its four fields.
func New(collection, category, typ, additionalKey string) Key {
	return Key{Collection: collection, Category: category, Type: typ, AdditionalKey: additionalKey}
}

// FromSymbol expands a bare symbol into a key using the default template tail.
func FromSymbol(symbol string) Key {
	return New(symbol, DefaultCategory, DefaultType, DefaultAdditionalKey)
}

// Symbol returns the key's collection field, which doubles as its display symbol.
func (k Key) Symbol() string { return k.Collection }

// String canonically serializes the key as "collection|category|type|additionalKey".
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Collection, k.Category, k.Type, k.AdditionalKey)
}

// Equal reports whether two keys have identical fields.
func (k Key) Equal(other Key) bool {
	return k.Collection == other.Collection &&
		k.Category == other.Category &&
		k.Type == other.Type &&
		k.AdditionalKey == other.AdditionalKey
}

// Parse decodes a canonical "collection|category|type|additionalKey" string.
// It returns an error unless exactly 4 pipe-separated fields are present.
func Parse(s string) (Key, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("tokenkey: expected 4 fields, got %d in %q", len(parts), s)
	}
	return New(parts[0], parts[1], parts[2], parts[3]), nil
}

// UnorderedPairKey canonicalizes two keys plus a fee tier into a deterministic
// cache/map key, independent of call-site ordering.
func UnorderedPairKey(a, b Key, fee int) string {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return fmt.Sprintf("%s/%s/%d", as, bs, fee)
}
