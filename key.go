package cache

import "strings"

// KeySeparator delimits owner, feature and params in a flat key.
const KeySeparator = ":"

// Key identifies a cached value of a feature computed for an owner.
type Key struct {
	// Owner is a user identifier, all keys of an owner are invalidated together.
	Owner string

	// Feature is a name of cached computation, e.g. "tips".
	Feature string

	// Params is an optional parameter of computation, e.g. "month".
	Params string
}

// NewKey creates a key for owner and feature with optional params.
func NewKey(owner, feature string, params ...string) Key {
	return Key{
		Owner:   owner,
		Feature: feature,
		Params:  strings.Join(params, KeySeparator),
	}
}

// String renders key as "<owner>:<feature>[:<params>]".
func (k Key) String() string {
	s := k.Owner + KeySeparator + k.Feature
	if k.Params != "" {
		s += KeySeparator + k.Params
	}

	return s
}

// UserPrefix returns key prefix shared by all keys of a user.
func UserPrefix(userID string) string {
	return userID + KeySeparator
}

// ParseKey splits a flat key into owner, feature and params.
//
// Owner is empty if key has no separator.
func ParseKey(s string) Key {
	parts := strings.SplitN(s, KeySeparator, 3)

	switch len(parts) {
	case 1:
		return Key{Feature: parts[0]}
	case 2:
		return Key{Owner: parts[0], Feature: parts[1]}
	default:
		return Key{Owner: parts[0], Feature: parts[1], Params: parts[2]}
	}
}
