// Package metadata models the key/value metadata attached to resources and
// components. Keys can be locked, after which their value is frozen.
// Who may set or lock is decided by the caller through authz roles.
package metadata

import (
	"maps"
	"slices"
	"strings"

	dErrors "badgeissuer/pkg/domain-errors"
)

const (
	KeyName           = "name"
	KeySymbol         = "symbol"
	KeyDescription    = "description"
	KeyInfoURL        = "info_url"
	KeyIconURL        = "icon_url"
	KeyDappDefinition = "dapp_definition"
)

const (
	maxKeyLen   = 64
	maxValueLen = 1024
)

// Entry is one metadata value.
type Entry struct {
	Value  string `json:"value"`
	Locked bool   `json:"locked,omitempty"`
}

// Map holds metadata entries by key.
type Map map[string]Entry

// FromValues builds an unlocked map from plain values.
func FromValues(values map[string]string) Map {
	m := make(Map, len(values))
	for k, v := range values {
		m[k] = Entry{Value: v}
	}
	return m
}

// Get returns the value for key.
func (m Map) Get(key string) (string, bool) {
	e, ok := m[key]
	return e.Value, ok
}

// Set writes a value. Locked keys reject writes.
func (m Map) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if len(value) > maxValueLen {
		return dErrors.New(dErrors.CodeValidation, "metadata value too long")
	}
	if e, ok := m[key]; ok && e.Locked {
		return dErrors.New(dErrors.CodeInvalidState, "metadata key "+key+" is locked")
	}
	m[key] = Entry{Value: value}
	return nil
}

// Lock freezes a key. Locking a missing key is an error; locking twice is
// a no-op.
func (m Map) Lock(key string) error {
	e, ok := m[key]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "metadata key "+key+" not found")
	}
	e.Locked = true
	m[key] = e
	return nil
}

// Values returns the plain values.
func (m Map) Values() map[string]string {
	out := make(map[string]string, len(m))
	for k, e := range m {
		out[k] = e.Value
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	return maps.Clone(m)
}

// ValidateKey checks a key received from outside the process.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) != key {
		return dErrors.New(dErrors.CodeValidation, "metadata key is required")
	}
	if len(key) > maxKeyLen {
		return dErrors.New(dErrors.CodeValidation, "metadata key too long")
	}
	return nil
}
