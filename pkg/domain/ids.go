// Package domain holds the typed identifiers shared by every module.
//
// Addresses are opaque strings of the form "<entity>_<32 lowercase hex>".
// Typed wrappers keep a resource address from being passed where a component
// address is expected; parse functions are the only way to build them from
// external input.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	dErrors "badgeissuer/pkg/domain-errors"
)

// EntityKind is the address prefix naming the kind of global entity.
type EntityKind string

const (
	EntityResource  EntityKind = "resource"
	EntityComponent EntityKind = "component"
	EntityAccount   EntityKind = "account"
)

const addressBodyLen = 32

// ResourceAddress identifies a managed resource (a badge collection or an owner badge).
type ResourceAddress string

// ComponentAddress identifies a published component.
type ComponentAddress string

// AccountAddress identifies an external caller.
type AccountAddress string

// GlobalAddress is any globally addressable entity. Access rules compare
// callers by global address, whatever their kind.
type GlobalAddress string

// NewResourceAddress returns a fresh random resource address.
func NewResourceAddress() ResourceAddress {
	return ResourceAddress(newAddress(EntityResource))
}

// NewComponentAddress returns a fresh random component address.
func NewComponentAddress() ComponentAddress {
	return ComponentAddress(newAddress(EntityComponent))
}

// NewAccountAddress returns a fresh random account address.
func NewAccountAddress() AccountAddress {
	return AccountAddress(newAddress(EntityAccount))
}

func newAddress(kind EntityKind) string {
	return string(kind) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ParseResourceAddress validates external input as a resource address.
func ParseResourceAddress(s string) (ResourceAddress, error) {
	if err := parseAddress(EntityResource, s); err != nil {
		return "", err
	}
	return ResourceAddress(s), nil
}

// ParseComponentAddress validates external input as a component address.
func ParseComponentAddress(s string) (ComponentAddress, error) {
	if err := parseAddress(EntityComponent, s); err != nil {
		return "", err
	}
	return ComponentAddress(s), nil
}

// ParseAccountAddress validates external input as an account address.
func ParseAccountAddress(s string) (AccountAddress, error) {
	if err := parseAddress(EntityAccount, s); err != nil {
		return "", err
	}
	return AccountAddress(s), nil
}

// ParseGlobalAddress accepts any known entity kind.
func ParseGlobalAddress(s string) (GlobalAddress, error) {
	for _, kind := range []EntityKind{EntityComponent, EntityAccount, EntityResource} {
		if strings.HasPrefix(s, string(kind)+"_") {
			if err := parseAddress(kind, s); err != nil {
				return "", err
			}
			return GlobalAddress(s), nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown address kind")
}

func parseAddress(kind EntityKind, s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, string(kind)+" address is required")
	}
	body, ok := strings.CutPrefix(s, string(kind)+"_")
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "expected "+string(kind)+" address")
	}
	if len(body) != addressBodyLen || !isLowerHex(body) {
		return dErrors.New(dErrors.CodeInvalidInput, "malformed "+string(kind)+" address")
	}
	return nil
}

func (a ResourceAddress) String() string  { return string(a) }
func (a ComponentAddress) String() string { return string(a) }
func (a AccountAddress) String() string   { return string(a) }
func (a GlobalAddress) String() string    { return string(a) }

func (a ResourceAddress) IsNil() bool  { return a == "" }
func (a ComponentAddress) IsNil() bool { return a == "" }
func (a AccountAddress) IsNil() bool   { return a == "" }
func (a GlobalAddress) IsNil() bool    { return a == "" }

// Global widens a component address for caller comparisons.
func (a ComponentAddress) Global() GlobalAddress { return GlobalAddress(a) }

// Global widens an account address for caller comparisons.
func (a AccountAddress) Global() GlobalAddress { return GlobalAddress(a) }

// NonFungibleLocalID identifies one record inside a non-fungible resource.
// Registry-assigned ids use the RUID form: four groups of 16 lowercase hex
// digits wrapped in braces.
type NonFungibleLocalID string

const ruidLen = 1 + 4*16 + 3 + 1

// NewRUID generates a random unique local id: 256 bits from crypto/rand,
// 64 per group.
func NewRUID() NonFungibleLocalID {
	var buf [32]byte
	_, _ = rand.Read(buf[:]) // never fails on supported platforms
	h := hex.EncodeToString(buf[:])
	return NonFungibleLocalID("{" + h[0:16] + "-" + h[16:32] + "-" + h[32:48] + "-" + h[48:64] + "}")
}

// ParseNonFungibleLocalID validates a RUID local id.
func ParseNonFungibleLocalID(s string) (NonFungibleLocalID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "local id is required")
	}
	if len(s) != ruidLen || s[0] != '{' || s[len(s)-1] != '}' {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed local id")
	}
	groups := strings.Split(s[1:len(s)-1], "-")
	if len(groups) != 4 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed local id")
	}
	for _, g := range groups {
		if len(g) != 16 || !isLowerHex(g) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "malformed local id")
		}
	}
	return NonFungibleLocalID(s), nil
}

func (id NonFungibleLocalID) String() string { return string(id) }

func (id NonFungibleLocalID) IsNil() bool { return id == "" }

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
