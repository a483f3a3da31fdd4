// Package models holds the registry's resource and record types.
package models

import (
	"slices"
	"time"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/pkg/domain"
)

// ResourceSpec describes a non-fungible resource to create.
type ResourceSpec struct {
	Owner         authz.AccessRule
	Roles         authz.Roles
	MutableFields []string
	Metadata      metadata.Map
}

// ResourceDefinition is a created non-fungible resource.
type ResourceDefinition struct {
	Address       domain.ResourceAddress
	Owner         authz.AccessRule
	Roles         authz.Roles
	MutableFields []string
	Metadata      metadata.Map
	TotalSupply   uint64
	CreatedAt     time.Time
}

// Rule resolves the effective rule for a role on this resource.
func (d *ResourceDefinition) Rule(role authz.RoleKey) authz.AccessRule {
	return d.Roles.Rule(role, d.Owner)
}

// IsMutable reports whether a record field may change after mint.
func (d *ResourceDefinition) IsMutable(field string) bool {
	return slices.Contains(d.MutableFields, field)
}

// Clone returns a deep copy safe to hand out of a store.
func (d *ResourceDefinition) Clone() *ResourceDefinition {
	out := *d
	out.Roles = d.Roles.Clone()
	out.MutableFields = slices.Clone(d.MutableFields)
	out.Metadata = d.Metadata.Clone()
	return &out
}

// NonFungible is one record of a resource.
type NonFungible struct {
	Resource   domain.ResourceAddress
	LocalID    domain.NonFungibleLocalID
	Data       map[string]string
	Holder     domain.AccountAddress
	MintedAt   time.Time
	RecalledAt *time.Time
}

// Recalled reports whether the owner reclaimed the record.
func (n *NonFungible) Recalled() bool {
	return n.RecalledAt != nil
}

// Clone returns a deep copy safe to hand out of a store.
func (n *NonFungible) Clone() *NonFungible {
	out := *n
	out.Data = make(map[string]string, len(n.Data))
	for k, v := range n.Data {
		out.Data[k] = v
	}
	if n.RecalledAt != nil {
		t := *n.RecalledAt
		out.RecalledAt = &t
	}
	return &out
}
