package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"badgeissuer/internal/authz"
	"badgeissuer/pkg/domain"
)

func TestHackerRoundTripsThroughFields(t *testing.T) {
	h := NewHacker("Alpha")
	assert.Equal(t, BadgeName, h.Name)
	assert.Equal(t, BadgeDescription, h.Description)
	assert.Equal(t, BadgeImageURL, h.KeyImageURL)
	assert.Equal(t, h, HackerFromFields(h.Fields()))
}

func TestComponentOpen(t *testing.T) {
	deadline := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	c := &Component{Deadline: deadline}

	assert.True(t, c.Open(time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)))
	assert.True(t, c.Open(deadline.Add(-time.Second)))
	assert.False(t, c.Open(deadline))
	assert.False(t, c.Open(deadline.Add(500*time.Millisecond)), "sub-second precision is dropped")
	assert.False(t, c.Open(deadline.Add(time.Hour)))
}

func TestComponentRolesDenyMetadataWrites(t *testing.T) {
	owner := domain.NewResourceAddress()
	c := &Component{OwnerBadge: owner}
	zone := authz.Zone{Proofs: []domain.ResourceAddress{owner}}

	assert.True(t, c.Owner().Check(zone))
	for _, role := range []authz.RoleKey{
		authz.RoleMetadataSetter,
		authz.RoleMetadataSetterUpdater,
		authz.RoleMetadataLocker,
		authz.RoleMetadataLockerUpdater,
	} {
		assert.False(t, c.Roles().Rule(role, c.Owner()).Check(zone), role)
	}
}
