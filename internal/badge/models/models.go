// Package models holds the issuance component and the badge it mints.
package models

import (
	"time"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/pkg/domain"
)

// Fixed badge content. Only the team name varies between badges.
const (
	BadgeName        = "Radix x EBC Hackathon 2024"
	BadgeDescription = "Proof of attendance for participating in the Radix x EBC Hackathon 2024"
	BadgeImageURL    = "https://dhnz2uhkq5om47mfpp3sxssguzwjgrr32j2b26erdhkunava4kuq.arweave.net/GdudUOqHXM59hXv3K8pGpmyTRjvSdB14kRnVRoKg4qk"
)

// Resource and component metadata written at instantiation.
const (
	ResourceSymbol       = "HACK2024"
	ResourceInfoURL      = "https://www.radixdlt.com/"
	IconURL              = "https://cdn.prod.website-files.com/6053f7fca5bf627283b582c2/6266da24f1cf78c68fb0c215_Radix-Icon-Transparent-400x400.png"
	ComponentName        = "Hackathon Radix x EBC 2024"
	ComponentDescription = "A POA for the Radix x EBC Hackathon 2024"
)

// ClaimWindow is how long after instantiation badges can be claimed.
const ClaimWindow = 7 * 24 * time.Hour

// Badge record field names.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldTeamName    = "team_name"
	FieldImageURL    = "key_image_url"
)

// Hacker is the data carried by one attendance badge.
type Hacker struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TeamName    string `json:"team_name"`
	KeyImageURL string `json:"key_image_url"`
}

// NewHacker fills the fixed fields around teamName.
func NewHacker(teamName string) Hacker {
	return Hacker{
		Name:        BadgeName,
		Description: BadgeDescription,
		TeamName:    teamName,
		KeyImageURL: BadgeImageURL,
	}
}

// Fields flattens the badge into registry record data.
func (h Hacker) Fields() map[string]string {
	return map[string]string{
		FieldName:        h.Name,
		FieldDescription: h.Description,
		FieldTeamName:    h.TeamName,
		FieldImageURL:    h.KeyImageURL,
	}
}

// HackerFromFields reads a badge back from record data.
func HackerFromFields(fields map[string]string) Hacker {
	return Hacker{
		Name:        fields[FieldName],
		Description: fields[FieldDescription],
		TeamName:    fields[FieldTeamName],
		KeyImageURL: fields[FieldImageURL],
	}
}

// Component is a published issuance component. Every field is fixed at
// instantiation.
type Component struct {
	Address        domain.ComponentAddress
	Resource       domain.ResourceAddress
	OwnerBadge     domain.ResourceAddress
	DappDefinition domain.ComponentAddress
	Deadline       time.Time
	Metadata       metadata.Map
	CreatedAt      time.Time
}

// Owner is the component's owner rule.
func (c *Component) Owner() authz.AccessRule {
	return authz.Require(c.OwnerBadge)
}

// Roles are the component's own roles. Nobody may touch its metadata.
func (c *Component) Roles() authz.Roles {
	return authz.Roles{
		authz.RoleMetadataSetter:        authz.DenyAll(),
		authz.RoleMetadataSetterUpdater: authz.DenyAll(),
		authz.RoleMetadataLocker:        authz.DenyAll(),
		authz.RoleMetadataLockerUpdater: authz.DenyAll(),
	}
}

// Open reports whether badges can still be claimed at now. The deadline
// itself is already closed.
func (c *Component) Open(now time.Time) bool {
	return now.Truncate(time.Second).Before(c.Deadline)
}

// Clone returns a deep copy.
func (c *Component) Clone() *Component {
	out := *c
	out.Metadata = c.Metadata.Clone()
	return &out
}

// ComponentMetadata is the metadata a component is published with.
func ComponentMetadata(dappDef domain.ComponentAddress) metadata.Map {
	return metadata.FromValues(map[string]string{
		metadata.KeyName:           ComponentName,
		metadata.KeyDescription:    ComponentDescription,
		metadata.KeyDappDefinition: dappDef.String(),
		metadata.KeyIconURL:        IconURL,
	})
}

// ResourceMetadata is the metadata the badge resource is created with.
func ResourceMetadata() metadata.Map {
	return metadata.FromValues(map[string]string{
		metadata.KeyName:    BadgeName,
		metadata.KeySymbol:  ResourceSymbol,
		metadata.KeyInfoURL: ResourceInfoURL,
		metadata.KeyIconURL: IconURL,
	})
}
