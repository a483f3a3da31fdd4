package handler

import (
	"time"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/internal/registry/models"
)

type ResourceResponse struct {
	Address       string                      `json:"address"`
	Owner         authz.AccessRule            `json:"owner"`
	Roles         map[string]authz.AccessRule `json:"roles"`
	MutableFields []string                    `json:"mutable_fields"`
	Metadata      metadata.Map                `json:"metadata"`
	TotalSupply   uint64                      `json:"total_supply"`
	CreatedAt     time.Time                   `json:"created_at"`
}

type NonFungibleResponse struct {
	Resource   string            `json:"resource"`
	LocalID    string            `json:"local_id"`
	Data       map[string]string `json:"data"`
	Holder     string            `json:"holder,omitempty"`
	MintedAt   time.Time         `json:"minted_at"`
	RecalledAt *time.Time        `json:"recalled_at,omitempty"`
}

type NonFungibleListResponse struct {
	NonFungibles []NonFungibleResponse `json:"non_fungibles"`
	Count        int                   `json:"count"`
}

func toResourceResponse(def *models.ResourceDefinition) ResourceResponse {
	roles := make(map[string]authz.AccessRule, len(def.Roles))
	for k, v := range def.Roles {
		roles[string(k)] = v
	}
	mutable := def.MutableFields
	if mutable == nil {
		mutable = []string{}
	}
	return ResourceResponse{
		Address:       def.Address.String(),
		Owner:         def.Owner,
		Roles:         roles,
		MutableFields: mutable,
		Metadata:      def.Metadata,
		TotalSupply:   def.TotalSupply,
		CreatedAt:     def.CreatedAt,
	}
}

// ToNonFungibleResponse shapes a record for the wire.
func ToNonFungibleResponse(nf *models.NonFungible) NonFungibleResponse {
	return NonFungibleResponse{
		Resource:   nf.Resource.String(),
		LocalID:    nf.LocalID.String(),
		Data:       nf.Data,
		Holder:     nf.Holder.String(),
		MintedAt:   nf.MintedAt,
		RecalledAt: nf.RecalledAt,
	}
}
