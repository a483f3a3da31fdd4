package handler

import (
	"time"

	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/badge/service"
	"badgeissuer/internal/metadata"
	registryhandler "badgeissuer/internal/registry/handler"
	registrymodels "badgeissuer/internal/registry/models"
)

type ComponentResponse struct {
	Address        string       `json:"address"`
	Resource       string       `json:"resource"`
	OwnerBadge     string       `json:"owner_badge"`
	DappDefinition string       `json:"dapp_definition"`
	Deadline       time.Time    `json:"deadline"`
	Metadata       metadata.Map `json:"metadata"`
	CreatedAt      time.Time    `json:"created_at"`
	Issued         *uint64      `json:"issued,omitempty"`
	Open           *bool        `json:"open,omitempty"`
}

type ComponentListResponse struct {
	Components []ComponentResponse `json:"components"`
	Count      int                 `json:"count"`
}

type BadgeResponse struct {
	Component string                              `json:"component"`
	TeamName  string                              `json:"team_name"`
	Badge     registryhandler.NonFungibleResponse `json:"badge"`
}

func toComponentResponse(c *models.Component) ComponentResponse {
	return ComponentResponse{
		Address:        c.Address.String(),
		Resource:       c.Resource.String(),
		OwnerBadge:     c.OwnerBadge.String(),
		DappDefinition: c.DappDefinition.String(),
		Deadline:       c.Deadline,
		Metadata:       c.Metadata,
		CreatedAt:      c.CreatedAt,
	}
}

func toComponentViewResponse(v *service.ComponentView) ComponentResponse {
	resp := toComponentResponse(v.Component)
	issued, open := v.Issued, v.Open
	resp.Issued = &issued
	resp.Open = &open
	return resp
}

func toBadgeResponse(c string, nf *registrymodels.NonFungible) BadgeResponse {
	return BadgeResponse{
		Component: c,
		TeamName:  models.HackerFromFields(nf.Data).TeamName,
		Badge:     registryhandler.ToNonFungibleResponse(nf),
	}
}
