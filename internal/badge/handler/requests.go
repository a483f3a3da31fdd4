package handler

import (
	"strings"

	"badgeissuer/pkg/domain"
)

type InstantiateRequest struct {
	OwnerBadge     string `json:"owner_badge"`
	DappDefinition string `json:"dapp_definition"`

	ownerBadge     domain.ResourceAddress
	dappDefinition domain.ComponentAddress
}

func (r *InstantiateRequest) Validate() error {
	owner, err := domain.ParseResourceAddress(strings.TrimSpace(r.OwnerBadge))
	if err != nil {
		return err
	}
	dapp, err := domain.ParseComponentAddress(strings.TrimSpace(r.DappDefinition))
	if err != nil {
		return err
	}
	r.ownerBadge, r.dappDefinition = owner, dapp
	return nil
}

// IssueBadgeRequest carries the team name as given. Length is checked by
// the component after the claim window.
type IssueBadgeRequest struct {
	TeamName string `json:"team_name"`
}

func (r *IssueBadgeRequest) Validate() error {
	return nil
}

type SetMetadataRequest struct {
	Value string `json:"value"`
}

func (r *SetMetadataRequest) Validate() error {
	return nil
}
