package handler

import (
	"strings"

	"badgeissuer/internal/authz"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
)

type MintRequest struct {
	Data   map[string]string `json:"data"`
	Holder string            `json:"holder,omitempty"`

	holder domain.AccountAddress
}

func (r *MintRequest) Validate() error {
	r.Holder = strings.TrimSpace(r.Holder)
	if r.Holder == "" {
		return nil
	}
	holder, err := domain.ParseAccountAddress(r.Holder)
	if err != nil {
		return err
	}
	r.holder = holder
	return nil
}

type UpdateDataRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (r *UpdateDataRequest) Validate() error {
	r.Field = strings.TrimSpace(r.Field)
	if r.Field == "" {
		return dErrors.New(dErrors.CodeValidation, "field is required")
	}
	return nil
}

type SetRoleRequest struct {
	Rule authz.AccessRule `json:"rule"`
}

func (r *SetRoleRequest) Validate() error {
	return r.Rule.Validate()
}

type SetMetadataRequest struct {
	Value string `json:"value"`
}

func (r *SetMetadataRequest) Validate() error {
	return nil
}
