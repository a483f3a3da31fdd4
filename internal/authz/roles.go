package authz

import (
	"strings"

	dErrors "badgeissuer/pkg/domain-errors"
)

// RoleKey names a role on a resource or component.
type RoleKey string

const (
	RoleMinter                        RoleKey = "minter"
	RoleMinterUpdater                 RoleKey = "minter_updater"
	RoleNonFungibleDataUpdater        RoleKey = "non_fungible_data_updater"
	RoleNonFungibleDataUpdaterUpdater RoleKey = "non_fungible_data_updater_updater"
	RoleRecaller                      RoleKey = "recaller"
	RoleRecallerUpdater               RoleKey = "recaller_updater"
	RoleMetadataSetter                RoleKey = "metadata_setter"
	RoleMetadataSetterUpdater         RoleKey = "metadata_setter_updater"
	RoleMetadataLocker                RoleKey = "metadata_locker"
	RoleMetadataLockerUpdater         RoleKey = "metadata_locker_updater"
)

// updaters maps each role to the role allowed to change it. Updater roles
// map to "" and are changed by the owner.
var updaters = map[RoleKey]RoleKey{
	RoleMinter:                        RoleMinterUpdater,
	RoleMinterUpdater:                 "",
	RoleNonFungibleDataUpdater:        RoleNonFungibleDataUpdaterUpdater,
	RoleNonFungibleDataUpdaterUpdater: "",
	RoleRecaller:                      RoleRecallerUpdater,
	RoleRecallerUpdater:               "",
	RoleMetadataSetter:                RoleMetadataSetterUpdater,
	RoleMetadataSetterUpdater:         "",
	RoleMetadataLocker:                RoleMetadataLockerUpdater,
	RoleMetadataLockerUpdater:         "",
}

// ParseRoleKey validates a role name from external input.
func ParseRoleKey(s string) (RoleKey, error) {
	key := RoleKey(strings.TrimSpace(s))
	if _, ok := updaters[key]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown role "+s)
	}
	return key, nil
}

// Updater returns the role allowed to change k, or "" when the owner
// changes it.
func (k RoleKey) Updater() RoleKey {
	return updaters[k]
}

// IsUpdater reports whether the role guards changes to another role.
func (k RoleKey) IsUpdater() bool {
	updater, ok := updaters[k]
	return ok && updater == ""
}

func (k RoleKey) isMetadataRole() bool {
	return strings.HasPrefix(string(k), "metadata_")
}

// Roles maps role keys to rules. Missing metadata roles fall back to the
// owner rule; every other missing role denies.
type Roles map[RoleKey]AccessRule

// Rule resolves the effective rule for key. The empty key is the owner.
func (r Roles) Rule(key RoleKey, owner AccessRule) AccessRule {
	if key == "" {
		return owner
	}
	if rule, ok := r[key]; ok {
		return rule
	}
	if key.isMetadataRole() {
		return owner
	}
	return DenyAll()
}

// Clone returns an independent copy.
func (r Roles) Clone() Roles {
	out := make(Roles, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Authorize returns a forbidden error naming action when rule rejects zone.
func Authorize(zone Zone, rule AccessRule, action string) error {
	if rule.Check(zone) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "not authorized to "+action)
}
