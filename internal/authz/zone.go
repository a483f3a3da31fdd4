package authz

import (
	"context"
	"slices"

	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/requestcontext"
)

// Zone is what an access rule is checked against: who is calling and which
// resources they proved they hold.
type Zone struct {
	Caller domain.GlobalAddress
	Proofs []domain.ResourceAddress
}

// HasProof reports whether the zone holds a proof of resource.
func (z Zone) HasProof(resource domain.ResourceAddress) bool {
	if resource.IsNil() {
		return false
	}
	return slices.Contains(z.Proofs, resource)
}

// ComponentZone is the zone of a component calling on its own behalf. It
// carries no proofs.
func ComponentZone(component domain.ComponentAddress) Zone {
	return Zone{Caller: component.Global()}
}

// ZoneFromContext builds the zone of an external caller from the request
// context. Anonymous requests yield an empty zone.
func ZoneFromContext(ctx context.Context) Zone {
	var caller domain.GlobalAddress
	if acct := requestcontext.Caller(ctx); !acct.IsNil() {
		caller = acct.Global()
	}
	return Zone{Caller: caller, Proofs: requestcontext.Proofs(ctx)}
}
