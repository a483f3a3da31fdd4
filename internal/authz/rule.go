// Package authz evaluates access rules against the proofs and caller
// identity present in an auth zone.
//
// Rules are plain data so they can be stored next to the resources they
// protect and round-tripped through JSON.
package authz

import (
	"fmt"
	"strings"

	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
)

// RuleKind names a node in an access rule tree.
type RuleKind string

const (
	KindAllowAll            RuleKind = "allow_all"
	KindDenyAll             RuleKind = "deny_all"
	KindRequireResource     RuleKind = "require_resource"
	KindRequireGlobalCaller RuleKind = "require_global_caller"
	KindAnyOf               RuleKind = "any_of"
	KindAllOf               RuleKind = "all_of"
)

// maxRuleDepth bounds nesting of rules accepted from external input.
const maxRuleDepth = 8

// AccessRule is a node in a rule tree.
type AccessRule struct {
	Kind     RuleKind               `json:"kind"`
	Resource domain.ResourceAddress `json:"resource,omitempty"`
	Caller   domain.GlobalAddress   `json:"caller,omitempty"`
	Rules    []AccessRule           `json:"rules,omitempty"`
}

func AllowAll() AccessRule { return AccessRule{Kind: KindAllowAll} }

func DenyAll() AccessRule { return AccessRule{Kind: KindDenyAll} }

// Require passes when the zone holds a proof of resource.
func Require(resource domain.ResourceAddress) AccessRule {
	return AccessRule{Kind: KindRequireResource, Resource: resource}
}

// RequireGlobalCaller passes only when the immediate caller is the given
// global entity.
func RequireGlobalCaller(caller domain.GlobalAddress) AccessRule {
	return AccessRule{Kind: KindRequireGlobalCaller, Caller: caller}
}

// AnyOf passes when at least one child passes. An empty AnyOf denies.
func AnyOf(rules ...AccessRule) AccessRule {
	return AccessRule{Kind: KindAnyOf, Rules: rules}
}

// AllOf passes when every child passes. An empty AllOf allows.
func AllOf(rules ...AccessRule) AccessRule {
	return AccessRule{Kind: KindAllOf, Rules: rules}
}

// Check evaluates the rule against zone. Unknown kinds deny.
func (r AccessRule) Check(zone Zone) bool {
	switch r.Kind {
	case KindAllowAll:
		return true
	case KindRequireResource:
		return zone.HasProof(r.Resource)
	case KindRequireGlobalCaller:
		return !r.Caller.IsNil() && zone.Caller == r.Caller
	case KindAnyOf:
		for _, child := range r.Rules {
			if child.Check(zone) {
				return true
			}
		}
		return false
	case KindAllOf:
		for _, child := range r.Rules {
			if !child.Check(zone) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Validate rejects malformed trees received from outside the process.
func (r AccessRule) Validate() error {
	return r.validate(0)
}

func (r AccessRule) validate(depth int) error {
	if depth > maxRuleDepth {
		return dErrors.New(dErrors.CodeValidation, "access rule nested too deeply")
	}
	switch r.Kind {
	case KindAllowAll, KindDenyAll:
		return nil
	case KindRequireResource:
		if _, err := domain.ParseResourceAddress(r.Resource.String()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "require_resource needs a resource address")
		}
		return nil
	case KindRequireGlobalCaller:
		if _, err := domain.ParseGlobalAddress(r.Caller.String()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "require_global_caller needs a global address")
		}
		return nil
	case KindAnyOf, KindAllOf:
		for _, child := range r.Rules {
			if err := child.validate(depth + 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown access rule kind %q", r.Kind))
	}
}

// String renders the rule in the familiar rule!(...) shape for logs.
func (r AccessRule) String() string {
	switch r.Kind {
	case KindRequireResource:
		return "require(" + r.Resource.String() + ")"
	case KindRequireGlobalCaller:
		return "require(global_caller(" + r.Caller.String() + "))"
	case KindAnyOf, KindAllOf:
		parts := make([]string, len(r.Rules))
		for i, child := range r.Rules {
			parts[i] = child.String()
		}
		return string(r.Kind) + "(" + strings.Join(parts, ", ") + ")"
	default:
		return string(r.Kind)
	}
}
