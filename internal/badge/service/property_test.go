package service_test

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"badgeissuer/internal/badge/service"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
)

func TestDeadlineIsSevenDaysAfterSetup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sec := rapid.Int64Range(0, 1<<40).Draw(t, "setup_unix")
		now := time.Unix(sec, 0).UTC()

		deadline, err := service.DeadlineFor(now)
		if err != nil {
			t.Fatalf("unexpected overflow at %d: %v", sec, err)
		}
		if got := deadline.Unix() - sec; got != 604800 {
			t.Fatalf("deadline %d seconds after setup, want 604800", got)
		}
	})
}

func TestDeadlineOverflowIsRejected(t *testing.T) {
	latest := time.Unix(1<<63-1-62135596800-3600, 0)
	if _, err := service.DeadlineFor(latest); !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected setup overflow, got %v", err)
	}
}

// Claims after the deadline report the deadline whatever the team name.
func TestExpiredClaimsReportDeadlineFirst(t *testing.T) {
	f := newFixture(t)
	rapid.Check(t, func(t *rapid.T) {
		late := rapid.Int64Range(0, 10*365*24*3600).Draw(t, "seconds_late")
		team := rapid.StringN(0, 8, -1).Draw(t, "team")

		at := f.component.Deadline.Add(time.Duration(late) * time.Second)
		_, err := f.badges.GetHackathonBadge(claimAt(at, domain.NewAccountAddress()), f.component.Address, team)
		if !dErrors.HasCode(err, dErrors.CodeDeadlineExpired) {
			t.Fatalf("claim at %s with team %q: got %v", at, team, err)
		}
	})
}

// Inside the window a claim succeeds exactly when the team name is non-empty.
func TestOpenWindowClaims(t *testing.T) {
	f := newFixture(t)
	issued := make(map[domain.NonFungibleLocalID]struct{})
	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.Int64Range(0, 604799).Draw(t, "seconds_after_setup")
		team := rapid.StringN(0, 8, -1).Draw(t, "team")

		at := t0.Add(time.Duration(offset) * time.Second)
		badge, err := f.badges.GetHackathonBadge(claimAt(at, domain.NewAccountAddress()), f.component.Address, team)
		if team == "" {
			if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
				t.Fatalf("empty team at %s: got %v", at, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("claim at %s: %v", at, err)
		}
		if _, dup := issued[badge.LocalID]; dup {
			t.Fatalf("duplicate local id %s", badge.LocalID)
		}
		issued[badge.LocalID] = struct{}{}
	})

	supply, err := f.registry.TotalSupply(context.Background(), f.component.Resource)
	if err != nil {
		t.Fatal(err)
	}
	if supply != uint64(len(issued)) {
		t.Fatalf("supply %d, issued %d", supply, len(issued))
	}
}
