package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"badgeissuer/internal/address"
	"badgeissuer/internal/authz"
	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/badge/service"
	badgestore "badgeissuer/internal/badge/store"
	registryservice "badgeissuer/internal/registry/service"
	registrystore "badgeissuer/internal/registry/store"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/audit/publisher"
	auditmemory "badgeissuer/pkg/platform/audit/store/memory"
	"badgeissuer/pkg/requestcontext"
)

type fixture struct {
	registry   *registryservice.Manager
	badges     *service.Service
	auditStore *auditmemory.InMemoryStore
	owner      domain.ResourceAddress
	dappDef    domain.ComponentAddress
	component  *models.Component
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...publisher.Option) *fixture {
	t.Helper()
	allocator := address.NewAllocator()
	auditStore := auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(auditStore, opts...)
	t.Cleanup(pub.Close)

	registry := registryservice.New(registrystore.NewInMemory(), allocator,
		registryservice.WithAuditPublisher(pub))
	badges := service.New(badgestore.NewInMemory(), registry, allocator,
		service.WithAuditPublisher(pub))

	f := &fixture{
		registry:   registry,
		badges:     badges,
		auditStore: auditStore,
		owner:      domain.NewResourceAddress(),
		dappDef:    domain.NewComponentAddress(),
	}
	c, err := badges.Instantiate(requestcontext.WithTime(context.Background(), t0), f.owner, f.dappDef)
	require.NoError(t, err)
	f.component = c
	return f
}

func claimAt(at time.Time, caller domain.AccountAddress) context.Context {
	return requestcontext.WithTime(requestcontext.WithCaller(context.Background(), caller, nil), at)
}

func TestClaimWindow(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), f.component.Deadline)

	t.Run("last second before the deadline", func(t *testing.T) {
		caller := domain.NewAccountAddress()
		badge, err := f.badges.GetHackathonBadge(claimAt(time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC), caller),
			f.component.Address, "Alpha")
		require.NoError(t, err)

		hacker := models.HackerFromFields(badge.Data)
		assert.Equal(t, "Alpha", hacker.TeamName)
		assert.Equal(t, models.BadgeName, hacker.Name)
		assert.Equal(t, caller, badge.Holder)
		_, err = domain.ParseNonFungibleLocalID(badge.LocalID.String())
		assert.NoError(t, err)
	})

	t.Run("at the deadline", func(t *testing.T) {
		_, err := f.badges.GetHackathonBadge(claimAt(f.component.Deadline, domain.NewAccountAddress()),
			f.component.Address, "Alpha")
		require.ErrorIs(t, err, service.ErrDeadlineExpired)
		assert.Equal(t, "The hackathon has ended, you can no longer claim your badge", err.Error())
	})

	t.Run("empty team name inside the window", func(t *testing.T) {
		_, err := f.badges.GetHackathonBadge(claimAt(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), domain.NewAccountAddress()),
			f.component.Address, "")
		require.ErrorIs(t, err, service.ErrInvalidTeamName)
	})

	supply, err := f.registry.TotalSupply(context.Background(), f.component.Resource)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply, "failed claims mint nothing")
}

func TestSameTeamTwiceYieldsDistinctBadges(t *testing.T) {
	f := newFixture(t)
	caller := domain.NewAccountAddress()

	first, err := f.badges.GetHackathonBadge(claimAt(t0.Add(time.Hour), caller), f.component.Address, "Alpha")
	require.NoError(t, err)
	second, err := f.badges.GetHackathonBadge(claimAt(t0.Add(2*time.Hour), caller), f.component.Address, "Alpha")
	require.NoError(t, err)
	assert.NotEqual(t, first.LocalID, second.LocalID)
}

func TestAnonymousClaimInsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC))

	badge, err := f.badges.GetHackathonBadge(ctx, f.component.Address, "Alpha")
	require.NoError(t, err)
	assert.True(t, badge.Holder.IsNil())
	assert.Equal(t, "Alpha", models.HackerFromFields(badge.Data).TeamName)

	supply, err := f.registry.TotalSupply(ctx, f.component.Resource)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply)
}

func TestOnlyTheComponentCanMint(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), t0)
	data := models.NewHacker("Forged").Fields()

	zones := map[string]authz.Zone{
		"owner badge holder": {Caller: domain.NewAccountAddress().Global(), Proofs: []domain.ResourceAddress{f.owner}},
		"anonymous":          {},
		"other component":    authz.ComponentZone(domain.NewComponentAddress()),
	}
	for name, zone := range zones {
		t.Run(name, func(t *testing.T) {
			_, err := f.registry.Mint(ctx, zone, f.component.Resource, data, domain.NewAccountAddress())
			assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		})
	}

	supply, err := f.registry.TotalSupply(ctx, f.component.Resource)
	require.NoError(t, err)
	assert.Zero(t, supply)
}

func TestOwnerKeepsControlOfIssuedBadges(t *testing.T) {
	f := newFixture(t)
	badge, err := f.badges.GetHackathonBadge(claimAt(t0, domain.NewAccountAddress()), f.component.Address, "Alpha")
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), t0.Add(time.Hour))
	stranger := authz.Zone{Caller: domain.NewAccountAddress().Global()}
	owner := authz.Zone{Caller: domain.NewAccountAddress().Global(), Proofs: []domain.ResourceAddress{f.owner}}

	_, err = f.registry.Recall(ctx, stranger, f.component.Resource, badge.LocalID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	recalled, err := f.registry.Recall(ctx, owner, f.component.Resource, badge.LocalID)
	require.NoError(t, err)
	assert.True(t, recalled.Recalled())

	_, err = f.registry.SetRole(ctx, stranger, f.component.Resource, authz.RoleMinter, authz.AllowAll())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestComponentMetadataIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithCaller(context.Background(), domain.NewAccountAddress(), []domain.ResourceAddress{f.owner})

	err := f.badges.SetComponentMetadata(ctx, f.component.Address, "name", "Renamed")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	denied, err := f.auditStore.ListByAction(context.Background(), audit.EventComponentMetadataDenied)
	require.NoError(t, err)
	assert.Len(t, denied, 1)
}

func TestConcurrentClaimsGetUniqueBadges(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	f := newFixture(t, publisher.WithAsyncBuffer(512))
	const claims = 64

	var wg sync.WaitGroup
	ids := make(chan domain.NonFungibleLocalID, claims)
	errs := make(chan error, claims)
	for i := 0; i < claims; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			badge, err := f.badges.GetHackathonBadge(claimAt(t0.Add(time.Minute), domain.NewAccountAddress()),
				f.component.Address, "Team")
			if err != nil {
				errs <- err
				return
			}
			ids <- badge.LocalID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("claim failed: %v", err)
	}
	seen := make(map[domain.NonFungibleLocalID]struct{}, claims)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate local id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, claims)

	view, err := f.badges.GetComponent(requestcontext.WithTime(context.Background(), t0), f.component.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(claims), view.Issued)
}
