package store_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/internal/registry/models"
	"badgeissuer/internal/registry/store"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/sentinel"
)

// storeSuite holds behaviour every backend must share. Backend suites embed
// it and set newStore.
type storeSuite struct {
	suite.Suite
	newStore func() store.Store
	store    store.Store
}

func (s *storeSuite) SetupTest() {
	s.store = s.newStore()
}

func newResource() *models.ResourceDefinition {
	owner := domain.NewResourceAddress()
	return &models.ResourceDefinition{
		Address: domain.NewResourceAddress(),
		Owner:   authz.Require(owner),
		Roles: authz.Roles{
			authz.RoleMinter:   authz.RequireGlobalCaller(domain.NewComponentAddress().Global()),
			authz.RoleRecaller: authz.Require(owner),
		},
		MutableFields: []string{"level"},
		Metadata:      metadata.FromValues(map[string]string{metadata.KeyName: "Badges"}),
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newRecord(res domain.ResourceAddress, mintedAt time.Time) *models.NonFungible {
	return &models.NonFungible{
		Resource: res,
		LocalID:  domain.NewRUID(),
		Data:     map[string]string{"team_name": "Alpha"},
		Holder:   domain.NewAccountAddress(),
		MintedAt: mintedAt,
	}
}

func (s *storeSuite) TestCreateAndGetResource() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))

	got, err := s.store.GetResource(ctx, def.Address)
	s.Require().NoError(err)
	s.Equal(def.Address, got.Address)
	s.Equal(def.Owner, got.Owner)
	s.Equal(def.Roles, got.Roles)
	s.Equal(def.MutableFields, got.MutableFields)
	s.Equal(def.Metadata, got.Metadata)
	s.Zero(got.TotalSupply)
	s.True(def.CreatedAt.Equal(got.CreatedAt))
}

func (s *storeSuite) TestCreateResourceTwiceConflicts() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))
	err := s.store.CreateResource(ctx, def)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *storeSuite) TestGetUnknownResource() {
	_, err := s.store.GetResource(context.Background(), domain.NewResourceAddress())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeSuite) TestInsertIncrementsSupply() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))

	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	first := newRecord(def.Address, base)
	second := newRecord(def.Address, base.Add(time.Second))
	s.Require().NoError(s.store.InsertNonFungible(ctx, first))
	s.Require().NoError(s.store.InsertNonFungible(ctx, second))

	got, err := s.store.GetResource(ctx, def.Address)
	s.Require().NoError(err)
	s.Equal(uint64(2), got.TotalSupply)

	list, err := s.store.ListNonFungibles(ctx, def.Address)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.LocalID, list[0].LocalID)
	s.Equal(second.LocalID, list[1].LocalID)
	s.Equal("Alpha", list[0].Data["team_name"])
}

func (s *storeSuite) TestDuplicateLocalIDLeavesSupplyUnchanged() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))

	nf := newRecord(def.Address, time.Now().UTC())
	s.Require().NoError(s.store.InsertNonFungible(ctx, nf))
	err := s.store.InsertNonFungible(ctx, nf)
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.GetResource(ctx, def.Address)
	s.Require().NoError(err)
	s.Equal(uint64(1), got.TotalSupply)
}

func (s *storeSuite) TestInsertIntoUnknownResource() {
	err := s.store.InsertNonFungible(context.Background(), newRecord(domain.NewResourceAddress(), time.Now()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeSuite) TestGetNonFungibles() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))
	nf := newRecord(def.Address, time.Now().UTC())
	s.Require().NoError(s.store.InsertNonFungible(ctx, nf))

	got, err := s.store.GetNonFungibles(ctx, def.Address, []domain.NonFungibleLocalID{nf.LocalID, domain.NewRUID()})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(nf.Holder, got[0].Holder)

	_, err = s.store.GetNonFungible(ctx, def.Address, domain.NewRUID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeSuite) TestUpdateNonFungible() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))
	nf := newRecord(def.Address, time.Now().UTC())
	s.Require().NoError(s.store.InsertNonFungible(ctx, nf))

	recalledAt := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	updated, err := s.store.UpdateNonFungible(ctx, def.Address, nf.LocalID, func(n *models.NonFungible) error {
		n.Holder = ""
		n.RecalledAt = &recalledAt
		n.LocalID = domain.NewRUID()
		return nil
	})
	s.Require().NoError(err)
	s.Equal(nf.LocalID, updated.LocalID)
	s.True(updated.Recalled())

	got, err := s.store.GetNonFungible(ctx, def.Address, nf.LocalID)
	s.Require().NoError(err)
	s.True(got.Recalled())
	s.True(got.Holder.IsNil())
}

func (s *storeSuite) TestUpdateNonFungibleCallbackErrorIsNotPersisted() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))
	nf := newRecord(def.Address, time.Now().UTC())
	s.Require().NoError(s.store.InsertNonFungible(ctx, nf))

	_, err := s.store.UpdateNonFungible(ctx, def.Address, nf.LocalID, func(n *models.NonFungible) error {
		n.Data["team_name"] = "Beta"
		return dErrors.New(dErrors.CodeInvalidState, "no")
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	got, err := s.store.GetNonFungible(ctx, def.Address, nf.LocalID)
	s.Require().NoError(err)
	s.Equal("Alpha", got.Data["team_name"])
}

func (s *storeSuite) TestUpdateResourceKeepsSupply() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))
	s.Require().NoError(s.store.InsertNonFungible(ctx, newRecord(def.Address, time.Now().UTC())))

	updated, err := s.store.UpdateResource(ctx, def.Address, func(d *models.ResourceDefinition) error {
		d.TotalSupply = 99
		d.Roles[authz.RoleMinter] = authz.DenyAll()
		return d.Metadata.Set(metadata.KeySymbol, "BDG")
	})
	s.Require().NoError(err)
	s.Equal(uint64(1), updated.TotalSupply)

	got, err := s.store.GetResource(ctx, def.Address)
	s.Require().NoError(err)
	s.Equal(uint64(1), got.TotalSupply)
	s.Equal(authz.DenyAll(), got.Roles[authz.RoleMinter])
	symbol, ok := got.Metadata.Get(metadata.KeySymbol)
	s.True(ok)
	s.Equal("BDG", symbol)
}

func (s *storeSuite) TestConcurrentInsertsCountExactly() {
	ctx := context.Background()
	def := newResource()
	s.Require().NoError(s.store.CreateResource(ctx, def))

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.InsertNonFungible(ctx, newRecord(def.Address, time.Now().UTC()))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.GetResource(ctx, def.Address)
	s.Require().NoError(err)
	s.Equal(uint64(workers), got.TotalSupply)
	list, err := s.store.ListNonFungibles(ctx, def.Address)
	s.Require().NoError(err)
	s.Len(list, workers)
}
