package store_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/badge/store"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
)

type storeSuite struct {
	suite.Suite
	newStore func() store.Store
	store    store.Store
}

func (s *storeSuite) SetupTest() {
	s.store = s.newStore()
}

func newComponent(createdAt time.Time) *models.Component {
	dappDef := domain.NewComponentAddress()
	return &models.Component{
		Address:        domain.NewComponentAddress(),
		Resource:       domain.NewResourceAddress(),
		OwnerBadge:     domain.NewResourceAddress(),
		DappDefinition: dappDef,
		Deadline:       createdAt.Add(models.ClaimWindow),
		Metadata:       models.ComponentMetadata(dappDef),
		CreatedAt:      createdAt,
	}
}

func (s *storeSuite) TestCreateAndGet() {
	ctx := context.Background()
	c := newComponent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(s.store.Create(ctx, c))

	got, err := s.store.Get(ctx, c.Address)
	s.Require().NoError(err)
	s.Equal(c.Address, got.Address)
	s.Equal(c.Resource, got.Resource)
	s.Equal(c.OwnerBadge, got.OwnerBadge)
	s.Equal(c.DappDefinition, got.DappDefinition)
	s.True(c.Deadline.Equal(got.Deadline))
	s.True(c.CreatedAt.Equal(got.CreatedAt))
	s.Equal(c.Metadata, got.Metadata)
}

func (s *storeSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), domain.NewComponentAddress())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeSuite) TestPublishTwiceConflicts() {
	ctx := context.Background()
	c := newComponent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(s.store.Create(ctx, c))
	s.ErrorIs(s.store.Create(ctx, c), sentinel.ErrConflict)
}

func (s *storeSuite) TestResourceBindsToOneComponent() {
	ctx := context.Background()
	first := newComponent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(s.store.Create(ctx, first))

	second := newComponent(first.CreatedAt)
	second.Resource = first.Resource
	s.ErrorIs(s.store.Create(ctx, second), sentinel.ErrConflict)
}

func (s *storeSuite) TestListOrdersByCreation() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := newComponent(base.Add(time.Hour))
	earlier := newComponent(base)
	s.Require().NoError(s.store.Create(ctx, later))
	s.Require().NoError(s.store.Create(ctx, earlier))

	list, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(earlier.Address, list[0].Address)
	s.Equal(later.Address, list[1].Address)
}
