package store_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"badgeissuer/internal/registry/store"
)

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &storeSuite{newStore: func() store.Store { return store.NewInMemory() }})
}
