package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore/postgres"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/tests/testhelpers"
	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	db    *testhelpers.TestDatabase
	store *postgres.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.db = testhelpers.SetupTestDatabase(s.T())
	s.store = s.db.Store
}

func (s *StoreSuite) SetupTest() {
	s.db.CleanTables(s.T())
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "transactions", "does-not-exist")

	s.True(errors.Is(err, docstore.ErrNotFound))
}

func (s *StoreSuite) TestSetUpserts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "transactions", "a", docstore.Document{"status": "pending"}))
	s.Require().NoError(s.store.Set(ctx, "transactions", "a", docstore.Document{"status": "approved", "amount": "14.97"}))

	doc, err := s.store.Get(ctx, "transactions", "a")

	s.Require().NoError(err)
	s.Equal("approved", doc["status"])
	s.Equal("14.97", doc["amount"])
}

func (s *StoreSuite) TestQuery() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "tx", "1", docstore.Document{"status": "pending", "siteId": "s1", "createdAt": "2024-01-02"}))
	s.Require().NoError(s.store.Set(ctx, "tx", "2", docstore.Document{"status": "approved", "siteId": "s1", "createdAt": "2024-01-01"}))
	s.Require().NoError(s.store.Set(ctx, "tx", "3", docstore.Document{"status": "pending", "siteId": "s2", "createdAt": "2024-01-03"}))
	s.Require().NoError(s.store.Set(ctx, "other", "4", docstore.Document{"status": "pending"}))

	got, err := s.store.Query(ctx, "tx", docstore.Query{
		Filters:    []docstore.Filter{{Field: "status", Value: "pending"}},
		OrderBy:    "createdAt",
		Descending: true,
	})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("3", got[0].ID)
	s.Equal("1", got[1].ID)

	page, err := s.store.Query(ctx, "tx", docstore.Query{
		Filters: []docstore.Filter{{Field: "siteId", Value: "s1"}},
		OrderBy: "createdAt",
		Limit:   1,
		Offset:  1,
	})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("1", page[0].ID)
}

func (s *StoreSuite) TestSetIf() {
	ctx := context.Background()
	expectPending := docstore.Filter{Field: "status", Value: "pending"}

	err := s.store.SetIf(ctx, "transactions", "a", docstore.Document{"status": "aborted"}, expectPending)
	s.True(errors.Is(err, docstore.ErrPreconditionFailed))

	s.Require().NoError(s.store.Set(ctx, "transactions", "a", docstore.Document{"status": "pending"}))
	s.Require().NoError(s.store.SetIf(ctx, "transactions", "a", docstore.Document{"status": "approved"}, expectPending))

	err = s.store.SetIf(ctx, "transactions", "a", docstore.Document{"status": "aborted"}, expectPending)
	s.True(errors.Is(err, docstore.ErrPreconditionFailed))

	doc, err := s.store.Get(ctx, "transactions", "a")
	s.Require().NoError(err)
	s.Equal("approved", doc["status"])
}

func (s *StoreSuite) TestEnsureSchemaIsRepeatable() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "transactions", "a", docstore.Document{"status": "pending"}))

	s.Require().NoError(s.store.EnsureSchema(ctx))

	doc, err := s.store.Get(ctx, "transactions", "a")
	s.Require().NoError(err)
	s.Equal("pending", doc["status"])
}
