//go:build integration

package record_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"member-vault/internal/record"
	"member-vault/pkg/platform/sentinel"
	"member-vault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *record.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())

	schema := record.NewSchema()
	schema.Relate("profile", "user", "user")
	schema.Relate("person", "profile", "profile")

	s.store = record.NewPostgres(s.postgres.DB, schema)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "records"))
}

func (s *PostgresStoreSuite) seedChain(address string) (userID, profileID int64) {
	user, err := s.store.Create(s.ctx, "user", map[string]any{"email": address}, record.StatusPublished)
	s.Require().NoError(err)
	prof, err := s.store.Create(s.ctx, "profile", map[string]any{"user": user.ID}, record.StatusPublished)
	s.Require().NoError(err)
	return user.ID, prof.ID
}

func (s *PostgresStoreSuite) TestCreateAndFindByBothRefs() {
	created, err := s.store.Create(s.ctx, "person",
		map[string]any{"firstName": "Jane"}, record.StatusPublished)
	s.Require().NoError(err)
	s.NotZero(created.ID)
	s.NotEmpty(created.DocumentID)

	byID, err := s.store.FindOne(s.ctx, "person", record.ByID(created.ID), record.Options{})
	s.Require().NoError(err)
	s.Equal("Jane", byID.Fields["firstName"])

	byDoc, err := s.store.FindOne(s.ctx, "person", record.ByDocument(created.DocumentID), record.Options{})
	s.Require().NoError(err)
	s.Equal(created.ID, byDoc.ID)
}

func (s *PostgresStoreSuite) TestFindOneMissing() {
	_, err := s.store.FindOne(s.ctx, "person", record.ByID(12345), record.Options{})
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestUpdateMergesJSONB() {
	created, err := s.store.Create(s.ctx, "person",
		map[string]any{"firstName": "Jane", "lastName": "Doe"}, record.StatusPublished)
	s.Require().NoError(err)

	updated, err := s.store.Update(s.ctx, "person", record.ByID(created.ID),
		map[string]any{"firstName": "Janet"})
	s.Require().NoError(err)
	s.Equal("Janet", updated.Fields["firstName"])
	s.Equal("Doe", updated.Fields["lastName"])
}

func (s *PostgresStoreSuite) TestFoldFilterMatchesCaseInsensitively() {
	_, err := s.store.Create(s.ctx, "user",
		map[string]any{"email": "jane.doe@example.com"}, record.StatusPublished)
	s.Require().NoError(err)

	recs, err := s.store.FindAll(s.ctx, "user", record.Options{
		Filters: map[string]any{"email": record.Fold("Jane.Doe@EXAMPLE.com")},
	})
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *PostgresStoreSuite) TestOneHopRelationFilter() {
	userID, profileID := s.seedChain("jane.doe@example.com")
	otherUser, otherProfile := s.seedChain("rival@example.com")

	mine, err := s.store.Create(s.ctx, "person",
		map[string]any{"firstName": "Jane", "profile": profileID}, record.StatusPublished)
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, "person",
		map[string]any{"firstName": "Riva", "profile": otherProfile}, record.StatusPublished)
	s.Require().NoError(err)

	recs, err := s.store.FindAll(s.ctx, "person", record.Options{
		Filters: map[string]any{"profile.user": userID},
	})
	s.Require().NoError(err)
	s.Require().Len(recs, 1)
	s.Equal(mine.ID, recs[0].ID)

	recs, err = s.store.FindAll(s.ctx, "person", record.Options{
		Filters: map[string]any{"profile.user": otherUser},
	})
	s.Require().NoError(err)
	s.Require().Len(recs, 1)
	s.Equal("Riva", recs[0].Fields["firstName"])
}

func (s *PostgresStoreSuite) TestPopulateTwoLevels() {
	userID, profileID := s.seedChain("jane.doe@example.com")

	created, err := s.store.Create(s.ctx, "person",
		map[string]any{"firstName": "Jane", "profile": profileID}, record.StatusPublished)
	s.Require().NoError(err)

	rec, err := s.store.FindOne(s.ctx, "person", record.ByID(created.ID),
		record.Options{Populate: []string{"profile.user"}})
	s.Require().NoError(err)

	prof, ok := rec.Fields["profile"].(map[string]any)
	s.Require().True(ok, "profile should be embedded")
	user, ok := prof["user"].(map[string]any)
	s.Require().True(ok, "user should be embedded")
	s.EqualValues(userID, user["id"])
}

func (s *PostgresStoreSuite) TestFindManyPagination() {
	for _, name := range []string{"Ana", "Ben", "Cal"} {
		_, err := s.store.Create(s.ctx, "emergency-contact",
			map[string]any{"name": name}, record.StatusPublished)
		s.Require().NoError(err)
	}

	page, err := s.store.FindMany(s.ctx, "emergency-contact",
		record.Options{Limit: 2, Start: 0})
	s.Require().NoError(err)
	s.Len(page.Results, 2)
	s.Equal(3, page.Pagination.Total)

	page, err = s.store.FindMany(s.ctx, "emergency-contact",
		record.Options{Limit: 2, Start: 2})
	s.Require().NoError(err)
	s.Len(page.Results, 1)
}

func (s *PostgresStoreSuite) TestDelete() {
	created, err := s.store.Create(s.ctx, "emergency-contact",
		map[string]any{"name": "Ana"}, record.StatusPublished)
	s.Require().NoError(err)

	deleted, err := s.store.Delete(s.ctx, "emergency-contact", record.ByID(created.ID))
	s.Require().NoError(err)
	s.Equal("Ana", deleted.Fields["name"])

	_, err = s.store.Delete(s.ctx, "emergency-contact", record.ByID(created.ID))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestWithinTxRollsBackOnError() {
	a, err := s.store.Create(s.ctx, "emergency-contact",
		map[string]any{"name": "Ana"}, record.StatusPublished)
	s.Require().NoError(err)

	err = s.store.WithinTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.store.Delete(ctx, "emergency-contact", record.ByID(a.ID)); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Require().Error(err)

	// The delete inside the failed transaction must not stick.
	_, err = s.store.FindOne(s.ctx, "emergency-contact", record.ByID(a.ID), record.Options{})
	s.NoError(err)
}
