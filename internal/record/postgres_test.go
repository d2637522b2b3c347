package record

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// FilterClauseSuite exercises the SQL building in isolation: no database is
// needed to assert what can and cannot reach the WHERE clause.
type FilterClauseSuite struct {
	suite.Suite
	store *Postgres
}

func (s *FilterClauseSuite) SetupTest() {
	schema := NewSchema()
	schema.Relate("profile", "user", "user")
	schema.Relate("emergency-contact", "profile", "profile")
	s.store = NewPostgres(nil, schema)
}

func TestFilterClauseSuite(t *testing.T) {
	suite.Run(t, new(FilterClauseSuite))
}

func (s *FilterClauseSuite) TestFieldFilterIsParameterized() {
	where, args, err := s.store.filterClause("emergency-contact", map[string]any{"name": "Ana"})
	s.Require().NoError(err)
	s.Equal(" AND data->>'name' = $2", where)
	s.Equal([]any{"emergency-contact", "Ana"}, args)
}

func (s *FilterClauseSuite) TestRelationFilterIsParameterized() {
	where, args, err := s.store.filterClause("emergency-contact", map[string]any{"profile.user": int64(7)})
	s.Require().NoError(err)
	s.Equal(" AND (data->>'profile')::bigint IN (SELECT r.id FROM records r WHERE r.kind = $2 AND (r.data->>'user')::bigint = $3)", where)
	s.Equal([]any{"emergency-contact", "profile", int64(7)}, args)
}

func (s *FilterClauseSuite) TestHostileFieldNameIsRejected() {
	hostile := map[string]any{"a' = data->>'a' OR 1=1 OR data->>'b": "x"}
	_, _, err := s.store.filterClause("emergency-contact", hostile)
	s.Require().ErrorIs(err, ErrInvalidFilter)
}

func (s *FilterClauseSuite) TestHostileRelationRestIsRejected() {
	hostile := map[string]any{"profile.u' OR 1=1 OR r.data->>'u": "x"}
	_, _, err := s.store.filterClause("emergency-contact", hostile)
	s.Require().ErrorIs(err, ErrInvalidFilter)
}

func (s *FilterClauseSuite) TestUnknownRelationIsRejected() {
	_, _, err := s.store.filterClause("emergency-contact", map[string]any{"owner.user": int64(7)})
	s.Require().ErrorIs(err, ErrInvalidFilter)
}
