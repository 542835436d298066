package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"macrofact/internal/domain"
)

func TestBuildWhereClause(t *testing.T) {
	t.Run("no filters still scopes statuses", func(t *testing.T) {
		clause, args := buildWhereClause(domain.SubmissionFilters{})
		assert.Equal(t, "WHERE 1=1 AND status IN ($1, $2)", clause)
		assert.Equal(t, []interface{}{domain.SubmissionSuccess, domain.SubmissionDuplicate}, args)
	})

	t.Run("date range and issuer", func(t *testing.T) {
		clause, args := buildWhereClause(domain.SubmissionFilters{
			From:   "2025-01-01",
			To:     "2025-03-31",
			Issuer: "ACME SL",
		})
		assert.Equal(t,
			"WHERE 1=1 AND sent_at::date >= $1 AND sent_at::date <= $2 AND issuer = $3 AND status IN ($4, $5)",
			clause)
		assert.Len(t, args, 5)
		assert.Equal(t, "2025-01-01", args[0])
		assert.Equal(t, "ACME SL", args[2])
	})

	t.Run("explicit ids override other filters", func(t *testing.T) {
		id1, id2 := uuid.New(), uuid.New()
		clause, args := buildWhereClause(domain.SubmissionFilters{
			IDs:    []uuid.UUID{id1, id2},
			From:   "2025-01-01",
			Issuer: "ACME SL",
		})
		assert.Equal(t, "WHERE 1=1 AND id IN ($1, $2) AND status IN ($3, $4)", clause)
		assert.Equal(t, []interface{}{id1, id2, domain.SubmissionSuccess, domain.SubmissionDuplicate}, args)
	})
}
