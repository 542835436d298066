// Package port defines the persistence interfaces the application depends
// on, keeping callers independent of the concrete store.
package port

import (
	"context"

	"macrofact/internal/domain"
)

// SubmissionRepository persists and queries submitted invoices.
type SubmissionRepository interface {
	// Create records a new submission and fills in its generated id.
	Create(ctx context.Context, s *domain.Submission) error

	// List returns the exportable submissions (success or duplicate)
	// matching the filters, ordered by sent_at then invoice number. When
	// the filters name explicit ids, the remaining filters are ignored.
	List(ctx context.Context, f domain.SubmissionFilters) ([]domain.Submission, error)
}
