// Package postgres implements the persistence ports on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"macrofact/internal/domain"
	"macrofact/internal/port"
)

type submissionRepo struct {
	db *sqlx.DB
}

// NewSubmissionRepo creates a new PostgreSQL-backed SubmissionRepository.
func NewSubmissionRepo(db *sqlx.DB) port.SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	const q = `
		INSERT INTO submissions (id, sent_at, invoice_number, issuer, status,
		                         detail, pdf_url, amount, client, workbook_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.SentAt, s.InvoiceNumber, s.Issuer, s.Status,
		s.Detail, s.PDFURL, s.Amount, s.Client, s.WorkbookPath,
	)
	if err != nil {
		return fmt.Errorf("inserting submission %s: %w", s.InvoiceNumber, err)
	}
	return nil
}

// buildWhereClause constructs a dynamic WHERE clause for submission queries.
// Explicit ids take priority over date/issuer filters; only exportable
// statuses are ever returned.
func buildWhereClause(f domain.SubmissionFilters) (clause string, args []interface{}) {
	clause = "WHERE 1=1"
	argN := 1

	if len(f.IDs) > 0 {
		placeholders := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			placeholders[i] = fmt.Sprintf("$%d", argN)
			args = append(args, id)
			argN++
		}
		clause += fmt.Sprintf(" AND id IN (%s)", strings.Join(placeholders, ", "))
	} else {
		if f.From != "" {
			clause += fmt.Sprintf(" AND sent_at::date >= $%d", argN)
			args = append(args, f.From)
			argN++
		}
		if f.To != "" {
			clause += fmt.Sprintf(" AND sent_at::date <= $%d", argN)
			args = append(args, f.To)
			argN++
		}
		if f.Issuer != "" {
			clause += fmt.Sprintf(" AND issuer = $%d", argN)
			args = append(args, f.Issuer)
			argN++
		}
	}

	statuses := make([]string, len(domain.ExportableStatuses))
	for i, s := range domain.ExportableStatuses {
		statuses[i] = fmt.Sprintf("$%d", argN)
		args = append(args, s)
		argN++
	}
	clause += fmt.Sprintf(" AND status IN (%s)", strings.Join(statuses, ", "))

	return clause, args
}

func (r *submissionRepo) List(ctx context.Context, f domain.SubmissionFilters) ([]domain.Submission, error) {
	clause, args := buildWhereClause(f)
	q := fmt.Sprintf(`
		SELECT id, sent_at, invoice_number, issuer, status,
		       detail, pdf_url, amount, client, workbook_path
		FROM submissions
		%s
		ORDER BY sent_at, invoice_number`, clause)

	var out []domain.Submission
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return out, nil
}
