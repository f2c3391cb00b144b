package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/domain/submission"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/jackc/pgx/v5"
)

const submissionColumns = `id, name, email, subject, message, status, created_at`

type SubmissionsRepo struct {
	base
}

func NewSubmissionsRepo(conn db.DB, prom *observability.Prom) *SubmissionsRepo {
	return &SubmissionsRepo{base{conn: conn, prom: prom}}
}

func (r *SubmissionsRepo) Create(ctx context.Context, req submission.CreateRequest) (submission.Submission, error) {
	s := submission.NewFromCreateRequest(req)

	err := r.observe("submissions.create", func() error {
		_, err := r.conn.Exec(ctx,
			`INSERT INTO submissions (id, name, email, subject, message, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, s.Name, s.Email, s.Subject, s.Message, s.Status, s.CreatedAt,
		)
		return err
	})

	if err != nil {
		return submission.Submission{}, err
	}

	return s, nil
}

func (r *SubmissionsRepo) List(ctx context.Context, filter submission.ListFilter) ([]submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`

	var conds []string
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	out := make([]submission.Submission, 0)

	err := r.observe("submissions.list", func() error {
		rows, err := r.conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s submission.Submission
			if err := scanSubmission(rows, &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SubmissionsRepo) UpdateStatus(ctx context.Context, id string, status submission.Status) (submission.Submission, error) {
	if !status.IsValid() {
		return submission.Submission{}, submission.ErrInvalidStatus
	}
	if !validID(id) {
		return submission.Submission{}, submission.ErrNotFound
	}

	var s submission.Submission

	err := r.observe("submissions.update_status", func() error {
		row := r.conn.QueryRow(ctx,
			`UPDATE submissions
			 SET status = $2
			 WHERE id = $1
			 RETURNING `+submissionColumns,
			id, status,
		)
		return scanSubmission(row, &s)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, err
	}

	return s, nil
}

func scanSubmission(row pgx.Row, s *submission.Submission) error {
	return row.Scan(&s.ID, &s.Name, &s.Email, &s.Subject, &s.Message, &s.Status, &s.CreatedAt)
}
