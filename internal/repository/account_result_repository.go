package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"postpilot/internal/models"
)

// AccountResultRepository tracks the fan-out rows of a post: one row per
// target account, created as pending alongside the post and updated when the
// publish attempt finishes.
type AccountResultRepository interface {
	Create(ctx context.Context, tx *sql.Tx, res *models.AccountResult) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.AccountResult, error)
}

type accountResultRepository struct {
	db *sql.DB
}

func NewAccountResultRepository(db *sql.DB) AccountResultRepository {
	return &accountResultRepository{db: db}
}

func (r *accountResultRepository) Create(ctx context.Context, tx *sql.Tx, res *models.AccountResult) error {
	var err error

	query := `
		INSERT INTO post_account_results (post_id, account_id, status)
		VALUES ($1, $2, $3)
	`
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, res.PostID, res.AccountID, res.Status)
	} else {
		_, err = r.db.ExecContext(ctx, query, res.PostID, res.AccountID, res.Status)
	}

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountResultRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.AccountResult, error) {
	query := `
		SELECT post_id, account_id, status, error_kind, error_message, external_post_id, updated_at
		FROM post_account_results
		WHERE post_id = $1
		ORDER BY account_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.AccountResult
	for rows.Next() {
		var res models.AccountResult
		if err := rows.Scan(&res.PostID, &res.AccountID, &res.Status, &res.ErrorKind, &res.ErrorMessage, &res.ExternalPostID, &res.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &res)
	}

	return results, rows.Err()
}
