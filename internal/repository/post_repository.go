package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"postpilot/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64, status string) ([]*models.ScheduledPost, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	CancelScheduled(ctx context.Context, postID, userID int64) (bool, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	RecordOutcome(ctx context.Context, postID int64, status, errorMessage string, results []*models.AccountResult) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, content, timezone, scheduled_at, status, error_message, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := row.Scan(&post.ID, &post.UserID, &post.Content, &post.Timezone, &post.ScheduledAt, &post.Status, &post.ErrorMessage, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, content, timezone, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Content, post.Timezone, post.ScheduledAt, post.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Content, post.Timezone, post.ScheduledAt, post.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_at DESC`
	args := []any{userID}

	if status != "" {
		query = `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1 AND status = $2 ORDER BY scheduled_at DESC`
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM scheduled_posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// CancelScheduled transitions scheduled -> cancelled. The status predicate
// makes the cancel a check-and-set so a post already claimed as publishing
// cannot be cancelled; the false return tells the caller the race was lost.
func (r *postRepository) CancelScheduled(ctx context.Context, postID, userID int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, time.Now(), postID, userID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// ClaimDue atomically moves up to limit due posts from scheduled to
// publishing and returns them. FOR UPDATE SKIP LOCKED keeps concurrent
// dispatcher instances from claiming the same row.
func (r *postRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			updated_at = $2
		WHERE id IN (
			SELECT id FROM scheduled_posts
			WHERE status = $3 AND scheduled_at <= $4
			ORDER BY scheduled_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + postColumns

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPublishing, now, models.PostStatusScheduled, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// RecordOutcome persists the final state of a publish attempt: the post-level
// status plus every per-account result, in one transaction.
func (r *postRepository) RecordOutcome(ctx context.Context, postID int64, status, errorMessage string, results []*models.AccountResult) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE scheduled_posts
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, query, status, errorMessage, time.Now(), postID); err != nil {
		slog.Info(err.Error())
		return err
	}

	resultQuery := `
		UPDATE post_account_results
		SET status = $1,
			error_kind = $2,
			error_message = $3,
			external_post_id = $4,
			updated_at = $5
		WHERE post_id = $6 AND account_id = $7
	`
	for _, res := range results {
		if _, err := tx.ExecContext(ctx, resultQuery, res.Status, res.ErrorKind, res.ErrorMessage, res.ExternalPostID, time.Now(), postID, res.AccountID); err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	return tx.Commit()
}
