package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
)

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.ScheduledPost, error)
	List(ctx context.Context, userID int64, statusFilter string) ([]*models.ScheduledPost, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, userID, postID int64) (*models.ScheduledPost, error)
}

type postService struct {
	db          *sql.DB
	pr          repository.PostRepository
	ar          repository.AccountResultRepository
	sa          repository.SocialAccountRepository
	ma          repository.MediaAssetRepository
	pm          repository.PostMediaRepository
	minimumLead time.Duration
	now         func() time.Time
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ar repository.AccountResultRepository,
	sa repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	minimumLead time.Duration) PostService {
	return &postService{
		db:          db,
		pr:          pr,
		ar:          ar,
		sa:          sa,
		ma:          ma,
		pm:          pm,
		minimumLead: minimumLead,
		now:         time.Now,
	}
}

func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	if pc == nil {
		return nil, Invalid("missing request body")
	}
	if pc.Content == "" {
		return nil, Invalid("content cannot be empty")
	}
	if len(pc.AccountIDs) == 0 {
		return nil, Invalid("no accounts selected")
	}

	scheduledAt, err := time.Parse(time.RFC3339, pc.ScheduledAt)
	if err != nil {
		return nil, Invalid("scheduled_at must be an RFC3339 timestamp")
	}
	if pc.Timezone != "" {
		if _, err := time.LoadLocation(pc.Timezone); err != nil {
			return nil, Invalid("timezone must be a valid IANA zone name")
		}
	}
	if scheduledAt.Before(s.now().Add(s.minimumLead)) {
		return nil, Invalid(fmt.Sprintf("scheduled_at must be at least %s in the future", s.minimumLead))
	}

	accountIDs := dedupe(pc.AccountIDs)
	for _, accountID := range accountIDs {
		exists, err := s.sa.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return nil, fmt.Errorf("error checking account %d: %w", accountID, err)
		}
		if !exists {
			return nil, Invalid(fmt.Sprintf("account %d is not connected", accountID))
		}
	}
	for _, assetID := range pc.AssetIDs {
		exists, err := s.ma.CheckByUserID(ctx, assetID, userID)
		if err != nil {
			return nil, fmt.Errorf("error checking asset %d: %w", assetID, err)
		}
		if !exists {
			return nil, Invalid(fmt.Sprintf("asset %d does not exist", assetID))
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.ScheduledPost{
		UserID:      userID,
		Content:     pc.Content,
		Timezone:    pc.Timezone,
		ScheduledAt: scheduledAt,
		Status:      models.PostStatusScheduled,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	for _, accountID := range accountIDs {
		res := models.AccountResult{
			PostID:    postID,
			AccountID: accountID,
			Status:    models.ResultStatusPending,
		}
		if err = s.ar.Create(ctx, tx, &res); err != nil {
			return nil, fmt.Errorf("error saving target account %d: %w", accountID, err)
		}
	}

	for i, assetID := range pc.AssetIDs {
		pm := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err = s.pm.Create(ctx, tx, &pm); err != nil {
			return nil, fmt.Errorf("error saving media attachment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.ID = postID
	post.AccountIDs = accountIDs
	return &post, nil
}

var listableStatuses = map[string]struct{}{
	models.PostStatusScheduled:  {},
	models.PostStatusPublishing: {},
	models.PostStatusPublished:  {},
	models.PostStatusFailed:     {},
	models.PostStatusCancelled:  {},
}

func (s *postService) List(ctx context.Context, userID int64, statusFilter string) ([]*models.ScheduledPost, error) {
	if statusFilter == "all" {
		statusFilter = ""
	}
	if statusFilter != "" {
		if _, ok := listableStatuses[statusFilter]; !ok {
			return nil, Invalid("unknown status filter")
		}
	}

	posts, err := s.pr.ListByUserID(ctx, userID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}

	for _, post := range posts {
		results, err := s.ar.ListByPostID(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			post.AccountIDs = append(post.AccountIDs, res.AccountID)
		}
	}

	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, fmt.Errorf("error getting post info")
	}

	results, err := s.ar.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Results = results
	for _, res := range results {
		post.AccountIDs = append(post.AccountIDs, res.AccountID)
	}

	return post, nil
}

// Cancel is a check-and-set against status=scheduled. A post already claimed
// by the dispatcher reports ErrInvalidState, not a silent no-op.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) (*models.ScheduledPost, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrNotFound
	}

	cancelled, err := s.pr.CancelScheduled(ctx, postID, userID)
	if err != nil {
		return nil, fmt.Errorf("error cancelling post: %w", err)
	}
	if !cancelled {
		return nil, ErrInvalidState
	}

	return s.pr.GetByID(ctx, postID)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
