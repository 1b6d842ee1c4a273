package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"postpilot/internal/models"
)

type claimingPostRepo struct {
	posts     []*models.ScheduledPost
	claimedAt time.Time
	limit     int
}

func (r *claimingPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	return 0, nil
}

func (r *claimingPostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return nil, nil
}

func (r *claimingPostRepo) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (r *claimingPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

func (r *claimingPostRepo) CancelScheduled(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

// ClaimDue mimics the SQL claim: due scheduled posts flip to publishing and
// are returned at most once.
func (r *claimingPostRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	r.claimedAt = now
	r.limit = limit

	var claimed []*models.ScheduledPost
	for _, p := range r.posts {
		if len(claimed) == limit {
			break
		}
		if p.Status != models.PostStatusScheduled || p.ScheduledAt.After(now) {
			continue
		}
		p.Status = models.PostStatusPublishing
		claimed = append(claimed, p)
	}
	return claimed, nil
}

func (r *claimingPostRepo) RecordOutcome(ctx context.Context, postID int64, status, errorMessage string, results []*models.AccountResult) error {
	return nil
}

type recordingRunner struct {
	ran  []int64
	fail map[int64]bool
}

func (r *recordingRunner) Run(ctx context.Context, post *models.ScheduledPost) error {
	r.ran = append(r.ran, post.ID)
	if r.fail[post.ID] {
		return errors.New("enqueue failed")
	}
	return nil
}

func TestTickClaimsDuePosts(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &claimingPostRepo{posts: []*models.ScheduledPost{
		{ID: 1, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-time.Minute)},
		{ID: 2, Status: models.PostStatusScheduled, ScheduledAt: base.Add(time.Hour)},
		{ID: 3, Status: models.PostStatusCancelled, ScheduledAt: base.Add(-time.Minute)},
	}}
	runner := &recordingRunner{}

	d := NewDispatcher(repo, runner, 50).WithClock(func() time.Time { return base })
	d.Tick(context.Background())

	if len(runner.ran) != 1 || runner.ran[0] != 1 {
		t.Fatalf("expected only post 1 dispatched, got %v", runner.ran)
	}
	if !repo.claimedAt.Equal(base) {
		t.Fatalf("claimed at %v, want %v", repo.claimedAt, base)
	}
	if repo.limit != 50 {
		t.Fatalf("claim limit %d, want 50", repo.limit)
	}
	if repo.posts[0].Status != models.PostStatusPublishing {
		t.Fatalf("claimed post status %s, want publishing", repo.posts[0].Status)
	}
}

func TestTickClaimsEachPostOnce(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &claimingPostRepo{posts: []*models.ScheduledPost{
		{ID: 1, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-time.Minute)},
	}}
	runner := &recordingRunner{}

	d := NewDispatcher(repo, runner, 50).WithClock(func() time.Time { return base })
	d.Tick(context.Background())
	d.Tick(context.Background())

	if len(runner.ran) != 1 {
		t.Fatalf("post dispatched %d times, want once", len(runner.ran))
	}
}

func TestTickRespectsBatchSize(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &claimingPostRepo{posts: []*models.ScheduledPost{
		{ID: 1, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-3 * time.Minute)},
		{ID: 2, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-2 * time.Minute)},
		{ID: 3, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-time.Minute)},
	}}
	runner := &recordingRunner{}

	d := NewDispatcher(repo, runner, 2).WithClock(func() time.Time { return base })
	d.Tick(context.Background())

	if len(runner.ran) != 2 {
		t.Fatalf("dispatched %d posts, want 2", len(runner.ran))
	}
}

func TestTickIsolatesRunnerFailures(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &claimingPostRepo{posts: []*models.ScheduledPost{
		{ID: 1, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-2 * time.Minute)},
		{ID: 2, Status: models.PostStatusScheduled, ScheduledAt: base.Add(-time.Minute)},
	}}
	runner := &recordingRunner{fail: map[int64]bool{1: true}}

	d := NewDispatcher(repo, runner, 50).WithClock(func() time.Time { return base })
	d.Tick(context.Background())

	if len(runner.ran) != 2 {
		t.Fatalf("a failing post must not abort the batch, dispatched %v", runner.ran)
	}
}
