package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"postpilot/internal/models"
	"postpilot/internal/transfer"
)

type fakePostRepo struct {
	posts     map[int64]*models.ScheduledPost
	cancelled []int64
}

func newFakePostRepo(posts ...*models.ScheduledPost) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[int64]*models.ScheduledPost)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	id := int64(len(r.posts) + 1)
	post.ID = id
	r.posts[id] = post
	return id, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return r.posts[id], nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.UserID != userID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	p, ok := r.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *fakePostRepo) CancelScheduled(ctx context.Context, postID, userID int64) (bool, error) {
	p, ok := r.posts[postID]
	if !ok || p.UserID != userID || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusCancelled
	r.cancelled = append(r.cancelled, postID)
	return true, nil
}

func (r *fakePostRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (r *fakePostRepo) RecordOutcome(ctx context.Context, postID int64, status, errorMessage string, results []*models.AccountResult) error {
	return nil
}

type fakeResultRepo struct {
	results map[int64][]*models.AccountResult
}

func (r *fakeResultRepo) Create(ctx context.Context, tx *sql.Tx, res *models.AccountResult) error {
	if r.results == nil {
		r.results = make(map[int64][]*models.AccountResult)
	}
	r.results[res.PostID] = append(r.results[res.PostID], res)
	return nil
}

func (r *fakeResultRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.AccountResult, error) {
	return r.results[postID], nil
}

type fakeAccountRepo struct {
	owned map[int64]int64 // accountID -> userID
}

func (r *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return nil, nil
}

func (r *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *fakeAccountRepo) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *fakeAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return r.owned[accountID] == userID, nil
}

func (r *fakeAccountRepo) SetTokens(ctx context.Context, accountID int64, sa *models.SocialAccount) error {
	return nil
}

func (r *fakeAccountRepo) SetStatus(ctx context.Context, accountID int64, status string) error {
	return nil
}

func (r *fakeAccountRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakeAssetRepo struct {
	owned map[int64]int64 // assetID -> userID
}

func (r *fakeAssetRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (r *fakeAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, nil
}

func (r *fakeAssetRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	return nil, nil
}

func (r *fakeAssetRepo) CheckByUserID(ctx context.Context, assetID, userID int64) (bool, error) {
	return r.owned[assetID] == userID, nil
}

func (r *fakeAssetRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

func newTestPostService(pr *fakePostRepo, ar *fakeResultRepo) *postService {
	s := NewPostService(
		nil,
		pr,
		ar,
		&fakeAccountRepo{owned: map[int64]int64{10: 1, 11: 1}},
		&fakeAssetRepo{owned: map[int64]int64{20: 1}},
		nil,
		5*time.Minute,
	).(*postService)
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestCreateValidation(t *testing.T) {
	future := "2025-06-01T13:00:00Z"

	tests := []struct {
		name string
		pc   transfer.PostCreation
		want string
	}{
		{
			name: "empty content",
			pc:   transfer.PostCreation{AccountIDs: []int64{10}, ScheduledAt: future},
			want: "content cannot be empty",
		},
		{
			name: "no accounts",
			pc:   transfer.PostCreation{Content: "hello", ScheduledAt: future},
			want: "no accounts selected",
		},
		{
			name: "bad timestamp",
			pc:   transfer.PostCreation{Content: "hello", AccountIDs: []int64{10}, ScheduledAt: "tomorrow"},
			want: "RFC3339",
		},
		{
			name: "bad timezone",
			pc:   transfer.PostCreation{Content: "hello", AccountIDs: []int64{10}, ScheduledAt: future, Timezone: "Mars/Olympus"},
			want: "IANA",
		},
		{
			name: "too soon",
			pc:   transfer.PostCreation{Content: "hello", AccountIDs: []int64{10}, ScheduledAt: "2025-06-01T12:02:00Z"},
			want: "in the future",
		},
		{
			name: "in the past",
			pc:   transfer.PostCreation{Content: "hello", AccountIDs: []int64{10}, ScheduledAt: "2025-06-01T09:00:00Z"},
			want: "in the future",
		},
		{
			name: "account not connected",
			pc:   transfer.PostCreation{Content: "hello", AccountIDs: []int64{99}, ScheduledAt: future},
			want: "not connected",
		},
		{
			name: "unknown asset",
			pc:   transfer.PostCreation{Content: "hello", AccountIDs: []int64{10}, ScheduledAt: future, AssetIDs: []int64{99}},
			want: "asset 99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestPostService(newFakePostRepo(), &fakeResultRepo{})
			_, err := s.Create(context.Background(), 1, &tt.pc)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(ve.Reason, tt.want) {
				t.Fatalf("reason %q does not contain %q", ve.Reason, tt.want)
			}
		})
	}
}

func TestListStatusFilter(t *testing.T) {
	pr := newFakePostRepo(
		&models.ScheduledPost{ID: 1, UserID: 1, Status: models.PostStatusScheduled},
		&models.ScheduledPost{ID: 2, UserID: 1, Status: models.PostStatusPublished},
		&models.ScheduledPost{ID: 3, UserID: 2, Status: models.PostStatusScheduled},
	)
	s := newTestPostService(pr, &fakeResultRepo{})

	posts, err := s.List(context.Background(), 1, "scheduled")
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].ID != 1 {
		t.Fatalf("expected post 1, got %+v", posts)
	}

	posts, err = s.List(context.Background(), 1, "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	if _, err := s.List(context.Background(), 1, "bogus"); err == nil {
		t.Fatal("expected error for unknown status filter")
	}
}

func TestPostInfo(t *testing.T) {
	pr := newFakePostRepo(
		&models.ScheduledPost{ID: 1, UserID: 1, Status: models.PostStatusPublished},
	)
	ar := &fakeResultRepo{results: map[int64][]*models.AccountResult{
		1: {
			{PostID: 1, AccountID: 10, Status: models.ResultStatusSucceeded},
			{PostID: 1, AccountID: 11, Status: models.ResultStatusFailed},
		},
	}}
	s := newTestPostService(pr, ar)

	post, err := s.PostInfo(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(post.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(post.Results))
	}
	if len(post.AccountIDs) != 2 {
		t.Fatalf("expected 2 account ids, got %v", post.AccountIDs)
	}

	if _, err := s.PostInfo(context.Background(), 1, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign post, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	pr := newFakePostRepo(
		&models.ScheduledPost{ID: 1, UserID: 1, Status: models.PostStatusScheduled},
		&models.ScheduledPost{ID: 2, UserID: 1, Status: models.PostStatusPublishing},
	)
	s := newTestPostService(pr, &fakeResultRepo{})

	post, err := s.Cancel(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if post.Status != models.PostStatusCancelled {
		t.Fatalf("expected cancelled, got %s", post.Status)
	}

	// Already claimed by the dispatcher.
	if _, err := s.Cancel(context.Background(), 1, 2); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	// Not the owner.
	if _, err := s.Cancel(context.Background(), 2, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
