package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"postpilot/internal/models"
	"postpilot/internal/service"
	"postpilot/internal/transfer"
)

type fakePostService struct {
	createErr error
	cancelErr error
	post      *models.ScheduledPost
}

func (s *fakePostService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.post, nil
}

func (s *fakePostService) List(ctx context.Context, userID int64, statusFilter string) ([]*models.ScheduledPost, error) {
	return []*models.ScheduledPost{s.post}, nil
}

func (s *fakePostService) PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error) {
	if s.post == nil || s.post.ID != postID {
		return nil, service.ErrNotFound
	}
	return s.post, nil
}

func (s *fakePostService) Cancel(ctx context.Context, userID, postID int64) (*models.ScheduledPost, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return s.post, nil
}

func newTestApp(s service.PostService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "1")
		return c.Next()
	})

	h := NewPostHandler(s)
	app.Post("/posts/create", h.CreatePost)
	app.Get("/posts", h.ListPosts)
	app.Get("/posts/:id", h.GetPost)
	app.Post("/posts/:id/cancel", h.CancelPost)
	return app
}

func TestCreatePostStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakePostService
		wantStatus int
	}{
		{
			name:       "created",
			svc:        &fakePostService{post: &models.ScheduledPost{ID: 1, Status: models.PostStatusScheduled}},
			wantStatus: fiber.StatusCreated,
		},
		{
			name:       "validation error",
			svc:        &fakePostService{createErr: service.Invalid("content cannot be empty")},
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.svc)

			req := httptest.NewRequest("POST", "/posts/create", strings.NewReader(`{"content":"hi"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("got %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestGetPostNotFound(t *testing.T) {
	app := newTestApp(&fakePostService{post: &models.ScheduledPost{ID: 1}})

	resp, err := app.Test(httptest.NewRequest("GET", "/posts/99", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("got %d, want 404", resp.StatusCode)
	}
}

func TestCancelPostConflict(t *testing.T) {
	app := newTestApp(&fakePostService{cancelErr: service.ErrInvalidState})

	resp, err := app.Test(httptest.NewRequest("POST", "/posts/1/cancel", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("got %d, want 409", resp.StatusCode)
	}
}
