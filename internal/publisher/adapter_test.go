package publisher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"postpilot/internal/models"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuthExpired},
		{http.StatusForbidden, KindAuthExpired},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusBadRequest, KindContentRejected},
		{http.StatusUnprocessableEntity, KindContentRejected},
		{http.StatusInternalServerError, KindTransientNetwork},
		{http.StatusBadGateway, KindTransientNetwork},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status, ""); got.Kind != tt.want {
			t.Errorf("status %d: got %s, want %s", tt.status, got.Kind, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	retryable := map[ErrorKind]bool{
		KindAuthExpired:      false,
		KindRateLimited:      true,
		KindContentRejected:  false,
		KindTransientNetwork: true,
	}
	for kind, want := range retryable {
		e := &PublishError{Kind: kind}
		if e.Retryable() != want {
			t.Errorf("%s: Retryable() = %v, want %v", kind, e.Retryable(), want)
		}
	}
}

func TestAsPublishError(t *testing.T) {
	pe := &PublishError{Kind: KindAuthExpired, Message: "revoked"}
	if got := asPublishError(pe); got != pe {
		t.Fatal("existing PublishError must pass through")
	}

	if got := asPublishError(context.DeadlineExceeded); got.Kind != KindTransientNetwork {
		t.Fatalf("timeout classified as %s", got.Kind)
	}

	if got := asPublishError(errors.New("dial tcp: refused")); got.Kind != KindTransientNetwork {
		t.Fatalf("connection error classified as %s", got.Kind)
	}
}

func TestDiscordAdapterPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("wait") != "true" {
			t.Error("expected wait=true query parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"123456"}`))
	}))
	defer srv.Close()

	adapter := NewDiscordAdapter()
	acc := &models.SocialAccount{Platform: models.PlatformDiscord, AccessToken: srv.URL}
	post := &models.ScheduledPost{Content: "hello"}

	id, err := adapter.Publish(context.Background(), acc, post, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "123456" {
		t.Fatalf("got id %q", id)
	}
}

func TestDiscordAdapterDeletedWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := NewDiscordAdapter()
	acc := &models.SocialAccount{Platform: models.PlatformDiscord, AccessToken: srv.URL}

	_, err := adapter.Publish(context.Background(), acc, &models.ScheduledPost{Content: "x"}, nil)
	var pe *PublishError
	if !errors.As(err, &pe) || pe.Kind != KindAuthExpired {
		t.Fatalf("deleted webhook should be auth_expired, got %v", err)
	}
}

func TestBlueskyAdapterPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			w.Write([]byte(`{"accessJwt":"jwt-1","did":"did:plc:abc","handle":"alice.bsky.social"}`))
		case "/xrpc/com.atproto.repo.createRecord":
			if r.Header.Get("Authorization") != "Bearer jwt-1" {
				t.Errorf("missing session token, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{"uri":"at://did:plc:abc/app.bsky.feed.post/xyz","cid":"cid-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	adapter := NewBlueskyAdapter(srv.URL)
	acc := &models.SocialAccount{
		Platform:        models.PlatformBluesky,
		AccountUsername: "alice.bsky.social",
		AccessToken:     "app-password",
	}

	uri, err := adapter.Publish(context.Background(), acc, &models.ScheduledPost{Content: "hello"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if uri != "at://did:plc:abc/app.bsky.feed.post/xyz" {
		t.Fatalf("got uri %q", uri)
	}
}

func TestBlueskyAdapterBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"AuthenticationRequired"}`))
	}))
	defer srv.Close()

	adapter := NewBlueskyAdapter(srv.URL)
	acc := &models.SocialAccount{AccountUsername: "alice", AccessToken: "wrong"}

	_, err := adapter.Publish(context.Background(), acc, &models.ScheduledPost{Content: "x"}, nil)
	var pe *PublishError
	if !errors.As(err, &pe) || pe.Kind != KindAuthExpired {
		t.Fatalf("expected auth_expired, got %v", err)
	}
}

func TestLinkedinAdapterPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/ugcPosts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			t.Error("missing restli protocol header")
		}
		w.Header().Set("X-RestLi-Id", "urn:li:ugcPost:1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	adapter := NewLinkedinAdapter(srv.URL)
	acc := &models.SocialAccount{Platform: models.PlatformLinkedin, AccountID: "sub-1", AccessToken: "token"}

	id, err := adapter.Publish(context.Background(), acc, &models.ScheduledPost{Content: "hello"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "urn:li:ugcPost:1" {
		t.Fatalf("got id %q", id)
	}
}

func TestLinkedinAdapterRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewLinkedinAdapter(srv.URL)
	acc := &models.SocialAccount{AccountID: "sub-1", AccessToken: "token"}

	_, err := adapter.Publish(context.Background(), acc, &models.ScheduledPost{Content: "x"}, nil)
	var pe *PublishError
	if !errors.As(err, &pe) || pe.Kind != KindRateLimited {
		t.Fatalf("expected rate_limited, got %v", err)
	}
	if !pe.Retryable() {
		t.Fatal("rate limited must be retryable")
	}
}

func TestTelegramAdapterInvalidChatID(t *testing.T) {
	adapter, err := NewTelegramAdapter("", "")
	if err != nil {
		t.Fatal(err)
	}

	acc := &models.SocialAccount{Platform: models.PlatformTelegram, AccountID: "not-a-number"}
	_, err = adapter.Publish(context.Background(), acc, &models.ScheduledPost{Content: "x"}, nil)
	var pe *PublishError
	if !errors.As(err, &pe) || pe.Kind != KindContentRejected {
		t.Fatalf("expected content_rejected for bad chat id, got %v", err)
	}
}
