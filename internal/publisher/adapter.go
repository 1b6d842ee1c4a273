package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
	"postpilot/internal/models"
)

// Adapter publishes one post to one connected account. Implementations make
// a single external API call and never retry; retry policy lives in the
// Orchestrator.
type Adapter interface {
	Publish(ctx context.Context, acc *models.SocialAccount, post *models.ScheduledPost, mediaURLs []string) (externalPostID string, err error)
}

type ErrorKind string

const (
	KindAuthExpired      ErrorKind = "auth_expired"
	KindRateLimited      ErrorKind = "rate_limited"
	KindContentRejected  ErrorKind = "content_rejected"
	KindTransientNetwork ErrorKind = "transient_network"
)

// PublishError is the only error type adapters return. The kind set is
// closed; everything an external platform can do wrong maps onto it.
type PublishError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator may attempt the account again.
func (e *PublishError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransientNetwork
}

func classifyStatus(status int, body string) *PublishError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &PublishError{Kind: KindAuthExpired, Message: body}
	case status == http.StatusTooManyRequests:
		return &PublishError{Kind: KindRateLimited, Message: body}
	case status >= 400 && status < 500:
		return &PublishError{Kind: KindContentRejected, Message: body}
	default:
		return &PublishError{Kind: KindTransientNetwork, Message: body}
	}
}

// asPublishError folds arbitrary transport failures into the taxonomy.
// Timeouts and connection errors are transient.
func asPublishError(err error) *PublishError {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &PublishError{Kind: KindTransientNetwork, Message: "request timed out", Err: err}
	}
	return &PublishError{Kind: KindTransientNetwork, Message: "request failed", Err: err}
}

// Registry maps platform tags to adapters and holds a per-platform rate
// limiter so fan-out cannot hammer a single external API.
type Registry struct {
	adapters map[string]Adapter
	limiters map[string]*rate.Limiter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *Registry) Register(platform string, adapter Adapter, limit rate.Limit, burst int) {
	r.adapters[platform] = adapter
	r.limiters[platform] = rate.NewLimiter(limit, burst)
}

func (r *Registry) Get(platform string) (Adapter, bool) {
	adapter, ok := r.adapters[platform]
	return adapter, ok
}

// Wait blocks until the platform's limiter grants a slot or ctx is done.
func (r *Registry) Wait(ctx context.Context, platform string) error {
	limiter, ok := r.limiters[platform]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
