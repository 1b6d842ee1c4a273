package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
	"postpilot/internal/models"
	"postpilot/internal/repository"
)

// PublishRunner takes over a claimed post. In production this enqueues an
// asynq task; tests run the orchestrator inline.
type PublishRunner interface {
	Run(ctx context.Context, post *models.ScheduledPost) error
}

// Dispatcher is the recurring tick that claims due posts and hands them to
// the runner. The clock is injectable so tests can advance virtual time.
type Dispatcher struct {
	pr        repository.PostRepository
	runner    PublishRunner
	batchSize int
	now       func() time.Time
}

func NewDispatcher(pr repository.PostRepository, runner PublishRunner, batchSize int) *Dispatcher {
	return &Dispatcher{
		pr:        pr,
		runner:    runner,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock. Test hook.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Tick claims up to batchSize due posts and dispatches each one. A failing
// post never aborts the rest of the batch.
func (d *Dispatcher) Tick(ctx context.Context) {
	posts, err := d.pr.ClaimDue(ctx, d.now(), d.batchSize)
	if err != nil {
		slog.Error(fmt.Sprintf("claim due posts: %v", err))
		return
	}

	for _, post := range posts {
		if err := d.runner.Run(ctx, post); err != nil {
			slog.Error(fmt.Sprintf("dispatch post %d: %v", post.ID, err))
		}
	}
}

// Register adds the tick to the given cron runner.
func (d *Dispatcher) Register(c *cron.Cron, interval time.Duration) error {
	return c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		d.Tick(context.Background())
	})
}
