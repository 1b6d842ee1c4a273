package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"postpilot/internal/models"
	"postpilot/internal/scheduler"
)

func EnqueuePost(asynqClient *asynq.Client, payload PublishPostPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	// The dispatcher already waited until the post was due; run now. The
	// post stays failed rather than re-entering the queue on exhaustion.
	_, err = asynqClient.Enqueue(task, asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Info("publish task enqueued", "post_id", payload.PostID)
	return nil
}

// Runner hands claimed posts to the asynq workers.
type Runner struct {
	client *asynq.Client
}

func NewRunner(client *asynq.Client) *Runner {
	return &Runner{client: client}
}

var _ scheduler.PublishRunner = (*Runner)(nil)

func (r *Runner) Run(ctx context.Context, post *models.ScheduledPost) error {
	return EnqueuePost(r.client, PublishPostPayload{PostID: post.ID})
}
