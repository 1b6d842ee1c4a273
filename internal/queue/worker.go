package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"postpilot/internal/models"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post %d no longer exists", payload.PostID)
	}
	if post.Status != models.PostStatusPublishing {
		// Claimed state is a precondition; anything else means a stale or
		// duplicate task.
		return nil
	}

	return q.orchestrator.Publish(ctx, post)
}
