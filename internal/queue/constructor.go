package queue

import (
	"postpilot/internal/publisher"
	"postpilot/internal/repository"
)

type Queue struct {
	pr           repository.PostRepository
	orchestrator *publisher.Orchestrator
}

func NewQueue(pr repository.PostRepository, orchestrator *publisher.Orchestrator) *Queue {
	return &Queue{
		pr:           pr,
		orchestrator: orchestrator,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
