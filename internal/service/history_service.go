package service

import (
	"context"
	"fmt"

	"postpilot/internal/models"
	"postpilot/internal/repository"
)

type HistoryService interface {
	List(ctx context.Context, userID int64) ([]*models.PostingHistory, error)
}

type historyService struct {
	ph repository.PostingHistoryRepository
}

func NewHistoryService(ph repository.PostingHistoryRepository) HistoryService {
	return &historyService{
		ph: ph,
	}
}

func (s *historyService) List(ctx context.Context, userID int64) ([]*models.PostingHistory, error) {
	entries, err := s.ph.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting posting history")
	}
	return entries, nil
}
