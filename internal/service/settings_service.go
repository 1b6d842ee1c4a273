package service

import (
	"context"
	"strings"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
)

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, su *transfer.SettingsUpdate) error
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		sr: sr,
	}
}

func (s *settingsService) GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error) {
	settings, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !isExist {
		// Defaults until the user saves something.
		return &models.Settings{
			UserID:             userID,
			NotifyOnFailure:    true,
			NotifyOnDisconnect: true,
		}, nil
	}

	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, su *transfer.SettingsUpdate) error {
	if su == nil {
		return Invalid("missing request body")
	}

	email := strings.TrimSpace(su.NotifyEmail)
	if (su.NotifyOnFailure || su.NotifyOnDisconnect) && email == "" {
		return Invalid("notify_email is required when notifications are enabled")
	}
	if email != "" && !strings.Contains(email, "@") {
		return Invalid("notify_email is not a valid address")
	}

	settings := models.Settings{
		UserID:             userID,
		NotifyEmail:        email,
		NotifyOnFailure:    su.NotifyOnFailure,
		NotifyOnDisconnect: su.NotifyOnDisconnect,
	}
	return s.sr.Upsert(ctx, &settings)
}
