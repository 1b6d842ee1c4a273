package service

import (
	"context"
	"errors"
	"testing"

	"postpilot/internal/models"
	"postpilot/internal/transfer"
)

type fakeSettingsRepo struct {
	stored map[int64]*models.Settings
}

func (r *fakeSettingsRepo) GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error) {
	s, ok := r.stored[userID]
	return s, ok, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, s *models.Settings) error {
	if r.stored == nil {
		r.stored = make(map[int64]*models.Settings)
	}
	r.stored[s.UserID] = s
	return nil
}

func TestGetSettingsDefaults(t *testing.T) {
	s := NewSettingsService(&fakeSettingsRepo{})

	settings, err := s.GetSettingsInfo(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !settings.NotifyOnFailure || !settings.NotifyOnDisconnect {
		t.Fatalf("expected notifications on by default, got %+v", settings)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	repo := &fakeSettingsRepo{}
	s := NewSettingsService(repo)

	err := s.UpdateSettings(context.Background(), 1, &transfer.SettingsUpdate{NotifyOnFailure: true})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for missing email, got %v", err)
	}

	err = s.UpdateSettings(context.Background(), 1, &transfer.SettingsUpdate{NotifyEmail: "nonsense", NotifyOnFailure: true})
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}

	err = s.UpdateSettings(context.Background(), 1, &transfer.SettingsUpdate{
		NotifyEmail:        "user@example.com",
		NotifyOnFailure:    true,
		NotifyOnDisconnect: false,
	})
	if err != nil {
		t.Fatal(err)
	}
	saved := repo.stored[1]
	if saved == nil || saved.NotifyEmail != "user@example.com" || !saved.NotifyOnFailure || saved.NotifyOnDisconnect {
		t.Fatalf("unexpected saved settings: %+v", saved)
	}
}
