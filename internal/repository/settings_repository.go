package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"postpilot/internal/models"
)

type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error) {
	query := `
		SELECT id, user_id, notify_email, notify_on_failure, notify_on_disconnect, created_at, updated_at
		FROM settings
		WHERE user_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, userID)

	var settings models.Settings
	err := row.Scan(&settings.ID, &settings.UserID, &settings.NotifyEmail, &settings.NotifyOnFailure, &settings.NotifyOnDisconnect, &settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}

	return &settings, true, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.Settings) error {
	query := `
		INSERT INTO settings (user_id, notify_email, notify_on_failure, notify_on_disconnect)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET notify_email = $2,
			notify_on_failure = $3,
			notify_on_disconnect = $4,
			updated_at = $5
	`
	_, err := r.db.ExecContext(ctx, query, s.UserID, s.NotifyEmail, s.NotifyOnFailure, s.NotifyOnDisconnect, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
