package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	config "postpilot/configs"
	"postpilot/internal/models"
	"postpilot/internal/repository"
)

// Notifier delivers user-facing alerts about publish failures and lost
// platform connections. Delivery honors the user's notification settings.
type Notifier interface {
	PostFailed(ctx context.Context, userID int64, post *models.ScheduledPost, message string) error
	AccountDisconnected(ctx context.Context, userID int64, acc *models.SocialAccount) error
}

type emailNotifier struct {
	cfg config.Config
	sr  repository.SettingsRepository
}

func NewEmailNotifier(cfg config.Config, sr repository.SettingsRepository) Notifier {
	return &emailNotifier{
		cfg: cfg,
		sr:  sr,
	}
}

func (n *emailNotifier) PostFailed(ctx context.Context, userID int64, post *models.ScheduledPost, message string) error {
	settings, isExist, err := n.sr.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !isExist || !settings.NotifyOnFailure || settings.NotifyEmail == "" {
		return nil
	}

	subject := "Your scheduled post could not be published"
	body := fmt.Sprintf("The post scheduled for %s failed to publish.\n\n%s\n", post.ScheduledAt.Format("Jan 2 15:04 MST"), message)
	return n.send(settings.NotifyEmail, subject, body)
}

func (n *emailNotifier) AccountDisconnected(ctx context.Context, userID int64, acc *models.SocialAccount) error {
	settings, isExist, err := n.sr.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !isExist || !settings.NotifyOnDisconnect || settings.NotifyEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Your %s account needs to be reconnected", acc.Platform)
	body := fmt.Sprintf("The connection to %s (%s) has expired. Reconnect it to keep publishing.\n", acc.Platform, acc.AccountUsername)
	return n.send(settings.NotifyEmail, subject, body)
}

func (n *emailNotifier) send(to, subject, body string) error {
	if n.cfg.SMTP.Host == "" {
		slog.Info("smtp not configured, skipping notification email")
		return nil
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", n.cfg.SMTP.From, to, subject, body))
	addr := n.cfg.SMTP.Host + ":" + n.cfg.SMTP.Port
	auth := smtp.PlainAuth("", n.cfg.SMTP.Username, n.cfg.SMTP.Password, n.cfg.SMTP.Host)

	if err := smtp.SendMail(addr, auth, n.cfg.SMTP.From, []string{to}, msg); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
