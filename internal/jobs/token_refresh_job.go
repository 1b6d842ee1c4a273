package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/service"
)

type TokenRefreshJob struct {
	sr       repository.SocialAccountRepository
	ps       service.PlatformService
	notifier service.Notifier
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	ps service.PlatformService,
	notifier service.Notifier) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:       sr,
		ps:       ps,
		notifier: notifier,
	}
}

// RefreshTokens renews OAuth tokens expiring within the next half hour. An
// account whose refresh fails is marked disconnected so the orchestrator
// stops attempting it.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	accounts, err := c.sr.ListExpiring(ctx, time.Now().Add(30*time.Minute))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.ps.RefreshToken(ctx, acc); err != nil {
				slog.Info("unable to refresh token", "platform", acc.Platform, "account_id", acc.ID)

				if err := c.sr.SetStatus(ctx, acc.ID, models.AccountStatusDisconnected); err != nil {
					slog.Info(err.Error())
					return
				}
				if err := c.notifier.AccountDisconnected(ctx, acc.UserID, acc); err != nil {
					slog.Info(err.Error())
				}
			}
		}(acc)
	}

	wg.Wait()
}
