package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "postpilot/configs"
	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/service"
	"postpilot/pkg/utils"
)

// Orchestrator drives one claimed post through the publish pipeline: resolve
// target accounts, fan out to platform adapters, aggregate per-account
// outcomes into a final post status, and record everything.
type Orchestrator struct {
	pr       repository.PostRepository
	ar       repository.AccountResultRepository
	sa       repository.SocialAccountRepository
	ph       repository.PostingHistoryRepository
	pm       repository.PostMediaRepository
	ma       repository.MediaAssetRepository
	reg      *Registry
	notifier service.Notifier
	sched    config.Scheduler
	secret   string

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewOrchestrator(
	pr repository.PostRepository,
	ar repository.AccountResultRepository,
	sa repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	pm repository.PostMediaRepository,
	ma repository.MediaAssetRepository,
	reg *Registry,
	notifier service.Notifier,
	cfg config.Config) *Orchestrator {
	return &Orchestrator{
		pr:       pr,
		ar:       ar,
		sa:       sa,
		ph:       ph,
		pm:       pm,
		ma:       ma,
		reg:      reg,
		notifier: notifier,
		sched:    cfg.Scheduler,
		secret:   cfg.SecretKey,
		sleep:    time.Sleep,
	}
}

// Publish runs the fan-out for one post already claimed as publishing. It
// always records an outcome; adapter failures are captured per account and
// never returned to the caller.
func (o *Orchestrator) Publish(ctx context.Context, post *models.ScheduledPost) error {
	pending, err := o.ar.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return fmt.Errorf("post %d has no target accounts", post.ID)
	}

	mediaURLs, err := o.mediaURLs(ctx, post.ID)
	if err != nil {
		slog.Info(err.Error())
		// Publish text-only rather than failing the whole post.
		mediaURLs = nil
	}

	results := make([]*models.AccountResult, len(pending))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.sched.PublishConcurrency)

	for i, row := range pending {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, accountID int64) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results[i] = o.publishToAccount(ctx, post, accountID, mediaURLs)
		}(i, row.AccountID)
	}
	wg.Wait()

	status, errorMessage := aggregate(results)

	if err := o.pr.RecordOutcome(ctx, post.ID, status, errorMessage, results); err != nil {
		return err
	}

	o.recordHistory(ctx, post, results)

	if status == models.PostStatusFailed {
		if err := o.notifier.PostFailed(ctx, post.UserID, post, errorMessage); err != nil {
			slog.Info(err.Error())
		}
	}

	return nil
}

// publishToAccount attempts one account, retrying only retryable failures up
// to the configured attempt budget.
func (o *Orchestrator) publishToAccount(ctx context.Context, post *models.ScheduledPost, accountID int64, mediaURLs []string) *models.AccountResult {
	result := &models.AccountResult{
		PostID:    post.ID,
		AccountID: accountID,
	}

	acc, err := o.sa.GetByID(ctx, accountID)
	if err != nil || acc == nil {
		result.Status = models.ResultStatusFailed
		result.ErrorMessage = "account is no longer connected"
		return result
	}
	if acc.AccountStatus == models.AccountStatusDisconnected {
		result.Status = models.ResultStatusFailed
		result.ErrorKind = string(KindAuthExpired)
		result.ErrorMessage = "account is disconnected"
		return result
	}

	adapter, ok := o.reg.Get(acc.Platform)
	if !ok {
		result.Status = models.ResultStatusFailed
		result.ErrorMessage = fmt.Sprintf("no adapter for platform %s", acc.Platform)
		return result
	}

	working := *acc
	if working.AccessToken != "" {
		token, err := utils.Decrypt(working.AccessToken, []byte(o.secret))
		if err != nil {
			result.Status = models.ResultStatusFailed
			result.ErrorMessage = "unable to decrypt account credential"
			return result
		}
		working.AccessToken = token
	}

	maxAttempts := o.sched.PublishMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var pubErr *PublishError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := o.reg.Wait(ctx, acc.Platform); err != nil {
			pubErr = asPublishError(err)
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, o.sched.PublishTimeout)
		externalID, err := adapter.Publish(callCtx, &working, post, mediaURLs)
		cancel()

		if err == nil {
			result.Status = models.ResultStatusSucceeded
			result.ExternalPostID = externalID
			return result
		}

		pubErr = asPublishError(err)
		slog.Info(fmt.Sprintf("publish attempt %d for post %d account %d failed: %v", attempt, post.ID, accountID, pubErr))

		if !pubErr.Retryable() || attempt == maxAttempts {
			break
		}
		o.sleep(o.sched.PublishRetryDelay)
	}

	result.Status = models.ResultStatusFailed
	result.ErrorKind = string(pubErr.Kind)
	result.ErrorMessage = pubErr.Message

	if pubErr.Kind == KindAuthExpired {
		if err := o.sa.SetStatus(ctx, acc.ID, models.AccountStatusDisconnected); err != nil {
			slog.Info(err.Error())
		}
		if err := o.notifier.AccountDisconnected(ctx, post.UserID, acc); err != nil {
			slog.Info(err.Error())
		}
	}

	return result
}

// aggregate folds per-account results into the post-level status. Any
// failure fails the whole post; partial successes stay visible in the
// account results.
func aggregate(results []*models.AccountResult) (string, string) {
	var errorMessage string
	failed := 0

	for _, res := range results {
		if res.Status != models.ResultStatusFailed {
			continue
		}
		failed++
		if errorMessage == "" {
			errorMessage = fmt.Sprintf("account %d: %s", res.AccountID, res.ErrorMessage)
		}
	}

	if failed == 0 {
		return models.PostStatusPublished, ""
	}
	if failed < len(results) {
		errorMessage = fmt.Sprintf("%d of %d accounts failed: %s", failed, len(results), errorMessage)
	}
	return models.PostStatusFailed, errorMessage
}

func (o *Orchestrator) mediaURLs(ctx context.Context, postID int64) ([]string, error) {
	media, err := o.pm.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, pm := range media {
		asset, err := o.ma.GetByID(ctx, pm.AssetID)
		if err != nil {
			return nil, err
		}
		if asset != nil {
			urls = append(urls, asset.FileURL)
		}
	}
	return urls, nil
}

func (o *Orchestrator) recordHistory(ctx context.Context, post *models.ScheduledPost, results []*models.AccountResult) {
	for _, res := range results {
		entry := models.PostingHistory{
			UserID:    post.UserID,
			PostID:    post.ID,
			AccountID: res.AccountID,
		}
		if res.Status == models.ResultStatusFailed {
			entry.ErrorMessage = res.ErrorMessage
		}
		if _, err := o.ph.Create(ctx, &entry); err != nil {
			slog.Info(err.Error())
		}
	}
}
