package publisher

import (
	"context"
	"errors"
	"strconv"

	tele "gopkg.in/telebot.v4"
	"postpilot/internal/models"
)

// TelegramAdapter sends through a single product bot; the connected account
// carries the target chat id. The bot is created send-only, no poller.
type TelegramAdapter struct {
	bot *tele.Bot
}

func NewTelegramAdapter(token, apiURL string) (*TelegramAdapter, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     apiURL,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &TelegramAdapter{bot: bot}, nil
}

func (a *TelegramAdapter) Publish(ctx context.Context, acc *models.SocialAccount, post *models.ScheduledPost, mediaURLs []string) (string, error) {
	chatID, err := strconv.ParseInt(acc.AccountID, 10, 64)
	if err != nil {
		return "", &PublishError{Kind: KindContentRejected, Message: "invalid chat id", Err: err}
	}

	var what any = post.Content
	if len(mediaURLs) > 0 {
		what = &tele.Photo{File: tele.FromURL(mediaURLs[0]), Caption: post.Content}
	}

	msg, err := a.bot.Send(tele.ChatID(chatID), what)
	if err != nil {
		return "", classifyTelegramError(err)
	}

	return strconv.Itoa(msg.ID), nil
}

func classifyTelegramError(err error) *PublishError {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return &PublishError{Kind: KindRateLimited, Message: flood.Error(), Err: err}
	}

	var teleErr *tele.Error
	if errors.As(err, &teleErr) {
		return classifyStatus(teleErr.Code, teleErr.Description)
	}

	return asPublishError(err)
}
