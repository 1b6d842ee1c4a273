package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"postpilot/internal/models"
)

// DiscordAdapter executes an incoming webhook obtained during the OAuth
// connect flow. The account credential is the webhook URL.
type DiscordAdapter struct {
	httpClient *http.Client
}

func NewDiscordAdapter() *DiscordAdapter {
	return &DiscordAdapter{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type discordEmbedImage struct {
	URL string `json:"url"`
}

type discordEmbed struct {
	Image discordEmbedImage `json:"image"`
}

type discordWebhookPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordMessage struct {
	ID string `json:"id"`
}

func (a *DiscordAdapter) Publish(ctx context.Context, acc *models.SocialAccount, post *models.ScheduledPost, mediaURLs []string) (string, error) {
	payload := discordWebhookPayload{Content: post.Content}
	for _, u := range mediaURLs {
		payload.Embeds = append(payload.Embeds, discordEmbed{Image: discordEmbedImage{URL: u}})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", asPublishError(err)
	}

	// wait=true makes Discord return the created message instead of 204.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, acc.AccessToken+"?wait=true", bytes.NewReader(body))
	if err != nil {
		return "", asPublishError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", asPublishError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", asPublishError(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		// A deleted webhook means the connection is gone, not the content.
		return "", &PublishError{Kind: KindAuthExpired, Message: "webhook no longer exists"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var msg discordMessage
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return "", asPublishError(err)
	}

	return msg.ID, nil
}
