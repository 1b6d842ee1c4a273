package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"postpilot/internal/models"
	"postpilot/internal/transfer"
)

// BlueskyAdapter posts to the AT Protocol. Each publish opens a fresh
// session with the account's app password, then creates an
// app.bsky.feed.post record.
type BlueskyAdapter struct {
	pds        string
	httpClient *http.Client
}

func NewBlueskyAdapter(pds string) *BlueskyAdapter {
	if pds == "" {
		pds = "https://bsky.social"
	}
	return &BlueskyAdapter{
		pds: pds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type blueskyPostRecord struct {
	Type      string `json:"$type"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type createRecordRequest struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	Record     any    `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

func (a *BlueskyAdapter) Publish(ctx context.Context, acc *models.SocialAccount, post *models.ScheduledPost, mediaURLs []string) (string, error) {
	session, err := a.createSession(ctx, acc.AccountUsername, acc.AccessToken)
	if err != nil {
		return "", err
	}

	body := createRecordRequest{
		Repo:       session.DID,
		Collection: "app.bsky.feed.post",
		Record: blueskyPostRecord{
			Type:      "app.bsky.feed.post",
			Text:      post.Content,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}

	var resp createRecordResponse
	if err := a.post(ctx, "/xrpc/com.atproto.repo.createRecord", session.AccessJwt, body, &resp); err != nil {
		return "", err
	}

	return resp.URI, nil
}

func (a *BlueskyAdapter) createSession(ctx context.Context, identifier, appPassword string) (*transfer.BlueskySession, error) {
	body := map[string]string{
		"identifier": identifier,
		"password":   appPassword,
	}

	var session transfer.BlueskySession
	if err := a.post(ctx, "/xrpc/com.atproto.server.createSession", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (a *BlueskyAdapter) post(ctx context.Context, path, accessJwt string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return asPublishError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.pds+path, bytes.NewReader(payload))
	if err != nil {
		return asPublishError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+accessJwt)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return asPublishError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return asPublishError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return asPublishError(err)
		}
	}

	return nil
}
