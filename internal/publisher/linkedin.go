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

const defaultLinkedinAPIURL = "https://api.linkedin.com"

// LinkedinAdapter creates a UGC share on behalf of the connected member.
type LinkedinAdapter struct {
	apiURL     string
	httpClient *http.Client
}

func NewLinkedinAdapter(apiURL string) *LinkedinAdapter {
	if apiURL == "" {
		apiURL = defaultLinkedinAPIURL
	}
	return &LinkedinAdapter{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type linkedinShareText struct {
	Text string `json:"text"`
}

type linkedinShareContent struct {
	ShareCommentary    linkedinShareText `json:"shareCommentary"`
	ShareMediaCategory string            `json:"shareMediaCategory"`
}

type linkedinUGCPost struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

type linkedinUGCResponse struct {
	ID string `json:"id"`
}

func (a *LinkedinAdapter) Publish(ctx context.Context, acc *models.SocialAccount, post *models.ScheduledPost, mediaURLs []string) (string, error) {
	payload := linkedinUGCPost{
		Author:         "urn:li:person:" + acc.AccountID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": linkedinShareContent{
				ShareCommentary:    linkedinShareText{Text: post.Content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", asPublishError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", asPublishError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("Authorization", "Bearer "+acc.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", asPublishError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", asPublishError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var ugc linkedinUGCResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &ugc); err != nil {
			return "", asPublishError(err)
		}
	}
	if ugc.ID == "" {
		ugc.ID = resp.Header.Get("X-RestLi-Id")
	}

	return ugc.ID, nil
}
