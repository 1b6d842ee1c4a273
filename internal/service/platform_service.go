package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
	config "postpilot/configs"
	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
	"postpilot/pkg/utils"
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, state string) string
	Callback(ctx context.Context, platform, code string, userID int64) error
	ConnectBluesky(ctx context.Context, userID int64, bc *transfer.BlueskyConnect) error
	ConnectTelegram(ctx context.Context, userID int64, tc *transfer.TelegramConnect) error
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
	RefreshToken(ctx context.Context, acc *models.SocialAccount) error
}

type platformService struct {
	cfg        config.Config
	sa         repository.SocialAccountRepository
	httpClient *http.Client
}

func NewPlatformService(cfg config.Config, sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		cfg: cfg,
		sa:  sa,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *platformService) oauthConfig(platform string) *oauth2.Config {
	switch platform {
	case models.PlatformLinkedin:
		return &oauth2.Config{
			ClientID:     s.cfg.LinkedinClientID,
			ClientSecret: s.cfg.LinkedinClientSecret,
			RedirectURL:  s.cfg.LinkedinRedirectURI,
			Scopes:       []string{"openid", "profile", "email", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		}
	case models.PlatformDiscord:
		return &oauth2.Config{
			ClientID:     s.cfg.DiscordClientID,
			ClientSecret: s.cfg.DiscordClientSecret,
			RedirectURL:  s.cfg.DiscordRedirectURI,
			Scopes:       []string{"webhook.incoming"},
			Endpoint:     discordEndpoint,
		}
	default:
		return nil
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform, state string) string {
	oauthCfg := s.oauthConfig(platform)
	if oauthCfg == nil {
		return ""
	}
	return oauthCfg.AuthCodeURL(state)
}

func (s *platformService) Callback(ctx context.Context, platform, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	oauthCfg := s.oauthConfig(platform)
	if oauthCfg == nil {
		return fmt.Errorf("platform %s has no oauth flow", platform)
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	switch platform {
	case models.PlatformLinkedin:
		return s.saveLinkedinAccount(ctx, userID, token)
	case models.PlatformDiscord:
		return s.saveDiscordAccount(ctx, userID, token)
	}
	return nil
}

func (s *platformService) saveLinkedinAccount(ctx context.Context, userID int64, token *oauth2.Token) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.linkedin.com/v2/userinfo", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("LinkedIn userinfo endpoint returned non-200 status")
		return errors.New("LinkedIn userinfo endpoint returned non-200 status")
	}

	var profile transfer.LinkedinProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefreshToken := ""
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformLinkedin,
		AccountID:       profile.Sub,
		AccountName:     profile.Name,
		AccountUsername: profile.Email,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  token.Expiry,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

// saveDiscordAccount stores the incoming webhook Discord attaches to the
// token response of the webhook.incoming scope.
func (s *platformService) saveDiscordAccount(ctx context.Context, userID int64, token *oauth2.Token) error {
	raw, ok := token.Extra("webhook").(map[string]any)
	if !ok {
		err := errors.New("discord token response is missing the webhook object")
		slog.Info(err.Error())
		return err
	}

	webhookURL, _ := raw["url"].(string)
	channelID, _ := raw["channel_id"].(string)
	name, _ := raw["name"].(string)
	if webhookURL == "" {
		err := errors.New("discord webhook url is empty")
		slog.Info(err.Error())
		return err
	}

	encryptedURL, err := utils.Encrypt([]byte(webhookURL), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		UserID:      userID,
		Platform:    models.PlatformDiscord,
		AccountID:   channelID,
		AccountName: name,
		AccessToken: encryptedURL,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

// ConnectBluesky verifies the handle and app password by opening a session,
// then stores the app password encrypted.
func (s *platformService) ConnectBluesky(ctx context.Context, userID int64, bc *transfer.BlueskyConnect) error {
	if bc == nil || bc.Handle == "" || bc.AppPassword == "" {
		return Invalid("handle and app_password are required")
	}

	session, err := s.blueskySession(ctx, bc.Handle, bc.AppPassword)
	if err != nil {
		return Invalid("unable to sign in to Bluesky with the given credentials")
	}

	encryptedPassword, err := utils.Encrypt([]byte(bc.AppPassword), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformBluesky,
		AccountID:       session.DID,
		AccountName:     session.Handle,
		AccountUsername: session.Handle,
		AccessToken:     encryptedPassword,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

func (s *platformService) blueskySession(ctx context.Context, identifier, password string) (*transfer.BlueskySession, error) {
	payload, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BlueskyPDSURL+"/xrpc/com.atproto.server.createSession", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("Bluesky createSession returned non-200 status")
		return nil, errors.New("Bluesky createSession returned non-200 status")
	}

	var session transfer.BlueskySession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &session, nil
}

func (s *platformService) ConnectTelegram(ctx context.Context, userID int64, tc *transfer.TelegramConnect) error {
	if tc == nil || tc.ChatID == "" {
		return Invalid("chat_id is required")
	}

	accountInfo := &models.SocialAccount{
		UserID:      userID,
		Platform:    models.PlatformTelegram,
		AccountID:   tc.ChatID,
		AccountName: tc.Title,
	}

	_, err := s.sa.Create(ctx, nil, accountInfo)
	return err
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts")
	}
	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		return ErrNotFound
	}

	return s.sa.Remove(ctx, accountID)
}

// RefreshToken renews an expiring OAuth token. Only LinkedIn issues refresh
// tokens here; other platforms have non-expiring credentials.
func (s *platformService) RefreshToken(ctx context.Context, acc *models.SocialAccount) error {
	if acc.Platform != models.PlatformLinkedin || acc.RefreshToken == "" {
		return nil
	}

	oauthCfg := s.oauthConfig(acc.Platform)

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	token, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefreshToken := acc.RefreshToken
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	updated := models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: token.Expiry,
	}

	return s.sa.SetTokens(ctx, acc.ID, &updated)
}
