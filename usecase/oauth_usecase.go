package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"
	"social-publisher/infrastructure/utils"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const stateTokenBytes = 32

type IOAuthUsecase interface {
	ListConfiguredPlatforms() []model.Platform
	GenerateAuthURL(ctx context.Context, userID string, platform model.Platform, opts model.AuthOptions) (string, error)
	HandleCallback(ctx context.Context, code, state string, platform model.Platform) (*model.ConnectionWithToken, error)
	ExchangeCodeForToken(ctx context.Context, code string, platform model.Platform, opts model.AuthOptions) (*model.TokenSet, error)
	FetchUserProfile(ctx context.Context, platform model.Platform, creds model.Credentials) (model.UserProfile, error)
	RefreshToken(ctx context.Context, connectionID string) (*model.Token, error)
	ResolveCredentials(ctx context.Context, userID string, platform model.Platform) (model.Credentials, error)
	ListConnections(ctx context.Context, userID string) ([]model.ConnectionWithToken, error)
}

// authExtras adds platform specific authorize parameters. It may record
// values on the state that the callback needs later, such as a PKCE verifier.
var authExtras = map[model.Platform]func(st *model.AuthorizationState, cfg model.OAuthConfig) []oauth2.AuthCodeOption{
	model.PlatformX: func(st *model.AuthorizationState, _ model.OAuthConfig) []oauth2.AuthCodeOption {
		st.CodeVerifier = oauth2.GenerateVerifier()
		return []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(st.CodeVerifier)}
	},
	model.PlatformFacebook: func(*model.AuthorizationState, model.OAuthConfig) []oauth2.AuthCodeOption {
		return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("display", "popup")}
	},
	model.PlatformYouTube:        offlineConsent,
	model.PlatformGoogleBusiness: offlineConsent,
	model.PlatformTikTok: func(_ *model.AuthorizationState, cfg model.OAuthConfig) []oauth2.AuthCodeOption {
		return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("client_key", cfg.ClientID)}
	},
}

func offlineConsent(*model.AuthorizationState, model.OAuthConfig) []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")}
}

type oauthUsecase struct {
	registry   repository.IOAuthConfigRegistry
	states     repository.IStateStore
	creds      repository.ICredential
	platforms  repository.IPlatformRegistry
	httpClient *http.Client
	refreshes  singleflight.Group
	now        func() time.Time
}

func NewOAuthUsecase(registry repository.IOAuthConfigRegistry, states repository.IStateStore, creds repository.ICredential, platforms repository.IPlatformRegistry, httpTimeout time.Duration) IOAuthUsecase {
	if httpTimeout <= 0 {
		httpTimeout = 15 * time.Second
	}
	return &oauthUsecase{
		registry:   registry,
		states:     states,
		creds:      creds,
		platforms:  platforms,
		httpClient: &http.Client{Timeout: httpTimeout},
		now:        utils.GetCurrentTime,
	}
}

func (u *oauthUsecase) ListConfiguredPlatforms() []model.Platform {
	return u.registry.ListConfigured()
}

func (u *oauthUsecase) oauth2Config(cfg model.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthorizeURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (u *oauthUsecase) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, u.httpClient)
}

func (u *oauthUsecase) GenerateAuthURL(ctx context.Context, userID string, platform model.Platform, opts model.AuthOptions) (string, error) {
	cfg, err := u.registry.Resolve(platform, opts.InstanceURL)
	if err != nil {
		return "", err
	}
	token, err := utils.RandomHex(stateTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	st := model.AuthorizationState{
		StateToken: token,
		UserID:     userID,
		Platform:   platform,
		CreatedAt:  u.now(),
	}
	if cfg.Dynamic {
		st.InstanceURL = strings.TrimSuffix(cfg.AuthorizeURL, "/oauth/authorize")
	}
	var extras []oauth2.AuthCodeOption
	if fn, ok := authExtras[platform]; ok {
		extras = fn(&st, cfg)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	if err := u.states.Set(ctx, token, data, model.AuthorizationStateTTL); err != nil {
		return "", err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"user_id":  userID,
		"platform": platform,
	}).Info("Authorization URL issued")
	return u.oauth2Config(cfg).AuthCodeURL(token, extras...), nil
}

func (u *oauthUsecase) consumeState(ctx context.Context, state string, platform model.Platform) (*model.AuthorizationState, error) {
	data, err := u.states.GetAndDelete(ctx, state)
	if err != nil {
		if errors.Is(err, model.ErrStateNotFound) {
			return nil, model.ErrInvalidOrExpiredState
		}
		return nil, err
	}
	var st model.AuthorizationState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, model.ErrInvalidOrExpiredState
	}
	if st.Platform != platform || st.Expired(u.now(), model.AuthorizationStateTTL) {
		return nil, model.ErrInvalidOrExpiredState
	}
	return &st, nil
}

func (u *oauthUsecase) HandleCallback(ctx context.Context, code, state string, platform model.Platform) (*model.ConnectionWithToken, error) {
	st, err := u.consumeState(ctx, state, platform)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"user_id":  st.UserID,
		"platform": platform,
	})

	tokens, err := u.ExchangeCodeForToken(ctx, code, platform, model.AuthOptions{
		InstanceURL:  st.InstanceURL,
		CodeVerifier: st.CodeVerifier,
	})
	if err != nil {
		log.WithField("error", err).Warn("Token exchange failed")
		return nil, err
	}
	profile, err := u.FetchUserProfile(ctx, platform, model.Credentials{
		AccessToken: tokens.AccessToken,
		InstanceURL: st.InstanceURL,
	})
	if err != nil {
		log.WithField("error", err).Warn("Profile fetch failed")
		return nil, err
	}

	now := u.now()
	conn := &model.Connection{
		UserID:      st.UserID,
		Platform:    platform,
		Status:      model.ConnectionConnected,
		InstanceURL: st.InstanceURL,
		ConnectedAt: now,
		UpdatedAt:   now,
	}
	token := &model.Token{
		AccessToken:       tokens.AccessToken,
		RefreshToken:      tokens.RefreshToken,
		TokenType:         tokens.TokenType,
		Scopes:            tokens.Scope,
		ExpiresAt:         expiresAt(now, tokens.ExpiresIn),
		AccountHandle:     profile.Handle,
		DisplayName:       profile.DisplayName,
		ProfileImageURL:   profile.ProfileImageURL,
		PlatformAccountID: profile.ID,
		UpdatedAt:         now,
	}
	saved, err := u.creds.SaveConnection(ctx, conn, token)
	if err != nil {
		return nil, err
	}
	token.ConnectionID = saved.ID

	log.WithField("connection_id", saved.ID).Info("Connection established")
	return &model.ConnectionWithToken{Connection: *saved, Token: *token}, nil
}

func (u *oauthUsecase) ExchangeCodeForToken(ctx context.Context, code string, platform model.Platform, opts model.AuthOptions) (*model.TokenSet, error) {
	cfg, err := u.registry.Resolve(platform, opts.InstanceURL)
	if err != nil {
		return nil, err
	}
	var params []oauth2.AuthCodeOption
	if opts.CodeVerifier != "" {
		params = append(params, oauth2.VerifierOption(opts.CodeVerifier))
	}
	if platform == model.PlatformTikTok {
		params = append(params, oauth2.SetAuthURLParam("client_key", cfg.ClientID))
	}

	tok, err := u.oauth2Config(cfg).Exchange(u.httpContext(ctx), code, params...)
	if err != nil {
		return nil, tokenExchangeError(platform, err)
	}
	return tokenSet(tok), nil
}

func tokenExchangeError(platform model.Platform, err error) error {
	out := &model.TokenExchangeError{Platform: platform, Err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		out.Err = nil
		out.Body = string(re.Body)
		if re.Response != nil {
			out.StatusCode = re.Response.StatusCode
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": platform,
			"status":   out.StatusCode,
			"body":     out.Body,
		}).Debug("Token endpoint rejected the request")
	}
	return out
}

// tokenSet normalises an oauth2 token. expires_in is read from the raw
// response so the caller's clock decides the absolute expiry.
func tokenSet(tok *oauth2.Token) *model.TokenSet {
	ts := &model.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    rawExpiresIn(tok),
	}
	if ts.TokenType == "" {
		ts.TokenType = "Bearer"
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	return ts
}

func rawExpiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if !tok.Expiry.IsZero() {
		return int64(time.Until(tok.Expiry).Seconds())
	}
	return 0
}

func expiresAt(now time.Time, expiresIn int64) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(expiresIn) * time.Second)
	return &t
}

func (u *oauthUsecase) FetchUserProfile(ctx context.Context, platform model.Platform, creds model.Credentials) (model.UserProfile, error) {
	client, err := u.platforms.Client(platform)
	if err != nil {
		return model.UserProfile{}, err
	}
	return client.FetchProfile(ctx, creds)
}

// RefreshToken collapses concurrent refreshes of one connection into a single
// token endpoint call. The shared call outlives any one caller's context and
// is bounded by the OAuth HTTP timeout instead.
func (u *oauthUsecase) RefreshToken(ctx context.Context, connectionID string) (*model.Token, error) {
	ch := u.refreshes.DoChan(connectionID, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*u.httpClient.Timeout)
		defer cancel()
		return u.refresh(refreshCtx, connectionID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tok := *res.Val.(*model.Token)
		return &tok, nil
	}
}

func (u *oauthUsecase) refresh(ctx context.Context, connectionID string) (*model.Token, error) {
	cwt, err := u.creds.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	platform := cwt.Connection.Platform
	if !cwt.Token.HasRefreshToken() {
		return nil, fmt.Errorf("%w: %s", model.ErrNoRefreshToken, platform)
	}
	cfg, err := u.registry.Resolve(platform, cwt.Connection.InstanceURL)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger().WithFields(map[string]interface{}{
		"connection_id": connectionID,
		"platform":      platform,
	})
	src := u.oauth2Config(cfg).TokenSource(u.httpContext(ctx), &oauth2.Token{RefreshToken: cwt.Token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		metrics.ObserveRefresh(string(platform), false)
		reason := "token refresh failed"
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			reason = fmt.Sprintf("token refresh failed: %s", re.ErrorCode)
		}
		log.WithField("error", err).Warn("Token refresh failed")
		if markErr := u.creds.MarkConnectionError(ctx, connectionID, reason); markErr != nil {
			log.WithField("error", markErr).Error("Failed to mark connection error")
		}
		return nil, fmt.Errorf("%w: %s", model.ErrTokenRefreshFailed, platform)
	}

	now := u.now()
	ts := tokenSet(fresh)
	token := cwt.Token
	token.AccessToken = ts.AccessToken
	if ts.RefreshToken != "" {
		token.RefreshToken = ts.RefreshToken
	}
	token.TokenType = ts.TokenType
	if ts.Scope != "" {
		token.Scopes = ts.Scope
	}
	token.ExpiresAt = expiresAt(now, ts.ExpiresIn)
	token.UpdatedAt = now
	if err := u.creds.ReplaceToken(ctx, &token); err != nil {
		return nil, err
	}

	metrics.ObserveRefresh(string(platform), true)
	log.Info("Token refreshed")
	return &token, nil
}

func (u *oauthUsecase) ResolveCredentials(ctx context.Context, userID string, platform model.Platform) (model.Credentials, error) {
	cwt, err := u.creds.GetConnection(ctx, userID, platform)
	if err != nil {
		return model.Credentials{}, err
	}
	if cwt.Connection.Status == model.ConnectionError {
		return model.Credentials{}, fmt.Errorf("%w: %s", model.ErrReconnectRequired, platform)
	}

	token := cwt.Token
	now := u.now()
	if token.NeedsRefresh(now) {
		switch {
		case token.HasRefreshToken():
			refreshed, err := u.RefreshToken(ctx, cwt.Connection.ID)
			if err != nil {
				return model.Credentials{}, err
			}
			token = *refreshed
		case token.Expired(now):
			return model.Credentials{}, fmt.Errorf("%w: %s token expired", model.ErrReconnectRequired, platform)
		}
	}
	return credentialsFor(cwt.Connection, token), nil
}

func credentialsFor(conn model.Connection, token model.Token) model.Credentials {
	return model.Credentials{
		ConnectionID:      conn.ID,
		AccessToken:       token.AccessToken,
		PlatformAccountID: token.PlatformAccountID,
		AccountHandle:     token.AccountHandle,
		InstanceURL:       conn.InstanceURL,
	}
}

func (u *oauthUsecase) ListConnections(ctx context.Context, userID string) ([]model.ConnectionWithToken, error) {
	return u.creds.ListConnections(ctx, userID)
}
