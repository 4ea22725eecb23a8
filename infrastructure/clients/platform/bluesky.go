package platform

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"social-publisher/domain/model"
)

const blueskyPDSURL = "https://bsky.social"

// BlueskyClient writes feed post records to the account's repo.
type BlueskyClient struct{ api }

func (c *BlueskyClient) Platform() model.Platform { return model.PlatformBluesky }

type blueskyRecord struct {
	Type      string `json:"$type"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type blueskySession struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

func (c *BlueskyClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	repo := req.Credentials.PlatformAccountID
	if repo == "" {
		session, err := c.session(ctx, req.Credentials.AccessToken)
		if err != nil {
			return model.PublishReceipt{}, err
		}
		repo = session.DID
	}
	body, err := jsonBody(map[string]any{
		"repo":       repo,
		"collection": "app.bsky.feed.post",
		"record": blueskyRecord{
			Type:      "app.bsky.feed.post",
			Text:      withMediaLinks(req.Content, req.Media),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return model.PublishReceipt{}, err
	}
	var out struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/xrpc/com.atproto.repo.createRecord", token: req.Credentials.AccessToken, body: body}, &out); err != nil {
		return model.PublishReceipt{}, err
	}
	return model.PublishReceipt{ExternalPostID: out.URI}, nil
}

func (c *BlueskyClient) session(ctx context.Context, token string) (blueskySession, error) {
	var s blueskySession
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/xrpc/com.atproto.server.getSession", token: token}, &s)
	return s, err
}

func (c *BlueskyClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	actor := creds.PlatformAccountID
	if actor == "" {
		s, err := c.session(ctx, creds.AccessToken)
		if err != nil {
			return model.UserProfile{}, profileError(c.platform, err)
		}
		actor = s.DID
	}
	var data struct {
		DID         string `json:"did"`
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
		Avatar      string `json:"avatar"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/xrpc/app.bsky.actor.getProfile?actor=" + url.QueryEscape(actor), token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	return model.UserProfile{ID: data.DID, Handle: data.Handle, DisplayName: data.DisplayName, ProfileImageURL: data.Avatar}, nil
}
