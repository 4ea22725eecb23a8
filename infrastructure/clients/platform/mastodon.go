package platform

import (
	"context"
	"net/http"
	"strings"

	"social-publisher/domain/model"

	"github.com/google/go-querystring/query"
)

const defaultMastodonURL = "https://mastodon.social"

// MastodonClient talks to the instance recorded on the connection.
type MastodonClient struct{ api }

func (c *MastodonClient) Platform() model.Platform { return model.PlatformMastodon }

type mastodonStatusForm struct {
	Status     string `url:"status"`
	Visibility string `url:"visibility"`
}

func (c *MastodonClient) instance(creds model.Credentials) string {
	if creds.InstanceURL != "" {
		return strings.TrimRight(creds.InstanceURL, "/")
	}
	return c.baseURL
}

func (c *MastodonClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	values, err := query.Values(mastodonStatusForm{Status: withMediaLinks(req.Content, req.Media), Visibility: "public"})
	if err != nil {
		return model.PublishReceipt{}, err
	}
	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if _, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        c.instance(req.Credentials) + "/api/v1/statuses",
		token:       req.Credentials.AccessToken,
		contentType: "application/x-www-form-urlencoded",
		body:        strings.NewReader(values.Encode()),
		// the instance drops duplicate statuses carrying the same key
		header: map[string]string{"Idempotency-Key": req.PostID},
	}, &out); err != nil {
		return model.PublishReceipt{}, err
	}
	return model.PublishReceipt{ExternalPostID: out.ID, URL: out.URL}, nil
}

func (c *MastodonClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var data struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Avatar      string `json:"avatar"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: c.instance(creds) + "/api/v1/accounts/verify_credentials", token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	return model.UserProfile{ID: data.ID, Handle: data.Username, DisplayName: data.DisplayName, ProfileImageURL: data.Avatar}, nil
}
