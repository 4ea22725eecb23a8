package platform

import (
	"context"
	"net/http"

	"social-publisher/domain/model"
)

const xAPIURL = "https://api.twitter.com"

// XClient posts through the v2 tweets endpoint. Media is shared as links.
type XClient struct{ api }

func (c *XClient) Platform() model.Platform { return model.PlatformX }

func (c *XClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	body, err := jsonBody(map[string]string{"text": withMediaLinks(req.Content, req.Media)})
	if err != nil {
		return model.PublishReceipt{}, err
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/2/tweets", token: req.Credentials.AccessToken, body: body}, &out); err != nil {
		return model.PublishReceipt{}, err
	}
	receipt := model.PublishReceipt{ExternalPostID: out.Data.ID}
	if req.Credentials.AccountHandle != "" {
		receipt.URL = "https://x.com/" + req.Credentials.AccountHandle + "/status/" + out.Data.ID
	}
	return receipt, nil
}

func (c *XClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var out struct {
		Data struct {
			ID              string `json:"id"`
			Username        string `json:"username"`
			Name            string `json:"name"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/2/users/me?user.fields=profile_image_url", token: creds.AccessToken}, &out); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	return model.UserProfile{ID: out.Data.ID, Handle: out.Data.Username, DisplayName: out.Data.Name, ProfileImageURL: out.Data.ProfileImageURL}, nil
}
