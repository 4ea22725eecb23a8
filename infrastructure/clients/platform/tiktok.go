package platform

import (
	"context"
	"net/http"

	"social-publisher/domain/model"
)

const tiktokAPIURL = "https://open.tiktokapis.com"

type TikTokClient struct{ api }

func (c *TikTokClient) Platform() model.Platform { return model.PlatformTikTok }

func (c *TikTokClient) Publish(context.Context, model.PublishRequest) (model.PublishReceipt, error) {
	return model.PublishReceipt{}, notImplemented(c.platform)
}

func (c *TikTokClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var out struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				DisplayName string `json:"display_name"`
				AvatarLarge string `json:"avatar_large"`
			} `json:"user"`
		} `json:"data"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v2/user/info/?fields=open_id,union_id,avatar_large,display_name", token: creds.AccessToken}, &out); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	u := out.Data.User
	return model.UserProfile{ID: u.OpenID, Handle: u.DisplayName, DisplayName: u.DisplayName, ProfileImageURL: u.AvatarLarge}, nil
}
