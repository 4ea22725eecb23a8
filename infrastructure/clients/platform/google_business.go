package platform

import (
	"context"
	"errors"
	"net/http"

	"social-publisher/domain/model"
)

const googleBusinessAPIURL = "https://mybusinessaccountmanagement.googleapis.com"

type GoogleBusinessClient struct{ api }

func (c *GoogleBusinessClient) Platform() model.Platform { return model.PlatformGoogleBusiness }

func (c *GoogleBusinessClient) Publish(context.Context, model.PublishRequest) (model.PublishReceipt, error) {
	return model.PublishReceipt{}, notImplemented(c.platform)
}

func (c *GoogleBusinessClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var out struct {
		Accounts []struct {
			Name        string `json:"name"`
			AccountName string `json:"accountName"`
		} `json:"accounts"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v1/accounts", token: creds.AccessToken}, &out); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	if len(out.Accounts) == 0 {
		return model.UserProfile{}, profileError(c.platform, errors.New("no business account found"))
	}
	a := out.Accounts[0]
	return model.UserProfile{ID: a.Name, Handle: a.AccountName, DisplayName: a.AccountName}, nil
}
