package platform

import (
	"context"
	"net/http"
	"strings"

	"social-publisher/domain/model"
)

const linkedInAPIURL = "https://api.linkedin.com"

type LinkedInClient struct{ api }

func (c *LinkedInClient) Platform() model.Platform { return model.PlatformLinkedIn }

type linkedInShare struct {
	Author          string                     `json:"author"`
	LifecycleState  string                     `json:"lifecycleState"`
	SpecificContent map[string]linkedInContent `json:"specificContent"`
	Visibility      map[string]string          `json:"visibility"`
}

type linkedInContent struct {
	ShareCommentary    linkedInText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []linkedInMedia `json:"media,omitempty"`
}

type linkedInText struct {
	Text string `json:"text"`
}

type linkedInMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

func (c *LinkedInClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	content := linkedInContent{ShareCommentary: linkedInText{Text: req.Content}, ShareMediaCategory: "NONE"}
	if len(req.Media) > 0 {
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []linkedInMedia{{Status: "READY", OriginalURL: req.Media[0].URL}}
	}
	author := req.Credentials.PlatformAccountID
	if !strings.HasPrefix(author, "urn:li:") {
		author = "urn:li:person:" + author
	}
	body, err := jsonBody(linkedInShare{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]linkedInContent{"com.linkedin.ugc.ShareContent": content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	})
	if err != nil {
		return model.PublishReceipt{}, err
	}

	var out struct {
		ID string `json:"id"`
	}
	header, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/v2/ugcPosts",
		token:  req.Credentials.AccessToken,
		body:   body,
		header: map[string]string{"X-Restli-Protocol-Version": "2.0.0"},
	}, &out)
	if err != nil {
		return model.PublishReceipt{}, err
	}
	id := out.ID
	if id == "" {
		id = header.Get("X-RestLi-Id")
	}
	return model.PublishReceipt{ExternalPostID: id, URL: "https://www.linkedin.com/feed/update/" + id}, nil
}

func (c *LinkedInClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var data struct {
		ID                 string `json:"id"`
		LocalizedFirstName string `json:"localizedFirstName"`
		LocalizedLastName  string `json:"localizedLastName"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v2/me", token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	name := strings.TrimSpace(data.LocalizedFirstName + " " + data.LocalizedLastName)
	return model.UserProfile{ID: data.ID, Handle: name, DisplayName: name}, nil
}
