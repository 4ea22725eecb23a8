package platform

import (
	"context"
	"net/http"

	"social-publisher/domain/model"
)

const pinterestAPIURL = "https://api.pinterest.com"

// PinterestClient creates pins on the account's first board.
type PinterestClient struct{ api }

func (c *PinterestClient) Platform() model.Platform { return model.PlatformPinterest }

type pinterestPin struct {
	BoardID     string               `json:"board_id"`
	Description string               `json:"description"`
	MediaSource pinterestMediaSource `json:"media_source"`
}

type pinterestMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

func (c *PinterestClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	if len(req.Media) == 0 || req.Media[0].Kind != model.MediaImage {
		return model.PublishReceipt{}, &model.PublishError{Platform: c.platform, Code: model.CodeInvalidContent, Message: "pinterest pins require an image"}
	}
	var boards struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v5/boards?page_size=1", token: req.Credentials.AccessToken}, &boards); err != nil {
		return model.PublishReceipt{}, err
	}
	if len(boards.Items) == 0 {
		return model.PublishReceipt{}, &model.PublishError{Platform: c.platform, Code: model.CodeInvalidContent, Message: "pinterest account has no boards"}
	}

	body, err := jsonBody(pinterestPin{
		BoardID:     boards.Items[0].ID,
		Description: req.Content,
		MediaSource: pinterestMediaSource{SourceType: "image_url", URL: req.Media[0].URL},
	})
	if err != nil {
		return model.PublishReceipt{}, err
	}
	var out struct {
		ID string `json:"id"`
	}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/v5/pins", token: req.Credentials.AccessToken, body: body}, &out); err != nil {
		return model.PublishReceipt{}, err
	}
	return model.PublishReceipt{ExternalPostID: out.ID, URL: "https://www.pinterest.com/pin/" + out.ID}, nil
}

func (c *PinterestClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	var data struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		ProfileImage string `json:"profile_image"`
	}
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/v5/user_account", token: creds.AccessToken}, &data); err != nil {
		return model.UserProfile{}, profileError(c.platform, err)
	}
	return model.UserProfile{ID: data.ID, Handle: data.Username, DisplayName: data.Username, ProfileImageURL: data.ProfileImage}, nil
}
