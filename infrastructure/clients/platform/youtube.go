package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"social-publisher/domain/model"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeClient reads the channel through the generated YouTube Data API
// client. Video upload is not wired yet.
type YouTubeClient struct {
	client *http.Client
	// endpoint overrides the API root, used by tests.
	endpoint string
}

func (c *YouTubeClient) Platform() model.Platform { return model.PlatformYouTube }

func (c *YouTubeClient) Publish(context.Context, model.PublishRequest) (model.PublishReceipt, error) {
	return model.PublishReceipt{}, notImplemented(model.PlatformYouTube)
}

func (c *YouTubeClient) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

func (c *YouTubeClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	service, err := c.service(ctx, creds.AccessToken)
	if err != nil {
		return model.UserProfile{}, profileError(model.PlatformYouTube, err)
	}
	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return model.UserProfile{}, profileError(model.PlatformYouTube, classifyStatus(model.PlatformYouTube, apiErr.Code, apiErr.Message))
		}
		return model.UserProfile{}, profileError(model.PlatformYouTube, classifyTransport(ctx, model.PlatformYouTube, err))
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return model.UserProfile{}, profileError(model.PlatformYouTube, errors.New("no channel found"))
	}
	channel := resp.Items[0]
	handle := channel.Snippet.CustomUrl
	if handle == "" {
		handle = channel.Snippet.Title
	}
	profile := model.UserProfile{ID: channel.Id, Handle: handle, DisplayName: channel.Snippet.Title}
	if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
		profile.ProfileImageURL = channel.Snippet.Thumbnails.Default.Url
	}
	return profile, nil
}
