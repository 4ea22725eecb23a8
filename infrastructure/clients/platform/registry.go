package platform

import (
	"fmt"
	"net/http"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// Options configures NewRegistry. BaseURLs replaces a platform's API root,
// which tests point at an httptest server.
type Options struct {
	HTTPClient *http.Client
	BaseURLs   map[model.Platform]string
}

var defaultBaseURLs = map[model.Platform]string{
	model.PlatformInstagram:      instagramGraphURL,
	model.PlatformFacebook:       facebookGraphURL,
	model.PlatformThreads:        threadsGraphURL,
	model.PlatformX:              xAPIURL,
	model.PlatformLinkedIn:       linkedInAPIURL,
	model.PlatformMastodon:       defaultMastodonURL,
	model.PlatformPinterest:      pinterestAPIURL,
	model.PlatformBluesky:        blueskyPDSURL,
	model.PlatformTikTok:         tiktokAPIURL,
	model.PlatformGoogleBusiness: googleBusinessAPIURL,
}

// Registry holds one client per supported platform.
type Registry struct {
	clients map[model.Platform]repository.IPlatformClient
}

var _ repository.IPlatformRegistry = (*Registry)(nil)

func NewRegistry(opts Options) *Registry {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := func(p model.Platform) api {
		url := defaultBaseURLs[p]
		if v, ok := opts.BaseURLs[p]; ok {
			url = v
		}
		return api{platform: p, client: client, baseURL: url}
	}

	r := &Registry{clients: map[model.Platform]repository.IPlatformClient{
		model.PlatformInstagram:      &InstagramClient{base(model.PlatformInstagram)},
		model.PlatformFacebook:       &FacebookClient{base(model.PlatformFacebook)},
		model.PlatformThreads:        &ThreadsClient{base(model.PlatformThreads)},
		model.PlatformX:              &XClient{base(model.PlatformX)},
		model.PlatformLinkedIn:       &LinkedInClient{base(model.PlatformLinkedIn)},
		model.PlatformMastodon:       &MastodonClient{base(model.PlatformMastodon)},
		model.PlatformPinterest:      &PinterestClient{base(model.PlatformPinterest)},
		model.PlatformBluesky:        &BlueskyClient{base(model.PlatformBluesky)},
		model.PlatformTikTok:         &TikTokClient{base(model.PlatformTikTok)},
		model.PlatformGoogleBusiness: &GoogleBusinessClient{base(model.PlatformGoogleBusiness)},
		model.PlatformYouTube:        &YouTubeClient{client: client, endpoint: opts.BaseURLs[model.PlatformYouTube]},
	}}
	return r
}

func (r *Registry) Client(platform model.Platform) (repository.IPlatformClient, error) {
	c, ok := r.clients[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedPlatform, platform)
	}
	return c, nil
}
