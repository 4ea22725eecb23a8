package configuration

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"social-publisher/domain/model"
)

type oauthEndpoint struct {
	authURL  string
	tokenURL string
	scopes   []string
	// credentialsFrom shares another platform's client (threads uses the Meta app).
	credentialsFrom model.Platform
	// envAliases are legacy prefixes checked after the platform's own.
	envAliases []string
	dynamic    bool
}

var oauthEndpoints = map[model.Platform]oauthEndpoint{
	model.PlatformInstagram: {
		authURL:  "https://api.instagram.com/oauth/authorize",
		tokenURL: "https://graph.instagram.com/v18.0/oauth/access_token",
		scopes:   []string{"instagram_basic", "instagram_content_publishing", "user_profile"},
	},
	model.PlatformFacebook: {
		authURL:  "https://www.facebook.com/v19.0/dialog/oauth",
		tokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
		scopes:   []string{"pages_manage_posts", "pages_read_engagement", "pages_show_list", "public_profile"},
	},
	model.PlatformLinkedIn: {
		authURL:  "https://www.linkedin.com/oauth/v2/authorization",
		tokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
		scopes:   []string{"w_member_social", "r_basicprofile", "r_liteprofile"},
	},
	model.PlatformX: {
		authURL:    "https://twitter.com/i/oauth2/authorize",
		tokenURL:   "https://api.twitter.com/2/oauth2/token",
		scopes:     []string{"tweet.write", "tweet.read", "users.read", "offline.access"},
		envAliases: []string{"TWITTER"},
	},
	model.PlatformTikTok: {
		authURL:  "https://www.tiktok.com/v2/auth/authorize/",
		tokenURL: "https://open.tiktokapis.com/v2/oauth/token/",
		scopes:   []string{"user.info.basic", "video.upload", "video.publish"},
	},
	model.PlatformYouTube: {
		authURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL: "https://oauth2.googleapis.com/token",
		scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	},
	model.PlatformThreads: {
		authURL:         "https://threads.net/oauth/authorize",
		tokenURL:        "https://graph.threads.net/oauth/access_token",
		scopes:          []string{"threads_basic", "threads_content_publish"},
		credentialsFrom: model.PlatformInstagram,
	},
	model.PlatformPinterest: {
		authURL:  "https://www.pinterest.com/oauth/",
		tokenURL: "https://api.pinterest.com/v5/oauth/token",
		scopes:   []string{"pins:read", "pins:write", "boards:read", "user_accounts:read"},
	},
	model.PlatformBluesky: {
		authURL:  "https://bsky.social/oauth/authorize",
		tokenURL: "https://bsky.social/oauth/token",
		scopes:   []string{"atproto", "transition:generic"},
	},
	model.PlatformMastodon: {
		scopes:  []string{"read", "write"},
		dynamic: true,
	},
	model.PlatformGoogleBusiness: {
		authURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL: "https://oauth2.googleapis.com/token",
		scopes: []string{
			"https://www.googleapis.com/auth/business.manage",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	},
}

// ValidationResult is the outcome of ValidateAll.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// OAuthRegistry is the immutable per-platform OAuth configuration.
type OAuthRegistry struct {
	configs map[model.Platform]model.OAuthConfig
}

// NewOAuthRegistry builds the registry from cfg. Environment variables named
// <PLATFORM>_CLIENT_ID, <PLATFORM>_CLIENT_SECRET and <PLATFORM>_REDIRECT_URI
// take precedence over the config file.
func NewOAuthRegistry(cfg Config) *OAuthRegistry {
	r := &OAuthRegistry{configs: make(map[model.Platform]model.OAuthConfig, len(oauthEndpoints))}
	for _, p := range model.AllPlatforms {
		ep := oauthEndpoints[p]
		client := cfg.OAuth[string(p)]
		credsFrom := p
		if ep.credentialsFrom != "" && client.ClientID == "" && os.Getenv(p.EnvPrefix()+"_CLIENT_ID") == "" {
			credsFrom = ep.credentialsFrom
			client = cfg.OAuth[string(credsFrom)]
		}
		prefixes := append([]string{credsFrom.EnvPrefix()}, oauthEndpoints[credsFrom].envAliases...)

		scopes := ep.scopes
		if len(client.Scopes) > 0 {
			scopes = client.Scopes
		}
		redirect := firstEnv([]string{p.EnvPrefix()}, "_REDIRECT_URI", cfg.OAuth[string(p)].RedirectURI)
		if redirect == "" {
			redirect = fmt.Sprintf("%s/auth/%s/callback", cfg.App.BaseURL, p)
		}
		r.configs[p] = model.OAuthConfig{
			Platform:     p,
			AuthorizeURL: ep.authURL,
			TokenURL:     ep.tokenURL,
			Scopes:       append([]string(nil), scopes...),
			ClientID:     firstEnv(prefixes, "_CLIENT_ID", client.ClientID),
			ClientSecret: firstEnv(prefixes, "_CLIENT_SECRET", client.ClientSecret),
			RedirectURI:  redirect,
			Dynamic:      ep.dynamic,
		}
	}
	return r
}

func firstEnv(prefixes []string, suffix, fallback string) string {
	for _, prefix := range prefixes {
		if v := os.Getenv(prefix + suffix); v != "" {
			return v
		}
	}
	return fallback
}

// Get returns the platform's config or fails when it cannot be used.
func (r *OAuthRegistry) Get(platform model.Platform) (model.OAuthConfig, error) {
	cfg, ok := r.configs[platform]
	if !ok {
		return model.OAuthConfig{}, fmt.Errorf("%w: %q", model.ErrUnsupportedPlatform, platform)
	}
	if !cfg.HasCredentials() {
		return model.OAuthConfig{}, fmt.Errorf("%w: %s client credentials missing", model.ErrPlatformNotConfigured, platform)
	}
	if !cfg.Dynamic && !cfg.HasEndpoints() {
		return model.OAuthConfig{}, fmt.Errorf("%w: %s endpoints missing", model.ErrPlatformNotConfigured, platform)
	}
	return cfg, nil
}

func (r *OAuthRegistry) IsConfigured(platform model.Platform) bool {
	_, err := r.Get(platform)
	return err == nil
}

// ListConfigured returns the usable platforms in canonical order.
func (r *OAuthRegistry) ListConfigured() []model.Platform {
	out := make([]model.Platform, 0, len(r.configs))
	for _, p := range model.AllPlatforms {
		if r.IsConfigured(p) {
			out = append(out, p)
		}
	}
	return out
}

// ValidateAll reports every missing credential or endpoint. Dynamic platforms
// are exempt from the endpoint checks.
func (r *OAuthRegistry) ValidateAll() ValidationResult {
	var errs []string
	for _, p := range model.AllPlatforms {
		cfg := r.configs[p]
		if cfg.ClientID == "" {
			errs = append(errs, fmt.Sprintf("Missing OAuth client ID for %s", p))
		}
		if cfg.ClientSecret == "" {
			errs = append(errs, fmt.Sprintf("Missing OAuth client secret for %s", p))
		}
		if cfg.Dynamic {
			continue
		}
		if cfg.AuthorizeURL == "" {
			errs = append(errs, fmt.Sprintf("Missing auth URL for %s", p))
		}
		if cfg.TokenURL == "" {
			errs = append(errs, fmt.Sprintf("Missing token URL for %s", p))
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Resolve returns the config with endpoints derived from instanceURL for
// dynamic platforms. Static platforms ignore instanceURL.
func (r *OAuthRegistry) Resolve(platform model.Platform, instanceURL string) (model.OAuthConfig, error) {
	cfg, err := r.Get(platform)
	if err != nil {
		return model.OAuthConfig{}, err
	}
	if !cfg.Dynamic {
		return cfg, nil
	}
	base, err := NormalizeInstanceURL(instanceURL)
	if err != nil {
		return model.OAuthConfig{}, err
	}
	cfg.AuthorizeURL = base + "/oauth/authorize"
	cfg.TokenURL = base + "/oauth/token"
	cfg.Scopes = append([]string(nil), cfg.Scopes...)
	return cfg, nil
}

// NormalizeInstanceURL validates a self-hosted instance base URL. Plain http
// is only accepted for local development hosts.
func NormalizeInstanceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: instance url required", model.ErrInvalidInstanceURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidInstanceURL, raw)
	}
	host := u.Hostname()
	local := host == "localhost" || host == "127.0.0.1"
	if u.Scheme != "https" && !(u.Scheme == "http" && local) {
		return "", fmt.Errorf("%w: %q must use https", model.ErrInvalidInstanceURL, raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
