package configuration

import (
	"errors"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		App: App{BaseURL: "https://publisher.example.com"},
		OAuth: map[string]OAuthClient{
			"instagram": {ClientID: "ig-id", ClientSecret: "ig-secret"},
			"facebook":  {ClientID: "fb-id", ClientSecret: "fb-secret", RedirectURI: "https://publisher.example.com/custom/fb"},
			"mastodon":  {ClientID: "md-id", ClientSecret: "md-secret"},
		},
	}
}

func TestConfiguration(t *testing.T) {
	t.Run("configuration_defaults_applied", func(t *testing.T) {
		require.NotZero(t, C.App.Port)
		require.Equal(t, 5, C.Scheduler.MaxAttempts)
		require.Equal(t, 30*time.Second, C.Scheduler.BackoffBase)
		require.Equal(t, 20*time.Second, C.Publish.CallTimeout)
		require.NotEmpty(t, C.App.BaseURL)
	})
}

func TestOAuthRegistry_Get(t *testing.T) {
	registry := NewOAuthRegistry(testConfig())

	cfg, err := registry.Get(model.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, "ig-id", cfg.ClientID)
	assert.Equal(t, "https://api.instagram.com/oauth/authorize", cfg.AuthorizeURL)
	assert.Equal(t, "https://publisher.example.com/auth/instagram/callback", cfg.RedirectURI)
	assert.NotEmpty(t, cfg.Scopes)

	fb, err := registry.Get(model.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, "https://publisher.example.com/custom/fb", fb.RedirectURI)

	_, err = registry.Get(model.PlatformLinkedIn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPlatformNotConfigured))

	_, err = registry.Get(model.Platform("myspace"))
	assert.True(t, errors.Is(err, model.ErrUnsupportedPlatform))
}

func TestOAuthRegistry_EnvOverridesConfig(t *testing.T) {
	t.Setenv("LINKEDIN_CLIENT_ID", "li-env")
	t.Setenv("LINKEDIN_CLIENT_SECRET", "li-env-secret")
	t.Setenv("TWITTER_CLIENT_ID", "x-legacy")
	t.Setenv("TWITTER_CLIENT_SECRET", "x-legacy-secret")

	registry := NewOAuthRegistry(testConfig())

	li, err := registry.Get(model.PlatformLinkedIn)
	require.NoError(t, err)
	assert.Equal(t, "li-env", li.ClientID)

	x, err := registry.Get(model.PlatformX)
	require.NoError(t, err)
	assert.Equal(t, "x-legacy", x.ClientID)
}

func TestOAuthRegistry_ThreadsSharesInstagramCredentials(t *testing.T) {
	registry := NewOAuthRegistry(testConfig())

	threads, err := registry.Get(model.PlatformThreads)
	require.NoError(t, err)
	assert.Equal(t, "ig-id", threads.ClientID)
	assert.Equal(t, "https://publisher.example.com/auth/threads/callback", threads.RedirectURI)
}

func TestOAuthRegistry_ListConfigured(t *testing.T) {
	registry := NewOAuthRegistry(testConfig())

	assert.Equal(t, []model.Platform{
		model.PlatformInstagram,
		model.PlatformFacebook,
		model.PlatformThreads,
		model.PlatformMastodon,
	}, registry.ListConfigured())
	assert.True(t, registry.IsConfigured(model.PlatformMastodon))
	assert.False(t, registry.IsConfigured(model.PlatformYouTube))
}

func TestOAuthRegistry_ValidateAll(t *testing.T) {
	registry := NewOAuthRegistry(testConfig())

	res := registry.ValidateAll()
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Missing OAuth client ID for youtube")
	assert.Contains(t, res.Errors, "Missing OAuth client secret for tiktok")
	for _, e := range res.Errors {
		assert.NotContains(t, e, "URL for mastodon")
	}
}

func TestOAuthRegistry_ResolveDynamicPlatform(t *testing.T) {
	registry := NewOAuthRegistry(testConfig())

	cfg, err := registry.Resolve(model.PlatformMastodon, "fosstodon.org/")
	require.NoError(t, err)
	assert.Equal(t, "https://fosstodon.org/oauth/authorize", cfg.AuthorizeURL)
	assert.Equal(t, "https://fosstodon.org/oauth/token", cfg.TokenURL)

	_, err = registry.Resolve(model.PlatformMastodon, "")
	assert.True(t, errors.Is(err, model.ErrInvalidInstanceURL))

	_, err = registry.Resolve(model.PlatformMastodon, "http://evil.example.com")
	assert.True(t, errors.Is(err, model.ErrInvalidInstanceURL))

	local, err := registry.Resolve(model.PlatformMastodon, "http://localhost:3000")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/oauth/token", local.TokenURL)

	ig, err := registry.Resolve(model.PlatformInstagram, "ignored.example")
	require.NoError(t, err)
	assert.Equal(t, "https://graph.instagram.com/v18.0/oauth/access_token", ig.TokenURL)
}
