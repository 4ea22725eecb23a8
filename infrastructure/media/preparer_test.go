package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"social-publisher/domain/model"
)

func TestPreparer_Prepare(t *testing.T) {
	p := NewPreparer()

	tests := []struct {
		name     string
		platform model.Platform
		ref      model.MediaRef
		wantErr  error
	}{
		{
			name:     "conforming image",
			platform: model.PlatformInstagram,
			ref:      model.MediaRef{URL: "https://cdn.example.com/a.JPG", SizeBytes: 2 * mb, Width: 1080, Height: 1080},
		},
		{
			name:     "format not allowed",
			platform: model.PlatformBluesky,
			ref:      model.MediaRef{URL: "https://cdn.example.com/a.gif"},
			wantErr:  model.ErrUnsupportedFormat,
		},
		{
			name:     "video on a platform without video",
			platform: model.PlatformBluesky,
			ref:      model.MediaRef{URL: "https://cdn.example.com/a.jpg", Kind: model.MediaVideo},
			wantErr:  model.ErrUnsupportedFormat,
		},
		{
			name:     "image too large",
			platform: model.PlatformBluesky,
			ref:      model.MediaRef{URL: "https://cdn.example.com/a.png", SizeBytes: 2 * mb},
			wantErr:  model.ErrMediaTooLarge,
		},
		{
			name:     "video too long",
			platform: model.PlatformX,
			ref:      model.MediaRef{URL: "https://cdn.example.com/v.mp4", DurationSeconds: 141},
			wantErr:  model.ErrMediaTooLarge,
		},
		{
			name:     "image below minimum dimensions",
			platform: model.PlatformInstagram,
			ref:      model.MediaRef{URL: "https://cdn.example.com/a.png", Width: 320, Height: 320},
			wantErr:  model.ErrUnsupportedFormat,
		},
		{
			name:     "image above maximum dimensions",
			platform: model.PlatformLinkedIn,
			ref:      model.MediaRef{URL: "https://cdn.example.com/a.png", Width: 4000, Height: 3000},
			wantErr:  model.ErrMediaTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Prepare(context.Background(), tt.ref, p.Requirements(tt.platform))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ref.URL, out.URL)
		})
	}
}

func TestPreparer_InfersFormatAndKind(t *testing.T) {
	p := NewPreparer()

	out, err := p.Prepare(context.Background(), model.MediaRef{URL: "https://cdn.example.com/clip.MP4?sig=abc", DurationSeconds: 30}, p.Requirements(model.PlatformMastodon))

	require.NoError(t, err)
	assert.Equal(t, "mp4", out.Format)
	assert.Equal(t, model.MediaVideo, out.Kind)
}

func TestRequirements_CoverEveryPlatform(t *testing.T) {
	p := NewPreparer()
	for _, platform := range model.AllPlatforms {
		req := p.Requirements(platform)
		assert.NotEmpty(t, req.AllowedFormats, platform)
		assert.Positive(t, req.MaxTextLength, platform)
	}
	assert.Equal(t, 280, p.Requirements(model.PlatformX).MaxTextLength)
	assert.Zero(t, p.Requirements(model.PlatformBluesky).MaxVideoDuration)
}

func TestCheckText(t *testing.T) {
	req := NewPreparer().Requirements(model.PlatformBluesky)

	assert.NoError(t, NewPreparer().CheckText(req, "short"))
	long := make([]rune, 301)
	for i := range long {
		long[i] = 'é'
	}
	assert.Error(t, NewPreparer().CheckText(req, string(long)))
	assert.NoError(t, NewPreparer().CheckText(req, string(long[:300])))
}
