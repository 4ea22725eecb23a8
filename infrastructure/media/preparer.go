package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// Preparer checks media references against a platform's limits. Conforming
// references are returned unchanged; transcoding happens upstream.
type Preparer struct{}

var _ repository.IMediaPreparer = (*Preparer)(nil)

func NewPreparer() *Preparer { return &Preparer{} }

func (p *Preparer) Requirements(platform model.Platform) model.PlatformMediaRequirements {
	return requirements[platform]
}

func (p *Preparer) Prepare(ctx context.Context, ref model.MediaRef, req model.PlatformMediaRequirements) (model.PreparedMedia, error) {
	if err := ctx.Err(); err != nil {
		return model.PreparedMedia{}, err
	}
	ref.Format = normalizeFormat(ref)
	if ref.Kind == "" {
		ref.Kind = model.MediaImage
		if videoFormats[ref.Format] {
			ref.Kind = model.MediaVideo
		}
	}

	if !slices.Contains(req.AllowedFormats, ref.Format) {
		return model.PreparedMedia{}, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, ref.Format)
	}

	if ref.Kind == model.MediaVideo {
		if req.MaxVideoDuration <= 0 {
			return model.PreparedMedia{}, fmt.Errorf("%w: video not supported", model.ErrUnsupportedFormat)
		}
		if ref.SizeBytes > 0 && ref.SizeBytes > req.MaxVideoFileSize {
			return model.PreparedMedia{}, fmt.Errorf("%w: video is %d bytes, limit %d", model.ErrMediaTooLarge, ref.SizeBytes, req.MaxVideoFileSize)
		}
		duration := time.Duration(ref.DurationSeconds * float64(time.Second))
		if duration > req.MaxVideoDuration {
			return model.PreparedMedia{}, fmt.Errorf("%w: video runs %s, limit %s", model.ErrMediaTooLarge, duration, req.MaxVideoDuration)
		}
		return model.PreparedMedia{MediaRef: ref}, nil
	}

	if ref.SizeBytes > 0 && ref.SizeBytes > req.MaxFileSize {
		return model.PreparedMedia{}, fmt.Errorf("%w: image is %d bytes, limit %d", model.ErrMediaTooLarge, ref.SizeBytes, req.MaxFileSize)
	}
	if ref.Width > 0 && ref.Height > 0 {
		if ref.Width > req.MaxImageDimensions.Width || ref.Height > req.MaxImageDimensions.Height {
			return model.PreparedMedia{}, fmt.Errorf("%w: image is %dx%d, max %dx%d", model.ErrMediaTooLarge,
				ref.Width, ref.Height, req.MaxImageDimensions.Width, req.MaxImageDimensions.Height)
		}
		if ref.Width < req.MinImageDimensions.Width || ref.Height < req.MinImageDimensions.Height {
			return model.PreparedMedia{}, fmt.Errorf("%w: image is %dx%d, min %dx%d", model.ErrUnsupportedFormat,
				ref.Width, ref.Height, req.MinImageDimensions.Width, req.MinImageDimensions.Height)
		}
	}
	return model.PreparedMedia{MediaRef: ref}, nil
}

// CheckText reports whether content fits the platform's text limit.
func (p *Preparer) CheckText(req model.PlatformMediaRequirements, content string) error {
	if req.MaxTextLength > 0 && utf8.RuneCountInString(content) > req.MaxTextLength {
		return fmt.Errorf("content is %d characters, limit %d", utf8.RuneCountInString(content), req.MaxTextLength)
	}
	return nil
}

func normalizeFormat(ref model.MediaRef) string {
	f := strings.ToLower(strings.TrimPrefix(ref.Format, "."))
	if f != "" {
		return f
	}
	u, err := url.Parse(ref.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
}
