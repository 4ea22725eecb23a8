package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IPlatformClient is the per-platform publish and profile capability.
type IPlatformClient interface {
	Platform() model.Platform
	Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error)
	FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error)
}

// IPlatformRegistry resolves platform clients.
type IPlatformRegistry interface {
	Client(platform model.Platform) (IPlatformClient, error)
}

// IMediaPreparer conforms media to a platform's requirements.
type IMediaPreparer interface {
	Requirements(platform model.Platform) model.PlatformMediaRequirements
	Prepare(ctx context.Context, ref model.MediaRef, req model.PlatformMediaRequirements) (model.PreparedMedia, error)
	// CheckText fails when content exceeds the platform's text limit.
	CheckText(req model.PlatformMediaRequirements, content string) error
}
