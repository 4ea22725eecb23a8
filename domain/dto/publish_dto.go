package dto

import (
	"time"

	"social-publisher/domain/model"
)

type PublishRequest struct {
	PostID    string   `json:"postId" binding:"required"`
	Platforms []string `json:"platforms"`
}

type CreatePostRequest struct {
	Content     string           `json:"content" binding:"required"`
	MediaRefs   []model.MediaRef `json:"mediaRefs"`
	Platforms   []string         `json:"platforms" binding:"required"`
	ScheduledAt *time.Time       `json:"scheduledAt"`
}

type SchedulePostRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

type AuthURLResponse struct {
	Platform model.Platform `json:"platform"`
	AuthURL  string         `json:"authUrl"`
}

type ConnectionResponse struct {
	Connection model.Connection `json:"connection"`
	Profile    model.Token      `json:"profile"`
}

type PlatformStatsResponse struct {
	Platform model.Platform      `json:"platform"`
	Stats    model.PlatformStats `json:"stats"`
}

type ServiceStatusResponse struct {
	Status              string           `json:"status"`
	SupportedPlatforms  []model.Platform `json:"supportedPlatforms"`
	ConfiguredPlatforms []model.Platform `json:"configuredPlatforms"`
}
