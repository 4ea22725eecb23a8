package model

import "time"

type PostStatus string

const (
	PostDraft           PostStatus = "draft"
	PostScheduled       PostStatus = "scheduled"
	PostQueued          PostStatus = "queued"
	PostPublished       PostStatus = "published"
	PostFailed          PostStatus = "failed"
	PostPartiallyFailed PostStatus = "partially_failed"
)

// Terminal reports whether the status ends a publish cycle.
func (s PostStatus) Terminal() bool {
	return s == PostPublished || s == PostFailed || s == PostPartiallyFailed
}

// Retryable reports whether an operator may move the post back to queued.
func (s PostStatus) Retryable() bool {
	return s == PostFailed || s == PostPartiallyFailed
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaRef points at an uploaded asset. Size and dimensions are optional
// hints supplied by the uploader.
type MediaRef struct {
	URL             string    `json:"url"`
	Kind            MediaKind `json:"kind"`
	Format          string    `json:"format,omitempty"`
	SizeBytes       int64     `json:"sizeBytes,omitempty"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
}

// Post is one piece of authored content targeting several platforms.
type Post struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Content       string     `json:"content"`
	MediaRefs     []MediaRef `json:"mediaRefs"`
	Status        PostStatus `json:"status"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	Platforms     []Platform `json:"platforms"`
	FailureReason *string    `json:"failureReason,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
