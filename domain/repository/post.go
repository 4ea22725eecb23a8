package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

type IPost interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	// ListDueScheduled returns scheduled posts whose time has come.
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Post, error)
	// TransitionStatus moves the post to `to` only when its current status is
	// one of `from`. It returns model.ErrInvalidPostTransition otherwise.
	TransitionStatus(ctx context.Context, postID string, from []model.PostStatus, to model.PostStatus, reason *string) error
	Schedule(ctx context.Context, postID string, at time.Time) error
	CountByStatus(ctx context.Context) (map[model.PostStatus]int64, error)
}
