package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IPublishJob is the durable job queue.
type IPublishJob interface {
	// EnsureActiveJob returns the post's active job, creating one when none
	// exists. created reports whether a new row was inserted.
	EnsureActiveJob(ctx context.Context, job *model.PublishJob) (out *model.PublishJob, created bool, err error)
	GetJob(ctx context.Context, jobID string) (*model.PublishJob, error)
	GetLatestJobForPost(ctx context.Context, postID string) (*model.PublishJob, error)
	// PromoteJob moves a pending job whose next run is due to ready.
	PromoteJob(ctx context.Context, jobID string, now time.Time) (bool, error)
	PromoteDueRetries(ctx context.Context, now time.Time) (int64, error)
	// ReclaimExpiredLeases returns abandoned in-flight jobs to ready. Jobs that
	// already used every attempt are marked dead and returned as exhausted.
	ReclaimExpiredLeases(ctx context.Context, now time.Time) (reclaimed int64, exhausted []model.PublishJob, err error)
	// ClaimNext leases the oldest ready job, or returns nil when none is ready.
	// Claiming consumes one attempt.
	ClaimNext(ctx context.Context, owner string, now time.Time, lease time.Duration) (*model.PublishJob, error)
	// ClaimJob leases a specific pending or ready job.
	ClaimJob(ctx context.Context, jobID, owner string, now time.Time, lease time.Duration) (*model.PublishJob, error)
	// CompleteJob writes the outcome when owner still holds the lease.
	CompleteJob(ctx context.Context, job *model.PublishJob, owner string) error
	CountByState(ctx context.Context) (map[model.JobState]int64, error)
}

// IPublishResult stores immutable platform results and run summaries.
type IPublishResult interface {
	// RecordRun stores this attempt's results and the aggregate in one transaction.
	RecordRun(ctx context.Context, job *model.PublishJob, attempt int, attempted []model.PlatformResult, aggregate *model.PublishResult) error
	// LatestResults returns the most recent result per platform for a post.
	LatestResults(ctx context.Context, postID string) (map[model.Platform]model.PlatformResult, error)
	GetStats(ctx context.Context) (*model.PublishStats, error)
	GetPlatformStats(ctx context.Context, platform model.Platform) (*model.PlatformStats, error)
}

// IPublishAudit appends attempt records to the audit log.
type IPublishAudit interface {
	RecordAttempts(ctx context.Context, audits []model.PublishAttemptAudit) error
	// ListAttempts returns a post's attempts, newest first.
	ListAttempts(ctx context.Context, postID string, limit int64) ([]model.PublishAttemptAudit, error)
}

// IPublishNotifier receives every recorded platform result.
type IPublishNotifier interface {
	NotifyPublishEvent(ctx context.Context, event model.PublishEvent) error
}
