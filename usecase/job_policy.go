package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"
)

// RetryPolicy bounds how often and how fast a job is retried.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Backoff returns Base * 2^(attempt-1), capped at Max.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

func newPublishJob(post *model.Post, platforms []model.Platform, maxAttempts int, now time.Time) *model.PublishJob {
	return &model.PublishJob{
		PostID:           post.ID,
		UserID:           post.UserID,
		TargetPlatforms:  platforms,
		PendingPlatforms: platforms,
		MaxAttempts:      maxAttempts,
		NextRunAt:        now,
		State:            model.JobPending,
	}
}

// jobPolicy applies the retry rules after a run and keeps the post status in
// step with its job.
type jobPolicy struct {
	posts   repository.IPost
	jobs    repository.IPublishJob
	results repository.IPublishResult
	retry   RetryPolicy
	now     func() time.Time
}

// complete decides the job's next state from the run aggregate. The aggregate
// holds one result per target platform, carried forward where needed.
func (p *jobPolicy) complete(ctx context.Context, job *model.PublishJob, owner string, aggregate *model.PublishResult) error {
	now := p.now()
	byPlatform := make(map[model.Platform]model.PlatformResult, len(aggregate.Results))
	for _, r := range aggregate.Results {
		byPlatform[r.Platform] = r
	}

	succeeded := model.NewPlatformSet()
	dead := model.NewPlatformSet(job.DeadPlatforms...)
	for _, pl := range job.TargetPlatforms {
		r, ok := byPlatform[pl]
		switch {
		case ok && r.Success:
			succeeded.Add(pl)
		case ok && r.Permanent():
			dead.Add(pl)
		}
	}
	stillFailing := dead.Filter(succeeded.Filter(job.TargetPlatforms))
	deadList := orderedSubset(job.TargetPlatforms, dead)

	var postStatus model.PostStatus
	switch {
	case len(stillFailing) == 0 && len(deadList) == 0:
		job.State = model.JobDone
		job.PendingPlatforms = nil
		postStatus = model.PostPublished
	case len(stillFailing) == 0:
		job.State = model.JobDead
		job.PendingPlatforms = nil
		postStatus = terminalFailure(p.withEarlierSuccesses(ctx, job.PostID, succeeded))
	case job.AttemptsMade < job.MaxAttempts:
		job.State = model.JobPending
		job.PendingPlatforms = stillFailing
		job.NextRunAt = now.Add(p.retry.Backoff(job.AttemptsMade))
	default:
		job.State = model.JobDead
		job.PendingPlatforms = stillFailing
		postStatus = terminalFailure(p.withEarlierSuccesses(ctx, job.PostID, succeeded))
	}
	job.DeadPlatforms = deadList
	job.LastError = summarizeFailures(job.TargetPlatforms, byPlatform)
	job.LeaseOwner = nil
	job.LeaseExpiresAt = nil

	log := logger.GetLogger().WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"post_id":  job.PostID,
		"attempt":  job.AttemptsMade,
		"state":    job.State,
		"owner":    owner,
		"failures": len(stillFailing),
	})
	if err := p.jobs.CompleteJob(ctx, job, owner); err != nil {
		if errors.Is(err, model.ErrLeaseLost) {
			log.Warn("Lease lost before completion, dropping state transition")
		}
		return err
	}
	metrics.ObserveJobCompleted(string(job.State))

	if postStatus == "" {
		log.WithField("next_run_at", job.NextRunAt).Info("Job scheduled for retry")
		return nil
	}
	log.WithField("post_status", postStatus).Info("Job finished")
	return p.finishPost(ctx, job.PostID, postStatus, job.LastError)
}

// finalizeExhausted settles the post of a job that died without completing,
// e.g. after its last lease expired.
func (p *jobPolicy) finalizeExhausted(ctx context.Context, job *model.PublishJob) error {
	latest, err := p.results.LatestResults(ctx, job.PostID)
	if err != nil {
		return err
	}
	succeeded := model.NewPlatformSet()
	for pl, r := range latest {
		if r.Success {
			succeeded.Add(pl)
		}
	}
	status := model.PostPublished
	if len(succeeded.Filter(job.TargetPlatforms)) > 0 {
		status = terminalFailure(succeeded)
	}
	reason := summarizeFailures(job.TargetPlatforms, latest)
	if reason == nil {
		msg := "attempts exhausted"
		reason = &msg
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"job_id":      job.ID,
		"post_id":     job.PostID,
		"post_status": status,
	}).Warn("Job exhausted its attempts")
	return p.finishPost(ctx, job.PostID, status, reason)
}

// withEarlierSuccesses adds the post's platforms that succeeded under
// earlier jobs, e.g. before a retry narrowed the targets.
func (p *jobPolicy) withEarlierSuccesses(ctx context.Context, postID string, succeeded model.PlatformSet) model.PlatformSet {
	if len(succeeded) > 0 {
		return succeeded
	}
	latest, err := p.results.LatestResults(ctx, postID)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"post_id": postID,
			"error":   err,
		}).Warn("Failed to load earlier results")
		return succeeded
	}
	for pl, r := range latest {
		if r.Success {
			succeeded.Add(pl)
		}
	}
	return succeeded
}

func (p *jobPolicy) finishPost(ctx context.Context, postID string, status model.PostStatus, reason *string) error {
	if status == model.PostPublished {
		reason = nil
	}
	err := p.posts.TransitionStatus(ctx, postID, []model.PostStatus{model.PostQueued}, status, reason)
	if errors.Is(err, model.ErrInvalidPostTransition) {
		logger.GetLogger().WithFields(map[string]interface{}{
			"post_id": postID,
			"status":  status,
		}).Warn("Post was not queued, leaving status unchanged")
		return nil
	}
	return err
}

func terminalFailure(succeeded model.PlatformSet) model.PostStatus {
	if len(succeeded) > 0 {
		return model.PostPartiallyFailed
	}
	return model.PostFailed
}

func orderedSubset(ps []model.Platform, set model.PlatformSet) []model.Platform {
	out := make([]model.Platform, 0, len(set))
	for _, p := range ps {
		if set.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func summarizeFailures(targets []model.Platform, results map[model.Platform]model.PlatformResult) *string {
	var parts []string
	for _, p := range targets {
		r, ok := results[p]
		if !ok || r.Success || r.ErrorCode == nil {
			continue
		}
		msg := *r.ErrorCode
		if r.ErrorMessage != nil && *r.ErrorMessage != "" {
			msg = fmt.Sprintf("%s: %s", msg, *r.ErrorMessage)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", p, msg))
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, "; ")
	return &s
}
