package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"
	"social-publisher/infrastructure/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type ISchedulerUsecase interface {
	Sweep(ctx context.Context) (*SweepReport, error)
	ProcessNext(ctx context.Context, owner string) (bool, error)
	Start(ctx context.Context) error
	Stats(ctx context.Context) (*model.QueueStats, error)
}

// JobRunner executes claimed jobs. IPublishUsecase satisfies it.
type JobRunner interface {
	Execute(ctx context.Context, job *model.PublishJob, owner string) (*model.PublishResult, error)
	FinalizeExhausted(ctx context.Context, job *model.PublishJob) error
}

type SchedulerSettings struct {
	SweepInterval time.Duration
	PollInterval  time.Duration
	Workers       int
	BatchSize     int
	LeaseDuration time.Duration
	MaxAttempts   int
}

// SweepReport counts what one sweep changed.
type SweepReport struct {
	Scheduled int   `json:"scheduled"`
	Promoted  int64 `json:"promoted"`
	Reclaimed int64 `json:"reclaimed"`
	Exhausted int   `json:"exhausted"`
}

type schedulerUsecase struct {
	posts      repository.IPost
	jobs       repository.IPublishJob
	runner     JobRunner
	settings   SchedulerSettings
	instanceID string
	now        func() time.Time
}

func NewSchedulerUsecase(posts repository.IPost, jobs repository.IPublishJob, runner JobRunner, settings SchedulerSettings) ISchedulerUsecase {
	if settings.Workers <= 0 {
		settings.Workers = 4
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = 50
	}
	if settings.SweepInterval <= 0 {
		settings.SweepInterval = 30 * time.Second
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 5 * time.Second
	}
	if settings.LeaseDuration <= 0 {
		settings.LeaseDuration = 2 * time.Minute
	}
	return &schedulerUsecase{
		posts:      posts,
		jobs:       jobs,
		runner:     runner,
		settings:   settings,
		instanceID: uuid.NewString()[:8],
		now:        utils.GetCurrentTime,
	}
}

// Sweep promotes due work and recovers abandoned jobs. Every step is a
// conditional update, so concurrent sweeps from several instances are safe.
func (s *schedulerUsecase) Sweep(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	report := &SweepReport{}
	log := logger.GetLogger()

	due, err := s.posts.ListDueScheduled(ctx, now, s.settings.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}
	for i := range due {
		post := &due[i]
		queued, err := s.enqueueScheduled(ctx, post, now)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"post_id": post.ID,
				"error":   err,
			}).Error("Failed to enqueue scheduled post")
			continue
		}
		if queued {
			report.Scheduled++
		}
	}

	if report.Promoted, err = s.jobs.PromoteDueRetries(ctx, now); err != nil {
		return report, fmt.Errorf("promote retries: %w", err)
	}

	reclaimed, exhausted, err := s.jobs.ReclaimExpiredLeases(ctx, now)
	if err != nil {
		return report, fmt.Errorf("reclaim leases: %w", err)
	}
	report.Reclaimed = reclaimed
	for i := range exhausted {
		if err := s.runner.FinalizeExhausted(ctx, &exhausted[i]); err != nil {
			log.WithFields(map[string]interface{}{
				"job_id": exhausted[i].ID,
				"error":  err,
			}).Error("Failed to finalize exhausted job")
			continue
		}
		report.Exhausted++
	}

	if _, err := s.Stats(ctx); err != nil {
		log.WithField("error", err).Warn("Failed to refresh queue gauges")
	}
	if report.Scheduled > 0 || report.Promoted > 0 || report.Reclaimed > 0 || report.Exhausted > 0 {
		log.WithFields(map[string]interface{}{
			"scheduled": report.Scheduled,
			"promoted":  report.Promoted,
			"reclaimed": report.Reclaimed,
			"exhausted": report.Exhausted,
		}).Info("Sweep finished")
	}
	return report, nil
}

func (s *schedulerUsecase) enqueueScheduled(ctx context.Context, post *model.Post, now time.Time) (bool, error) {
	job, _, err := s.jobs.EnsureActiveJob(ctx, newPublishJob(post, post.Platforms, s.settings.MaxAttempts, now))
	if errors.Is(err, model.ErrJobInFlight) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := s.jobs.PromoteJob(ctx, job.ID, now); err != nil {
		return false, err
	}
	err = s.posts.TransitionStatus(ctx, post.ID, []model.PostStatus{model.PostScheduled}, model.PostQueued, nil)
	if errors.Is(err, model.ErrInvalidPostTransition) {
		return false, nil
	}
	return err == nil, err
}

// ProcessNext claims and executes one ready job. It reports whether a job was
// found. The run is cancelled when the lease expires.
func (s *schedulerUsecase) ProcessNext(ctx context.Context, owner string) (bool, error) {
	job, err := s.jobs.ClaimNext(ctx, owner, s.now(), s.settings.LeaseDuration)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	deadline := time.Now().Add(s.settings.LeaseDuration)
	if job.LeaseExpiresAt != nil {
		deadline = *job.LeaseExpiresAt
	}
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	log := logger.GetLogger().WithFields(map[string]interface{}{
		"job_id":  job.ID,
		"post_id": job.PostID,
		"worker":  owner,
		"attempt": job.AttemptsMade,
	})
	log.Debug("Job claimed")
	if _, err := s.runner.Execute(runCtx, job, owner); err != nil {
		if errors.Is(err, model.ErrLeaseLost) {
			return true, nil
		}
		return true, err
	}
	return true, nil
}

// Start runs the sweep loop and the worker pool until ctx is cancelled.
func (s *schedulerUsecase) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(s.settings.SweepInterval)
		defer ticker.Stop()
		for {
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.GetLogger().WithField("error", err).Error("Sweep failed")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	for i := 0; i < s.settings.Workers; i++ {
		owner := fmt.Sprintf("worker-%s-%d", s.instanceID, i)
		g.Go(func() error {
			s.work(ctx, owner)
			return nil
		})
	}
	logger.GetLogger().WithField("workers", s.settings.Workers).Info("Scheduler started")
	return g.Wait()
}

func (s *schedulerUsecase) work(ctx context.Context, owner string) {
	for ctx.Err() == nil {
		found, err := s.ProcessNext(ctx, owner)
		if err != nil && ctx.Err() == nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"worker": owner,
				"error":  err,
			}).Error("Job processing failed")
		}
		if found && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.settings.PollInterval):
		}
	}
}

func (s *schedulerUsecase) Stats(ctx context.Context) (*model.QueueStats, error) {
	jobs, err := s.jobs.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	gauges := make(map[string]int64, len(jobs))
	for state, n := range jobs {
		gauges[string(state)] = n
	}
	metrics.SetQueueDepth(gauges)
	return &model.QueueStats{Jobs: jobs, Posts: posts}, nil
}
