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
	"social-publisher/infrastructure/ratelimit"
	"social-publisher/infrastructure/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const publishResultEvent = "publish_result"

type IPublishUsecase interface {
	CreatePost(ctx context.Context, userID string, post *model.Post) (*model.Post, error)
	SchedulePost(ctx context.Context, userID, postID string, at time.Time) error
	PublishPost(ctx context.Context, userID, postID string, platforms []string) (*model.PublishResult, error)
	RetryPost(ctx context.Context, userID, postID string) (*model.PublishJob, error)
	Run(ctx context.Context, job *model.PublishJob) (*model.PublishResult, error)
	Execute(ctx context.Context, job *model.PublishJob, owner string) (*model.PublishResult, error)
	FinalizeExhausted(ctx context.Context, job *model.PublishJob) error
	GetJobStatus(ctx context.Context, userID, jobID string) (*model.JobStatus, error)
	GetPostStatus(ctx context.Context, userID, postID string) (*model.PostPublishStatus, error)
	GetStats(ctx context.Context) (*model.PublishStats, error)
	GetPlatformStats(ctx context.Context, platform model.Platform) (*model.PlatformStats, error)
	ListAttempts(ctx context.Context, userID, postID string, limit int64) ([]model.PublishAttemptAudit, error)
}

// CredentialResolver is the part of the OAuth flow the orchestrator needs.
type CredentialResolver interface {
	ResolveCredentials(ctx context.Context, userID string, platform model.Platform) (model.Credentials, error)
	RefreshToken(ctx context.Context, connectionID string) (*model.Token, error)
}

// PublishSettings tunes one orchestration run.
type PublishSettings struct {
	CallTimeout       time.Duration
	PerJobConcurrency int
	LeaseDuration     time.Duration
	Retry             RetryPolicy
}

type publishUsecase struct {
	posts       repository.IPost
	jobs        repository.IPublishJob
	results     repository.IPublishResult
	audit       repository.IPublishAudit
	credentials CredentialResolver
	platforms   repository.IPlatformRegistry
	media       repository.IMediaPreparer
	limiter     *ratelimit.Limiter
	notifiers   []repository.IPublishNotifier
	settings    PublishSettings
	policy      *jobPolicy
	now         func() time.Time
}

// NewPublishUsecase wires the orchestrator. audit may be nil.
func NewPublishUsecase(
	posts repository.IPost,
	jobs repository.IPublishJob,
	results repository.IPublishResult,
	audit repository.IPublishAudit,
	credentials CredentialResolver,
	platforms repository.IPlatformRegistry,
	media repository.IMediaPreparer,
	limiter *ratelimit.Limiter,
	settings PublishSettings,
	notifiers ...repository.IPublishNotifier,
) IPublishUsecase {
	if settings.PerJobConcurrency <= 0 {
		settings.PerJobConcurrency = 4
	}
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = 20 * time.Second
	}
	if settings.LeaseDuration <= 0 {
		settings.LeaseDuration = 2 * time.Minute
	}
	if limiter == nil {
		limiter = ratelimit.New(settings.PerJobConcurrency, 0, 0)
	}
	u := &publishUsecase{
		posts:       posts,
		jobs:        jobs,
		results:     results,
		audit:       audit,
		credentials: credentials,
		platforms:   platforms,
		media:       media,
		limiter:     limiter,
		notifiers:   notifiers,
		settings:    settings,
		now:         utils.GetCurrentTime,
	}
	u.policy = &jobPolicy{posts: posts, jobs: jobs, results: results, retry: settings.Retry, now: u.clock}
	return u
}

func (u *publishUsecase) clock() time.Time { return u.now() }

func (u *publishUsecase) CreatePost(ctx context.Context, userID string, post *model.Post) (*model.Post, error) {
	if len(post.Platforms) == 0 {
		return nil, model.ErrNoPlatforms
	}
	post.UserID = userID
	post.Status = model.PostDraft
	if post.ScheduledAt != nil {
		if !post.ScheduledAt.After(u.now()) {
			return nil, model.ErrScheduleInPast
		}
		post.Status = model.PostScheduled
	}
	if err := u.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (u *publishUsecase) SchedulePost(ctx context.Context, userID, postID string, at time.Time) error {
	if _, err := u.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	if !at.After(u.now()) {
		return model.ErrScheduleInPast
	}
	return u.posts.Schedule(ctx, postID, at)
}

func (u *publishUsecase) ownedPost(ctx context.Context, userID, postID string) (*model.Post, error) {
	post, err := u.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, model.ErrPostNotFound
	}
	return post, nil
}

// PublishPost runs one attempt inline. Retryable failures are left to the
// worker pool through the job's backoff.
func (u *publishUsecase) PublishPost(ctx context.Context, userID, postID string, platforms []string) (*model.PublishResult, error) {
	requested, err := model.ParsePlatforms(platforms)
	if err != nil {
		return nil, err
	}
	post, err := u.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		requested = post.Platforms
	}
	if len(requested) == 0 {
		return nil, model.ErrNoPlatforms
	}

	now := u.now()
	job, created, err := u.jobs.EnsureActiveJob(ctx, newPublishJob(post, requested, u.settings.Retry.MaxAttempts, now))
	if err != nil {
		return nil, err
	}
	owner := "api-" + uuid.NewString()
	claimed, err := u.jobs.ClaimJob(ctx, job.ID, owner, now, u.settings.LeaseDuration)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"job_id":  claimed.ID,
		"post_id": postID,
		"user_id": userID,
		"created": created,
	}).Info("Publishing post")

	err = u.posts.TransitionStatus(ctx, postID, []model.PostStatus{
		model.PostDraft, model.PostScheduled, model.PostFailed, model.PostPartiallyFailed, model.PostPublished,
	}, model.PostQueued, nil)
	if err != nil && !errors.Is(err, model.ErrInvalidPostTransition) {
		return nil, err
	}

	result, err := u.Execute(ctx, claimed, owner)
	if errors.Is(err, model.ErrLeaseLost) && result != nil {
		return result, nil
	}
	return result, err
}

// Execute runs a claimed job and applies the retry policy.
func (u *publishUsecase) Execute(ctx context.Context, job *model.PublishJob, owner string) (*model.PublishResult, error) {
	result, err := u.Run(ctx, job)
	if err != nil {
		return nil, err
	}
	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return result, u.policy.complete(completeCtx, job, owner, result)
}

func (u *publishUsecase) FinalizeExhausted(ctx context.Context, job *model.PublishJob) error {
	return u.policy.finalizeExhausted(ctx, job)
}

// Run publishes the job's outstanding platforms concurrently. Platform errors
// become results; only storage failures are returned.
func (u *publishUsecase) Run(ctx context.Context, job *model.PublishJob) (*model.PublishResult, error) {
	post, err := u.posts.GetPost(ctx, job.PostID)
	if err != nil {
		return nil, err
	}
	latest, err := u.results.LatestResults(ctx, job.PostID)
	if err != nil {
		return nil, err
	}

	succeeded := model.NewPlatformSet()
	for p, r := range latest {
		if r.Success {
			succeeded.Add(p)
		}
	}
	targets := model.NewPlatformSet(job.DeadPlatforms...).Filter(succeeded.Filter(job.PendingPlatforms))
	attempt := job.AttemptsMade

	attempted := make([]model.PlatformResult, len(targets))
	elapsed := make([]time.Duration, len(targets))
	var g errgroup.Group
	g.SetLimit(u.settings.PerJobConcurrency)
	for i, p := range targets {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			attempted[i] = u.publishOne(ctx, post, p, attempt)
			elapsed[i] = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()

	current := make(map[model.Platform]model.PlatformResult, len(attempted))
	for _, r := range attempted {
		current[r.Platform] = r
	}
	aggregate := &model.PublishResult{JobID: job.ID, PostID: job.PostID, CompletedAt: u.now()}
	for _, p := range job.TargetPlatforms {
		if r, ok := current[p]; ok {
			aggregate.Results = append(aggregate.Results, r)
		} else if r, ok := latest[p]; ok {
			aggregate.Results = append(aggregate.Results, r)
		}
	}
	aggregate.Aggregate()

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := u.results.RecordRun(persistCtx, job, attempt, attempted, aggregate); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	u.report(persistCtx, job, attempted, elapsed)

	logger.GetLogger().WithFields(map[string]interface{}{
		"job_id":    job.ID,
		"post_id":   job.PostID,
		"attempt":   attempt,
		"attempted": len(attempted),
		"succeeded": aggregate.SuccessCount,
		"failed":    aggregate.FailureCount,
	}).Info("Publish run finished")
	return aggregate, nil
}

func (u *publishUsecase) publishOne(ctx context.Context, post *model.Post, p model.Platform, attempt int) model.PlatformResult {
	fail := func(code, msg string, retryable bool) model.PlatformResult {
		return model.FailureResult(p, code, msg, retryable, attempt, u.now())
	}

	creds, err := u.credentials.ResolveCredentials(ctx, post.UserID, p)
	if err != nil {
		code, retryable := credentialFailure(err)
		return fail(code, err.Error(), retryable)
	}

	req := u.media.Requirements(p)
	if err := u.media.CheckText(req, post.Content); err != nil {
		return fail(model.CodeInvalidContent, err.Error(), false)
	}
	prepared := make([]model.PreparedMedia, 0, len(post.MediaRefs))
	for _, ref := range post.MediaRefs {
		m, err := u.media.Prepare(ctx, ref, req)
		if err != nil {
			return fail(model.CodeMediaRejected, err.Error(), false)
		}
		m.Platform = p
		prepared = append(prepared, m)
	}

	client, err := u.platforms.Client(p)
	if err != nil {
		return fail(model.CodeUnknown, err.Error(), false)
	}
	release, err := u.limiter.Acquire(ctx, p)
	if err != nil {
		return fail(model.CodeTimeout, "cancelled while waiting for a publish slot", true)
	}
	defer release()

	pubReq := model.PublishRequest{PostID: post.ID, Content: post.Content, Media: prepared, Credentials: creds}
	receipt, err := u.callPublish(ctx, client, pubReq)
	if pe, ok := model.AsPublishError(err); ok && pe.Code == model.CodeTokenRejected {
		tok, rerr := u.credentials.RefreshToken(ctx, creds.ConnectionID)
		if rerr != nil {
			if errors.Is(rerr, model.ErrNoRefreshToken) {
				return fail(model.CodeTokenRevoked, pe.Message, false)
			}
			return fail(model.CodeTokenRefreshFailed, rerr.Error(), false)
		}
		pubReq.Credentials.AccessToken = tok.AccessToken
		receipt, err = u.callPublish(ctx, client, pubReq)
		if pe, ok := model.AsPublishError(err); ok && pe.Code == model.CodeTokenRejected {
			return fail(model.CodeTokenRevoked, pe.Message, false)
		}
	}
	if err != nil {
		if pe, ok := model.AsPublishError(err); ok {
			return fail(pe.Code, pe.Message, pe.Retryable)
		}
		return fail(model.CodeUnknown, err.Error(), true)
	}
	return model.SuccessResult(p, receipt.ExternalPostID, attempt, u.now())
}

func (u *publishUsecase) callPublish(ctx context.Context, client repository.IPlatformClient, req model.PublishRequest) (model.PublishReceipt, error) {
	callCtx, cancel := context.WithTimeout(ctx, u.settings.CallTimeout)
	defer cancel()
	receipt, err := client.Publish(callCtx, req)
	if err != nil {
		if _, ok := model.AsPublishError(err); !ok && callCtx.Err() != nil {
			return receipt, &model.PublishError{
				Platform:  client.Platform(),
				Code:      model.CodeTimeout,
				Message:   "publish call timed out",
				Retryable: true,
			}
		}
	}
	return receipt, err
}

func credentialFailure(err error) (code string, retryable bool) {
	switch {
	case errors.Is(err, model.ErrConnectionNotFound):
		return model.CodeNotConnected, false
	case errors.Is(err, model.ErrReconnectRequired):
		return model.CodeReconnectRequired, false
	case errors.Is(err, model.ErrTokenRefreshFailed), errors.Is(err, model.ErrNoRefreshToken):
		return model.CodeTokenRefreshFailed, false
	case errors.Is(err, model.ErrPlatformNotConfigured):
		return model.CodeTokenRefreshFailed, false
	default:
		return model.CodeUnknown, true
	}
}

// report fans results out to notifiers, metrics and the audit log. Failures
// here never fail the run.
func (u *publishUsecase) report(ctx context.Context, job *model.PublishJob, attempted []model.PlatformResult, elapsed []time.Duration) {
	log := logger.GetLogger().WithField("job_id", job.ID)
	audits := make([]model.PublishAttemptAudit, 0, len(attempted))
	for i, r := range attempted {
		code := ""
		if r.ErrorCode != nil {
			code = *r.ErrorCode
		}
		metrics.ObservePublish(string(r.Platform), code, elapsed[i])

		evt := model.PublishEvent{Type: publishResultEvent, JobID: job.ID, PostID: job.PostID, UserID: job.UserID, Result: r}
		for _, n := range u.notifiers {
			if err := n.NotifyPublishEvent(ctx, evt); err != nil {
				log.WithFields(map[string]interface{}{
					"platform": r.Platform,
					"error":    err,
				}).Warn("Failed to deliver publish event")
			}
		}
		audits = append(audits, auditRecord(job, r, elapsed[i]))
	}
	if u.audit != nil && len(audits) > 0 {
		if err := u.audit.RecordAttempts(ctx, audits); err != nil {
			log.WithField("error", err).Warn("Failed to write publish audit")
		}
	}
}

func auditRecord(job *model.PublishJob, r model.PlatformResult, elapsed time.Duration) model.PublishAttemptAudit {
	a := model.PublishAttemptAudit{
		JobID:          job.ID,
		PostID:         job.PostID,
		UserID:         job.UserID,
		Platform:       string(r.Platform),
		Attempt:        r.Attempt,
		Success:        r.Success,
		DurationMillis: elapsed.Milliseconds(),
		AttemptedAt:    r.AttemptedAt,
	}
	if r.ExternalPostID != nil {
		a.ExternalPostID = *r.ExternalPostID
	}
	if r.ErrorCode != nil {
		a.ErrorCode = *r.ErrorCode
	}
	if r.ErrorMessage != nil {
		a.ErrorMessage = *r.ErrorMessage
	}
	return a
}

// RetryPost requeues a failed post for the platforms that never succeeded.
func (u *publishUsecase) RetryPost(ctx context.Context, userID, postID string) (*model.PublishJob, error) {
	post, err := u.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !post.Status.Retryable() {
		return nil, fmt.Errorf("%w: post is %s", model.ErrInvalidPostTransition, post.Status)
	}
	latest, err := u.results.LatestResults(ctx, postID)
	if err != nil {
		return nil, err
	}
	var remaining []model.Platform
	for _, p := range post.Platforms {
		if r, ok := latest[p]; !ok || !r.Success {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		return nil, fmt.Errorf("%w: every platform already succeeded", model.ErrInvalidPostTransition)
	}

	now := u.now()
	job, _, err := u.jobs.EnsureActiveJob(ctx, newPublishJob(post, remaining, u.settings.Retry.MaxAttempts, now))
	if err != nil {
		return nil, err
	}
	if err := u.posts.TransitionStatus(ctx, postID, []model.PostStatus{model.PostFailed, model.PostPartiallyFailed}, model.PostQueued, nil); err != nil {
		return nil, err
	}
	if _, err := u.jobs.PromoteJob(ctx, job.ID, now); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"job_id":    job.ID,
		"post_id":   postID,
		"platforms": remaining,
	}).Info("Post queued for retry")
	return job, nil
}

func (u *publishUsecase) GetJobStatus(ctx context.Context, userID, jobID string) (*model.JobStatus, error) {
	job, err := u.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, model.ErrJobNotFound
	}
	post, err := u.posts.GetPost(ctx, job.PostID)
	if err != nil && !errors.Is(err, model.ErrPostNotFound) {
		return nil, err
	}
	latest, err := u.results.LatestResults(ctx, job.PostID)
	if err != nil {
		return nil, err
	}
	return &model.JobStatus{Job: *job, Post: post, Results: orderedResults(job.TargetPlatforms, latest)}, nil
}

func (u *publishUsecase) GetPostStatus(ctx context.Context, userID, postID string) (*model.PostPublishStatus, error) {
	post, err := u.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	out := &model.PostPublishStatus{Post: *post}
	job, err := u.jobs.GetLatestJobForPost(ctx, postID)
	switch {
	case err == nil:
		out.Job = job
	case !errors.Is(err, model.ErrJobNotFound):
		return nil, err
	}
	latest, err := u.results.LatestResults(ctx, postID)
	if err != nil {
		return nil, err
	}
	out.Results = orderedResults(post.Platforms, latest)
	return out, nil
}

func orderedResults(platforms []model.Platform, latest map[model.Platform]model.PlatformResult) []model.PlatformResult {
	out := make([]model.PlatformResult, 0, len(latest))
	seen := model.NewPlatformSet()
	for _, p := range platforms {
		if r, ok := latest[p]; ok {
			out = append(out, r)
			seen.Add(p)
		}
	}
	for _, p := range model.AllPlatforms {
		if r, ok := latest[p]; ok && !seen.Has(p) {
			out = append(out, r)
		}
	}
	return out
}

func (u *publishUsecase) GetStats(ctx context.Context) (*model.PublishStats, error) {
	return u.results.GetStats(ctx)
}

func (u *publishUsecase) GetPlatformStats(ctx context.Context, platform model.Platform) (*model.PlatformStats, error) {
	return u.results.GetPlatformStats(ctx, platform)
}

func (u *publishUsecase) ListAttempts(ctx context.Context, userID, postID string, limit int64) ([]model.PublishAttemptAudit, error) {
	if _, err := u.ownedPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	if u.audit == nil {
		return []model.PublishAttemptAudit{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.audit.ListAttempts(ctx, postID, limit)
}
