package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"social-publisher/domain/model"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BackoffBase: 30 * time.Second, BackoffMax: time.Hour}

	assert.Equal(t, 30*time.Second, p.Backoff(1))
	assert.Equal(t, 60*time.Second, p.Backoff(2))
	assert.Equal(t, 120*time.Second, p.Backoff(3))
	assert.Equal(t, 240*time.Second, p.Backoff(4))
	assert.Equal(t, time.Hour, p.Backoff(20))
	assert.Equal(t, 30*time.Second, p.Backoff(0))
}

func newTestPolicy(posts *MockPost, jobs *MockPublishJob, results *MockPublishResult) *jobPolicy {
	return &jobPolicy{
		posts:   posts,
		jobs:    jobs,
		results: results,
		retry:   RetryPolicy{MaxAttempts: 5, BackoffBase: 30 * time.Second, BackoffMax: time.Hour},
		now:     fixedClock(publishNow),
	}
}

func TestJobPolicy_RetryExhaustion(t *testing.T) {
	posts, jobs := new(MockPost), new(MockPublishJob)
	policy := newTestPolicy(posts, jobs, new(MockPublishResult))
	jobs.On("CompleteJob", mock.Anything, mock.Anything, "worker-1").Return(nil)
	posts.On("TransitionStatus", mock.Anything, "post-1", []model.PostStatus{model.PostQueued}, model.PostPartiallyFailed, mock.Anything).Return(nil).Once()

	job := &model.PublishJob{
		ID:               "job-1",
		PostID:           "post-1",
		TargetPlatforms:  []model.Platform{model.PlatformX, model.PlatformMastodon},
		PendingPlatforms: []model.Platform{model.PlatformX, model.PlatformMastodon},
		MaxAttempts:      5,
		State:            model.JobReady,
	}
	var previous time.Time
	for attempt := 1; attempt <= 5; attempt++ {
		// claiming consumes the attempt
		job.AttemptsMade = attempt
		job.State = model.JobInFlight
		agg := &model.PublishResult{Results: []model.PlatformResult{
			model.SuccessResult(model.PlatformX, "1", 1, publishNow),
			model.FailureResult(model.PlatformMastodon, model.CodePlatformUnavailable, "503", true, attempt, publishNow),
		}}
		require.NoError(t, policy.complete(context.Background(), job, "worker-1", agg))

		if attempt < 5 {
			assert.Equal(t, model.JobPending, job.State, "attempt %d", attempt)
			assert.Equal(t, []model.Platform{model.PlatformMastodon}, job.PendingPlatforms)
			assert.True(t, job.NextRunAt.After(previous), "nextRunAt must increase")
			previous = job.NextRunAt
		}
	}

	assert.Equal(t, model.JobDead, job.State)
	assert.Equal(t, 5, job.AttemptsMade)
	require.NotNil(t, job.LastError)
	assert.Contains(t, *job.LastError, "mastodon: PLATFORM_UNAVAILABLE")
	posts.AssertExpectations(t)
	jobs.AssertNumberOfCalls(t, "CompleteJob", 5)
}

func TestJobPolicy_AllSucceeded(t *testing.T) {
	posts, jobs := new(MockPost), new(MockPublishJob)
	policy := newTestPolicy(posts, jobs, new(MockPublishResult))
	jobs.On("CompleteJob", mock.Anything, mock.Anything, "w").Return(nil)
	posts.On("TransitionStatus", mock.Anything, "post-1", []model.PostStatus{model.PostQueued}, model.PostPublished, (*string)(nil)).Return(nil)

	job := claimedJob(1, model.PlatformX)
	agg := &model.PublishResult{Results: []model.PlatformResult{model.SuccessResult(model.PlatformX, "1", 1, publishNow)}}

	require.NoError(t, policy.complete(context.Background(), job, "w", agg))

	assert.Equal(t, model.JobDone, job.State)
	assert.Nil(t, job.LeaseOwner)
	posts.AssertExpectations(t)
}

func TestJobPolicy_PostNoLongerQueued(t *testing.T) {
	posts, jobs, results := new(MockPost), new(MockPublishJob), new(MockPublishResult)
	policy := newTestPolicy(posts, jobs, results)
	jobs.On("CompleteJob", mock.Anything, mock.Anything, "w").Return(nil)
	results.On("LatestResults", mock.Anything, "post-1").Return(map[model.Platform]model.PlatformResult{}, nil)
	posts.On("TransitionStatus", mock.Anything, "post-1", mock.Anything, model.PostFailed, mock.Anything).Return(model.ErrInvalidPostTransition)

	job := claimedJob(1, model.PlatformX)
	agg := &model.PublishResult{Results: []model.PlatformResult{
		model.FailureResult(model.PlatformX, model.CodeNotConnected, "no connection", false, 1, publishNow),
	}}

	assert.NoError(t, policy.complete(context.Background(), job, "w", agg))
	assert.Equal(t, model.JobDead, job.State)
}

func TestJobPolicy_FinalizeExhausted(t *testing.T) {
	posts, results := new(MockPost), new(MockPublishResult)
	policy := newTestPolicy(posts, new(MockPublishJob), results)
	results.On("LatestResults", mock.Anything, "post-1").Return(map[model.Platform]model.PlatformResult{
		model.PlatformX: model.FailureResult(model.PlatformX, model.CodeTimeout, "timed out", true, 5, publishNow),
	}, nil)
	posts.On("TransitionStatus", mock.Anything, "post-1", []model.PostStatus{model.PostQueued}, model.PostFailed, mock.MatchedBy(func(r *string) bool {
		return r != nil && *r == "x: TIMEOUT: timed out"
	})).Return(nil)

	job := claimedJob(5, model.PlatformX, model.PlatformBluesky)
	require.NoError(t, policy.finalizeExhausted(context.Background(), job))
	posts.AssertExpectations(t)
}

func TestJobPolicy_RetryFailureKeepsEarlierSuccess(t *testing.T) {
	posts, jobs, results := new(MockPost), new(MockPublishJob), new(MockPublishResult)
	policy := newTestPolicy(posts, jobs, results)
	jobs.On("CompleteJob", mock.Anything, mock.Anything, "w").Return(nil)
	results.On("LatestResults", mock.Anything, "post-1").Return(map[model.Platform]model.PlatformResult{
		model.PlatformInstagram: model.SuccessResult(model.PlatformInstagram, "ig-1", 1, publishNow),
		model.PlatformFacebook:  model.FailureResult(model.PlatformFacebook, model.CodeNotConnected, "no connection", false, 1, publishNow),
	}, nil)
	posts.On("TransitionStatus", mock.Anything, "post-1", []model.PostStatus{model.PostQueued}, model.PostPartiallyFailed, mock.Anything).Return(nil)

	// a retry job only targets the platform that never succeeded
	job := claimedJob(1, model.PlatformFacebook)
	agg := &model.PublishResult{Results: []model.PlatformResult{
		model.FailureResult(model.PlatformFacebook, model.CodeNotConnected, "no connection", false, 1, publishNow),
	}}

	require.NoError(t, policy.complete(context.Background(), job, "w", agg))

	assert.Equal(t, model.JobDead, job.State)
	assert.Equal(t, []model.Platform{model.PlatformFacebook}, job.DeadPlatforms)
	posts.AssertExpectations(t)
	posts.AssertNotCalled(t, "TransitionStatus", mock.Anything, "post-1", mock.Anything, model.PostFailed, mock.Anything)
}

func TestJobPolicy_FinalizeExhaustedKeepsEarlierSuccess(t *testing.T) {
	posts, results := new(MockPost), new(MockPublishResult)
	policy := newTestPolicy(posts, new(MockPublishJob), results)
	results.On("LatestResults", mock.Anything, "post-1").Return(map[model.Platform]model.PlatformResult{
		model.PlatformInstagram: model.SuccessResult(model.PlatformInstagram, "ig-1", 1, publishNow),
		model.PlatformFacebook:  model.FailureResult(model.PlatformFacebook, model.CodePlatformUnavailable, "503", true, 5, publishNow),
	}, nil)
	posts.On("TransitionStatus", mock.Anything, "post-1", []model.PostStatus{model.PostQueued}, model.PostPartiallyFailed, mock.Anything).Return(nil)

	job := claimedJob(5, model.PlatformFacebook)
	require.NoError(t, policy.finalizeExhausted(context.Background(), job))
	posts.AssertExpectations(t)
}
