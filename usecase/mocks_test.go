package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

type MockCredential struct {
	mock.Mock
}

func (m *MockCredential) SaveConnection(ctx context.Context, conn *model.Connection, token *model.Token) (*model.Connection, error) {
	args := m.Called(ctx, conn, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *MockCredential) GetConnection(ctx context.Context, userID string, platform model.Platform) (*model.ConnectionWithToken, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConnectionWithToken), args.Error(1)
}

func (m *MockCredential) GetConnectionByID(ctx context.Context, connectionID string) (*model.ConnectionWithToken, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConnectionWithToken), args.Error(1)
}

func (m *MockCredential) ListConnections(ctx context.Context, userID string) ([]model.ConnectionWithToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.ConnectionWithToken), args.Error(1)
}

func (m *MockCredential) ReplaceToken(ctx context.Context, token *model.Token) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockCredential) MarkConnectionError(ctx context.Context, connectionID string, reason string) error {
	return m.Called(ctx, connectionID, reason).Error(0)
}

// fakeOAuthRegistry resolves every platform to the same token server.
type fakeOAuthRegistry struct {
	configs map[model.Platform]model.OAuthConfig
}

func (r *fakeOAuthRegistry) Get(p model.Platform) (model.OAuthConfig, error) {
	cfg, ok := r.configs[p]
	if !ok {
		return model.OAuthConfig{}, fmt.Errorf("%w: %s", model.ErrPlatformNotConfigured, p)
	}
	return cfg, nil
}

func (r *fakeOAuthRegistry) IsConfigured(p model.Platform) bool {
	_, ok := r.configs[p]
	return ok
}

func (r *fakeOAuthRegistry) ListConfigured() []model.Platform {
	var out []model.Platform
	for _, p := range model.AllPlatforms {
		if r.IsConfigured(p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *fakeOAuthRegistry) Resolve(p model.Platform, instanceURL string) (model.OAuthConfig, error) {
	cfg, err := r.Get(p)
	if err != nil {
		return cfg, err
	}
	if cfg.Dynamic {
		if instanceURL == "" {
			return model.OAuthConfig{}, model.ErrInvalidInstanceURL
		}
		cfg.AuthorizeURL = instanceURL + "/oauth/authorize"
		cfg.TokenURL = instanceURL + "/oauth/token"
	}
	return cfg, nil
}

type MockPlatformClient struct {
	mock.Mock
	platform model.Platform
}

func (m *MockPlatformClient) Platform() model.Platform { return m.platform }

func (m *MockPlatformClient) Publish(ctx context.Context, req model.PublishRequest) (model.PublishReceipt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.PublishReceipt), args.Error(1)
}

func (m *MockPlatformClient) FetchProfile(ctx context.Context, creds model.Credentials) (model.UserProfile, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(model.UserProfile), args.Error(1)
}

type fakePlatformRegistry map[model.Platform]repository.IPlatformClient

func (r fakePlatformRegistry) Client(p model.Platform) (repository.IPlatformClient, error) {
	c, ok := r[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, p)
	}
	return c, nil
}

type MockPost struct {
	mock.Mock
}

func (m *MockPost) CreatePost(ctx context.Context, post *model.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPost) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPost) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Post, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPost) TransitionStatus(ctx context.Context, postID string, from []model.PostStatus, to model.PostStatus, reason *string) error {
	return m.Called(ctx, postID, from, to, reason).Error(0)
}

func (m *MockPost) Schedule(ctx context.Context, postID string, at time.Time) error {
	return m.Called(ctx, postID, at).Error(0)
}

func (m *MockPost) CountByStatus(ctx context.Context) (map[model.PostStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[model.PostStatus]int64), args.Error(1)
}

type MockPublishJob struct {
	mock.Mock
}

func (m *MockPublishJob) EnsureActiveJob(ctx context.Context, job *model.PublishJob) (*model.PublishJob, bool, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.PublishJob), args.Bool(1), args.Error(2)
}

func (m *MockPublishJob) GetJob(ctx context.Context, jobID string) (*model.PublishJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockPublishJob) GetLatestJobForPost(ctx context.Context, postID string) (*model.PublishJob, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockPublishJob) PromoteJob(ctx context.Context, jobID string, now time.Time) (bool, error) {
	args := m.Called(ctx, jobID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockPublishJob) PromoteDueRetries(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPublishJob) ReclaimExpiredLeases(ctx context.Context, now time.Time) (int64, []model.PublishJob, error) {
	args := m.Called(ctx, now)
	var exhausted []model.PublishJob
	if args.Get(1) != nil {
		exhausted = args.Get(1).([]model.PublishJob)
	}
	return args.Get(0).(int64), exhausted, args.Error(2)
}

func (m *MockPublishJob) ClaimNext(ctx context.Context, owner string, now time.Time, lease time.Duration) (*model.PublishJob, error) {
	args := m.Called(ctx, owner, now, lease)
	if fn, ok := args.Get(0).(func(context.Context, string, time.Time, time.Duration) *model.PublishJob); ok {
		return fn(ctx, owner, now, lease), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockPublishJob) ClaimJob(ctx context.Context, jobID, owner string, now time.Time, lease time.Duration) (*model.PublishJob, error) {
	args := m.Called(ctx, jobID, owner, now, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockPublishJob) CompleteJob(ctx context.Context, job *model.PublishJob, owner string) error {
	return m.Called(ctx, job, owner).Error(0)
}

func (m *MockPublishJob) CountByState(ctx context.Context) (map[model.JobState]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[model.JobState]int64), args.Error(1)
}

type MockPublishResult struct {
	mock.Mock
}

func (m *MockPublishResult) RecordRun(ctx context.Context, job *model.PublishJob, attempt int, attempted []model.PlatformResult, aggregate *model.PublishResult) error {
	return m.Called(ctx, job, attempt, attempted, aggregate).Error(0)
}

func (m *MockPublishResult) LatestResults(ctx context.Context, postID string) (map[model.Platform]model.PlatformResult, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(map[model.Platform]model.PlatformResult), args.Error(1)
}

func (m *MockPublishResult) GetStats(ctx context.Context) (*model.PublishStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishStats), args.Error(1)
}

func (m *MockPublishResult) GetPlatformStats(ctx context.Context, platform model.Platform) (*model.PlatformStats, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformStats), args.Error(1)
}

type MockPublishAudit struct {
	mock.Mock
}

func (m *MockPublishAudit) RecordAttempts(ctx context.Context, audits []model.PublishAttemptAudit) error {
	return m.Called(ctx, audits).Error(0)
}

func (m *MockPublishAudit) ListAttempts(ctx context.Context, postID string, limit int64) ([]model.PublishAttemptAudit, error) {
	args := m.Called(ctx, postID, limit)
	return args.Get(0).([]model.PublishAttemptAudit), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyPublishEvent(ctx context.Context, event model.PublishEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockCredentialResolver struct {
	mock.Mock
}

func (m *MockCredentialResolver) ResolveCredentials(ctx context.Context, userID string, platform model.Platform) (model.Credentials, error) {
	args := m.Called(ctx, userID, platform)
	return args.Get(0).(model.Credentials), args.Error(1)
}

func (m *MockCredentialResolver) RefreshToken(ctx context.Context, connectionID string) (*model.Token, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Token), args.Error(1)
}

type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) Execute(ctx context.Context, job *model.PublishJob, owner string) (*model.PublishResult, error) {
	args := m.Called(ctx, job, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

func (m *MockJobRunner) FinalizeExhausted(ctx context.Context, job *model.PublishJob) error {
	return m.Called(ctx, job).Error(0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
