package http

import (
	"context"
	"time"

	"social-publisher/domain/model"
	"social-publisher/usecase"

	"github.com/stretchr/testify/mock"
)

type MockOAuthUsecase struct {
	mock.Mock
}

func (m *MockOAuthUsecase) ListConfiguredPlatforms() []model.Platform {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.Platform)
}

func (m *MockOAuthUsecase) GenerateAuthURL(ctx context.Context, userID string, platform model.Platform, opts model.AuthOptions) (string, error) {
	args := m.Called(ctx, userID, platform, opts)
	return args.String(0), args.Error(1)
}

func (m *MockOAuthUsecase) HandleCallback(ctx context.Context, code, state string, platform model.Platform) (*model.ConnectionWithToken, error) {
	args := m.Called(ctx, code, state, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConnectionWithToken), args.Error(1)
}

func (m *MockOAuthUsecase) ExchangeCodeForToken(ctx context.Context, code string, platform model.Platform, opts model.AuthOptions) (*model.TokenSet, error) {
	args := m.Called(ctx, code, platform, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenSet), args.Error(1)
}

func (m *MockOAuthUsecase) FetchUserProfile(ctx context.Context, platform model.Platform, creds model.Credentials) (model.UserProfile, error) {
	args := m.Called(ctx, platform, creds)
	return args.Get(0).(model.UserProfile), args.Error(1)
}

func (m *MockOAuthUsecase) RefreshToken(ctx context.Context, connectionID string) (*model.Token, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Token), args.Error(1)
}

func (m *MockOAuthUsecase) ResolveCredentials(ctx context.Context, userID string, platform model.Platform) (model.Credentials, error) {
	args := m.Called(ctx, userID, platform)
	return args.Get(0).(model.Credentials), args.Error(1)
}

func (m *MockOAuthUsecase) ListConnections(ctx context.Context, userID string) ([]model.ConnectionWithToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConnectionWithToken), args.Error(1)
}

type MockPublishUsecase struct {
	mock.Mock
}

func (m *MockPublishUsecase) CreatePost(ctx context.Context, userID string, post *model.Post) (*model.Post, error) {
	args := m.Called(ctx, userID, post)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPublishUsecase) SchedulePost(ctx context.Context, userID, postID string, at time.Time) error {
	return m.Called(ctx, userID, postID, at).Error(0)
}

func (m *MockPublishUsecase) PublishPost(ctx context.Context, userID, postID string, platforms []string) (*model.PublishResult, error) {
	args := m.Called(ctx, userID, postID, platforms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

func (m *MockPublishUsecase) RetryPost(ctx context.Context, userID, postID string) (*model.PublishJob, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockPublishUsecase) Run(ctx context.Context, job *model.PublishJob) (*model.PublishResult, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

func (m *MockPublishUsecase) Execute(ctx context.Context, job *model.PublishJob, owner string) (*model.PublishResult, error) {
	args := m.Called(ctx, job, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

func (m *MockPublishUsecase) FinalizeExhausted(ctx context.Context, job *model.PublishJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockPublishUsecase) GetJobStatus(ctx context.Context, userID, jobID string) (*model.JobStatus, error) {
	args := m.Called(ctx, userID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobStatus), args.Error(1)
}

func (m *MockPublishUsecase) GetPostStatus(ctx context.Context, userID, postID string) (*model.PostPublishStatus, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PostPublishStatus), args.Error(1)
}

func (m *MockPublishUsecase) GetStats(ctx context.Context) (*model.PublishStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishStats), args.Error(1)
}

func (m *MockPublishUsecase) GetPlatformStats(ctx context.Context, platform model.Platform) (*model.PlatformStats, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformStats), args.Error(1)
}

func (m *MockPublishUsecase) ListAttempts(ctx context.Context, userID, postID string, limit int64) ([]model.PublishAttemptAudit, error) {
	args := m.Called(ctx, userID, postID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublishAttemptAudit), args.Error(1)
}

type MockSchedulerUsecase struct {
	mock.Mock
}

func (m *MockSchedulerUsecase) Sweep(ctx context.Context) (*usecase.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SweepReport), args.Error(1)
}

func (m *MockSchedulerUsecase) ProcessNext(ctx context.Context, owner string) (bool, error) {
	args := m.Called(ctx, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockSchedulerUsecase) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSchedulerUsecase) Stats(ctx context.Context) (*model.QueueStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueStats), args.Error(1)
}
