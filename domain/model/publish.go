package model

import "time"

type JobState string

const (
	JobPending  JobState = "pending"
	JobReady    JobState = "ready"
	JobInFlight JobState = "in_flight"
	JobDone     JobState = "done"
	JobDead     JobState = "dead"
)

// Active reports whether the job still owns its post's publish intent.
func (s JobState) Active() bool {
	return s == JobPending || s == JobReady || s == JobInFlight
}

// PublishJob is the unit of scheduling and retry for one post.
type PublishJob struct {
	ID               string     `json:"id"`
	PostID           string     `json:"postId"`
	UserID           string     `json:"userId"`
	TargetPlatforms  []Platform `json:"targetPlatforms"`
	PendingPlatforms []Platform `json:"pendingPlatforms"`
	DeadPlatforms    []Platform `json:"deadPlatforms"`
	AttemptsMade     int        `json:"attemptsMade"`
	MaxAttempts      int        `json:"maxAttempts"`
	NextRunAt        time.Time  `json:"nextRunAt"`
	State            JobState   `json:"state"`
	LeaseOwner       *string    `json:"leaseOwner,omitempty"`
	LeaseExpiresAt   *time.Time `json:"leaseExpiresAt,omitempty"`
	LastError        *string    `json:"lastError,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PlatformResult is the immutable outcome of one attempt against one platform.
type PlatformResult struct {
	Platform       Platform  `json:"platform"`
	Success        bool      `json:"success"`
	ExternalPostID *string   `json:"externalPostId,omitempty"`
	ErrorCode      *string   `json:"errorCode,omitempty"`
	ErrorMessage   *string   `json:"errorMessage,omitempty"`
	Retryable      bool      `json:"retryable"`
	Attempt        int       `json:"attempt"`
	AttemptedAt    time.Time `json:"attemptedAt"`
}

// SuccessResult builds a successful PlatformResult.
func SuccessResult(p Platform, externalID string, attempt int, at time.Time) PlatformResult {
	r := PlatformResult{Platform: p, Success: true, Attempt: attempt, AttemptedAt: at}
	if externalID != "" {
		r.ExternalPostID = &externalID
	}
	return r
}

// FailureResult builds a failed PlatformResult.
func FailureResult(p Platform, code, message string, retryable bool, attempt int, at time.Time) PlatformResult {
	return PlatformResult{
		Platform:     p,
		Success:      false,
		ErrorCode:    &code,
		ErrorMessage: &message,
		Retryable:    retryable,
		Attempt:      attempt,
		AttemptedAt:  at,
	}
}

// Permanent is true for failures the queue must not retry.
func (r PlatformResult) Permanent() bool {
	return !r.Success && !r.Retryable
}

// PublishResult is the aggregate of one orchestration run.
type PublishResult struct {
	JobID          string           `json:"jobId"`
	PostID         string           `json:"postId"`
	Results        []PlatformResult `json:"results"`
	OverallSuccess bool             `json:"overallSuccess"`
	SuccessCount   int              `json:"successCount"`
	FailureCount   int              `json:"failureCount"`
	CompletedAt    time.Time        `json:"completedAt"`
}

// Aggregate fills the counters from Results.
func (r *PublishResult) Aggregate() {
	r.SuccessCount, r.FailureCount = 0, 0
	for _, res := range r.Results {
		if res.Success {
			r.SuccessCount++
		} else {
			r.FailureCount++
		}
	}
	r.OverallSuccess = len(r.Results) > 0 && r.FailureCount == 0
}

// PlatformStats counts publish attempts for one platform.
type PlatformStats struct {
	Attempts  int64 `json:"attempts"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// PublishStats summarises every recorded run.
type PublishStats struct {
	TotalJobs          int64                      `json:"totalJobs"`
	SuccessfulJobs     int64                      `json:"successfulJobs"`
	FailedJobs         int64                      `json:"failedJobs"`
	PartialSuccessJobs int64                      `json:"partialSuccessJobs"`
	PlatformStats      map[Platform]PlatformStats `json:"platformStats"`
	LastJobTime        *time.Time                 `json:"lastJobTime,omitempty"`
}

// QueueStats reports job and post counts by state.
type QueueStats struct {
	Jobs  map[JobState]int64   `json:"jobs"`
	Posts map[PostStatus]int64 `json:"posts"`
}

// JobStatus is the read model for a single job.
type JobStatus struct {
	Job     PublishJob       `json:"job"`
	Post    *Post            `json:"post,omitempty"`
	Results []PlatformResult `json:"results"`
}

// PostPublishStatus is the read model for a post and its latest job.
type PostPublishStatus struct {
	Post    Post             `json:"post"`
	Job     *PublishJob      `json:"job,omitempty"`
	Results []PlatformResult `json:"results"`
}

// PlatformMediaRequirements constrain what a platform accepts.
type PlatformMediaRequirements struct {
	MaxFileSize        int64      `json:"maxFileSize"`
	MaxImageDimensions Dimensions `json:"maxImageDimensions"`
	MinImageDimensions Dimensions `json:"minImageDimensions"`
	// MaxVideoDuration of zero means video is not supported.
	MaxVideoDuration time.Duration `json:"maxVideoDuration"`
	MaxVideoFileSize int64         `json:"maxVideoFileSize"`
	AllowedFormats   []string      `json:"allowedFormats"`
	AspectRatios     []string      `json:"aspectRatios,omitempty"`
	MaxTextLength    int           `json:"maxTextLength"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PreparedMedia is a media reference conforming to a platform's limits.
type PreparedMedia struct {
	MediaRef
	Platform Platform `json:"platform"`
}

// PublishRequest is what a platform client receives for one publish call.
type PublishRequest struct {
	PostID      string
	Content     string
	Media       []PreparedMedia
	Credentials Credentials
}

// PublishReceipt identifies the created object on the platform.
type PublishReceipt struct {
	ExternalPostID string
	URL            string
}

// PublishEvent is emitted to notifiers for every recorded PlatformResult.
type PublishEvent struct {
	Type   string         `json:"type"`
	JobID  string         `json:"jobId"`
	PostID string         `json:"postId"`
	UserID string         `json:"userId"`
	Result PlatformResult `json:"result"`
}

// PublishAttemptAudit is the append-only audit record of one platform attempt.
type PublishAttemptAudit struct {
	JobID          string    `bson:"job_id" json:"jobId"`
	PostID         string    `bson:"post_id" json:"postId"`
	UserID         string    `bson:"user_id" json:"userId"`
	Platform       string    `bson:"platform" json:"platform"`
	Attempt        int       `bson:"attempt" json:"attempt"`
	Success        bool      `bson:"success" json:"success"`
	ExternalPostID string    `bson:"external_post_id,omitempty" json:"externalPostId,omitempty"`
	ErrorCode      string    `bson:"error_code,omitempty" json:"errorCode,omitempty"`
	ErrorMessage   string    `bson:"error_message,omitempty" json:"errorMessage,omitempty"`
	DurationMillis int64     `bson:"duration_ms" json:"durationMs"`
	AttemptedAt    time.Time `bson:"attempted_at" json:"attemptedAt"`
}
