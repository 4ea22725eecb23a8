package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"social-publisher/domain/model"
)

var jobRowColumns = []string{"id", "post_id", "user_id", "target_platforms", "pending_platforms", "dead_platforms", "attempts_made", "max_attempts",
	"next_run_at", "state", "lease_owner", "lease_expires_at", "last_error", "created_at", "updated_at"}

func jobRow(rows *sqlmock.Rows, id, state string, attempts int, owner interface{}) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "post-1", "user-1", "{x,mastodon}", "{x,mastodon}", "{}", attempts, 5,
		now, state, owner, nil, nil, now, now)
}

func TestPublishJobRepository_EnsureActiveJob_Creates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO publish_jobs .+ ON CONFLICT \(post_id\) WHERE state IN`).
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-1", "ready", 0, nil))

	job, created, err := NewPublishJobRepository(db).EnsureActiveJob(context.Background(), &model.PublishJob{
		PostID: "post-1", UserID: "user-1", MaxAttempts: 5,
		TargetPlatforms:  []model.Platform{model.PlatformX, model.PlatformMastodon},
		PendingPlatforms: []model.Platform{model.PlatformX, model.PlatformMastodon},
	})

	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, model.JobReady, job.State)
	require.Empty(t, job.DeadPlatforms)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_EnsureActiveJob_ReturnsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO publish_jobs`).WillReturnRows(sqlmock.NewRows(jobRowColumns))
	mock.ExpectQuery(`SELECT .+ FROM publish_jobs WHERE post_id=\$1 AND state IN`).
		WithArgs("post-1").
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-existing", "in_flight", 1, "worker-a"))

	job, created, err := NewPublishJobRepository(db).EnsureActiveJob(context.Background(), &model.PublishJob{PostID: "post-1", UserID: "user-1", MaxAttempts: 5})

	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "job-existing", job.ID)
	require.Equal(t, "worker-a", *job.LeaseOwner)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_ClaimNext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := NewPublishJobRepository(db)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs("worker-a", now.Add(2*time.Minute), now).
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-1", "in_flight", 1, "worker-a"))
	job, err := repo.ClaimNext(context.Background(), "worker-a", now, 2*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, job.AttemptsMade)
	require.Equal(t, model.JobInFlight, job.State)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).WillReturnRows(sqlmock.NewRows(jobRowColumns))
	job, err = repo.ClaimNext(context.Background(), "worker-a", now, 2*time.Minute)
	require.NoError(t, err)
	require.Nil(t, job)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_ClaimJob_AlreadyInFlight(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE publish_jobs SET state='in_flight'`).WillReturnRows(sqlmock.NewRows(jobRowColumns))
	mock.ExpectQuery(`SELECT .+ FROM publish_jobs WHERE id=\$1`).
		WithArgs("job-1").
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-1", "in_flight", 1, "worker-b"))

	_, err = NewPublishJobRepository(db).ClaimJob(context.Background(), "job-1", "worker-a", time.Now(), time.Minute)
	require.ErrorIs(t, err, model.ErrJobInFlight)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_ClaimJob_HonoursBackoff(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 9, 59, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE id=\$1 AND \(state='ready' OR \(state='pending' AND next_run_at <= \$4\)`).
		WithArgs("job-1", "api-1", now.Add(time.Minute), now).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))
	mock.ExpectQuery(`SELECT .+ FROM publish_jobs WHERE id=\$1`).
		WithArgs("job-1").
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-1", "pending", 2, nil))

	_, err = NewPublishJobRepository(db).ClaimJob(context.Background(), "job-1", "api-1", now, time.Minute)
	require.ErrorIs(t, err, model.ErrJobBackingOff)
	require.Contains(t, err.Error(), "2024-05-01T10:00:00Z")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_ClaimJob_DueJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`next_run_at <= \$4`).
		WithArgs("job-1", "api-1", now.Add(time.Minute), now).
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-1", "in_flight", 3, "api-1"))

	job, err := NewPublishJobRepository(db).ClaimJob(context.Background(), "job-1", "api-1", now, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 3, job.AttemptsMade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_CompleteJob_LeaseLost(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE publish_jobs SET state=\$3 .+ WHERE id=\$1 AND state='in_flight' AND lease_owner=\$2`).
		WithArgs("job-1", "worker-a", "done", "{}", "{}", sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPublishJobRepository(db).CompleteJob(context.Background(), &model.PublishJob{ID: "job-1", State: model.JobDone}, "worker-a")
	require.ErrorIs(t, err, model.ErrLeaseLost)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobRepository_ReclaimExpiredLeases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE publish_jobs SET state='dead'`).
		WithArgs(now).
		WillReturnRows(jobRow(sqlmock.NewRows(jobRowColumns), "job-dead", "dead", 5, nil))
	mock.ExpectExec(`UPDATE publish_jobs SET state='ready'`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	reclaimed, exhausted, err := NewPublishJobRepository(db).ReclaimExpiredLeases(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 2, reclaimed)
	require.Len(t, exhausted, 1)
	require.Equal(t, "job-dead", exhausted[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
