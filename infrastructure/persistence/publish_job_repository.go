package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const jobColumns = `id, post_id, user_id, target_platforms, pending_platforms, dead_platforms, attempts_made, max_attempts,
	next_run_at, state, lease_owner, lease_expires_at, last_error, created_at, updated_at`

const activeJobStates = `('pending','ready','in_flight')`

// PublishJobRepository is the Postgres backed job queue. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never lease the same row.
type PublishJobRepository struct {
	db *sql.DB
}

var _ repository.IPublishJob = (*PublishJobRepository)(nil)

func NewPublishJobRepository(db *sql.DB) *PublishJobRepository {
	return &PublishJobRepository{db: db}
}

func (r *PublishJobRepository) EnsureActiveJob(ctx context.Context, job *model.PublishJob) (*model.PublishJob, bool, error) {
	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.State == "" {
		job.State = model.JobReady
	}
	if job.NextRunAt.IsZero() {
		job.NextRunAt = now
	}
	if job.DeadPlatforms == nil {
		job.DeadPlatforms = []model.Platform{}
	}
	job.CreatedAt, job.UpdatedAt = now, now

	q := `INSERT INTO publish_jobs (` + jobColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULL,NULL,NULL,$11,$11)
		ON CONFLICT (post_id) WHERE state IN ` + activeJobStates + ` DO NOTHING
		RETURNING ` + jobColumns
	row := r.db.QueryRowContext(ctx, q, job.ID, job.PostID, job.UserID,
		pq.Array(model.PlatformStrings(job.TargetPlatforms)), pq.Array(model.PlatformStrings(job.PendingPlatforms)),
		pq.Array(model.PlatformStrings(job.DeadPlatforms)), job.AttemptsMade, job.MaxAttempts, job.NextRunAt,
		string(job.State), now)
	created, err := scanJob(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	row = r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM publish_jobs WHERE post_id=$1 AND state IN `+activeJobStates, job.PostID)
	existing, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		// the active job finished between the insert and the lookup
		return nil, false, model.ErrJobInFlight
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PublishJobRepository) GetJob(ctx context.Context, jobID string) (*model.PublishJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM publish_jobs WHERE id=$1`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	return job, err
}

func (r *PublishJobRepository) GetLatestJobForPost(ctx context.Context, postID string) (*model.PublishJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM publish_jobs WHERE post_id=$1
		ORDER BY created_at DESC LIMIT 1`, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	return job, err
}

func (r *PublishJobRepository) PromoteJob(ctx context.Context, jobID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE publish_jobs SET state='ready', updated_at=$2
		WHERE id=$1 AND state='pending' AND next_run_at <= $2`, jobID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PublishJobRepository) PromoteDueRetries(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE publish_jobs SET state='ready', updated_at=$1
		WHERE state='pending' AND next_run_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PublishJobRepository) ReclaimExpiredLeases(ctx context.Context, now time.Time) (reclaimed int64, exhausted []model.PublishJob, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `UPDATE publish_jobs SET state='dead', lease_owner=NULL, lease_expires_at=NULL,
		last_error=COALESCE(last_error, 'lease expired'), updated_at=$1
		WHERE state='in_flight' AND lease_expires_at < $1 AND attempts_made >= max_attempts
		RETURNING `+jobColumns, now)
	if err != nil {
		return 0, nil, err
	}
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			rows.Close()
			err = scanErr
			return 0, nil, err
		}
		exhausted = append(exhausted, *job)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, nil, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE publish_jobs SET state='ready', lease_owner=NULL, lease_expires_at=NULL, updated_at=$1
		WHERE state='in_flight' AND lease_expires_at < $1`, now)
	if err != nil {
		return 0, nil, err
	}
	if reclaimed, err = res.RowsAffected(); err != nil {
		return 0, nil, err
	}
	if err = tx.Commit(); err != nil {
		return 0, nil, err
	}
	return reclaimed, exhausted, nil
}

func (r *PublishJobRepository) ClaimNext(ctx context.Context, owner string, now time.Time, lease time.Duration) (*model.PublishJob, error) {
	q := `UPDATE publish_jobs SET state='in_flight', lease_owner=$1, lease_expires_at=$2, attempts_made=attempts_made+1, updated_at=$3
		WHERE id = (
			SELECT id FROM publish_jobs WHERE state='ready' ORDER BY next_run_at, created_at
			FOR UPDATE SKIP LOCKED LIMIT 1
		)
		RETURNING ` + jobColumns
	job, err := scanJob(r.db.QueryRowContext(ctx, q, owner, now.Add(lease), now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// ClaimJob leases jobID for an immediate run. A job whose previous lease has
// expired can be taken over; a pending job waits out its backoff.
func (r *PublishJobRepository) ClaimJob(ctx context.Context, jobID, owner string, now time.Time, lease time.Duration) (*model.PublishJob, error) {
	q := `UPDATE publish_jobs SET state='in_flight', lease_owner=$2, lease_expires_at=$3, attempts_made=attempts_made+1, updated_at=$4
		WHERE id=$1 AND (state='ready' OR (state='pending' AND next_run_at <= $4) OR (state='in_flight' AND lease_expires_at < $4))
		RETURNING ` + jobColumns
	job, err := scanJob(r.db.QueryRowContext(ctx, q, jobID, owner, now.Add(lease), now))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	current, err := r.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch current.State {
	case model.JobInFlight:
		return nil, model.ErrJobInFlight
	case model.JobPending:
		return nil, fmt.Errorf("%w: next run at %s", model.ErrJobBackingOff, current.NextRunAt.UTC().Format(time.RFC3339))
	}
	return nil, model.ErrJobFinished
}

func (r *PublishJobRepository) CompleteJob(ctx context.Context, job *model.PublishJob, owner string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE publish_jobs SET state=$3, pending_platforms=$4, dead_platforms=$5, next_run_at=$6,
		last_error=$7, lease_owner=NULL, lease_expires_at=NULL, updated_at=$8
		WHERE id=$1 AND state='in_flight' AND lease_owner=$2`,
		job.ID, owner, string(job.State), pq.Array(model.PlatformStrings(job.PendingPlatforms)),
		pq.Array(model.PlatformStrings(job.DeadPlatforms)), job.NextRunAt, nullStringPtr(job.LastError), now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrLeaseLost
	}
	job.LeaseOwner, job.LeaseExpiresAt = nil, nil
	job.UpdatedAt = now
	return nil
}

func (r *PublishJobRepository) CountByState(ctx context.Context) (map[model.JobState]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM publish_jobs GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.JobState]int64{}
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[model.JobState(state)] = n
	}
	return out, rows.Err()
}

func scanJob(row rowScanner) (*model.PublishJob, error) {
	var (
		j                     model.PublishJob
		target, pending, dead []string
		state                 string
		leaseOwner, lastError sql.NullString
		leaseExpiresAt        sql.NullTime
	)
	if err := row.Scan(&j.ID, &j.PostID, &j.UserID, pq.Array(&target), pq.Array(&pending), pq.Array(&dead),
		&j.AttemptsMade, &j.MaxAttempts, &j.NextRunAt, &state, &leaseOwner, &leaseExpiresAt, &lastError,
		&j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.TargetPlatforms = model.PlatformsFromStrings(target)
	j.PendingPlatforms = model.PlatformsFromStrings(pending)
	j.DeadPlatforms = model.PlatformsFromStrings(dead)
	j.State = model.JobState(state)
	j.LeaseOwner = stringPtr(leaseOwner)
	j.LeaseExpiresAt = timePtr(leaseExpiresAt)
	j.LastError = stringPtr(lastError)
	return &j, nil
}
