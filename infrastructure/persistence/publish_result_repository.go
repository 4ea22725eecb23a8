package persistence

import (
	"context"
	"database/sql"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// PublishResultRepository keeps the append-only platform results and one
// summary row per orchestration run.
type PublishResultRepository struct {
	db *sql.DB
}

var _ repository.IPublishResult = (*PublishResultRepository)(nil)

func NewPublishResultRepository(db *sql.DB) *PublishResultRepository {
	return &PublishResultRepository{db: db}
}

func (r *PublishResultRepository) RecordRun(ctx context.Context, job *model.PublishJob, attempt int, attempted []model.PlatformResult, aggregate *model.PublishResult) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO publish_results (job_id, post_id, platform, attempt, success, external_post_id, error_code, error_message, retryable, attempted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (job_id, attempt, platform) DO NOTHING`
	for _, res := range attempted {
		if _, err = tx.ExecContext(ctx, q, job.ID, job.PostID, string(res.Platform), attempt, res.Success,
			nullStringPtr(res.ExternalPostID), nullStringPtr(res.ErrorCode), nullStringPtr(res.ErrorMessage),
			res.Retryable, res.AttemptedAt); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO publish_runs (job_id, post_id, attempt, overall_success, success_count, failure_count, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (job_id, attempt) DO NOTHING`,
		job.ID, job.PostID, attempt, aggregate.OverallSuccess, aggregate.SuccessCount, aggregate.FailureCount, aggregate.CompletedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PublishResultRepository) LatestResults(ctx context.Context, postID string) (map[model.Platform]model.PlatformResult, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT ON (platform) platform, success, external_post_id, error_code, error_message, retryable, attempt, attempted_at
		FROM publish_results WHERE post_id=$1 ORDER BY platform, attempted_at DESC, id DESC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.Platform]model.PlatformResult{}
	for rows.Next() {
		var (
			res                       model.PlatformResult
			platform                  string
			externalID, code, message sql.NullString
		)
		if err := rows.Scan(&platform, &res.Success, &externalID, &code, &message, &res.Retryable, &res.Attempt, &res.AttemptedAt); err != nil {
			return nil, err
		}
		res.Platform = model.Platform(platform)
		res.ExternalPostID = stringPtr(externalID)
		res.ErrorCode = stringPtr(code)
		res.ErrorMessage = stringPtr(message)
		out[res.Platform] = res
	}
	return out, rows.Err()
}

// GetStats counts every recorded run: fully successful, partially successful
// and fully failed.
func (r *PublishResultRepository) GetStats(ctx context.Context) (*model.PublishStats, error) {
	stats := &model.PublishStats{PlatformStats: map[model.Platform]model.PlatformStats{}}
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE success_count > 0 AND failure_count = 0),
			COUNT(*) FILTER (WHERE success_count = 0),
			COUNT(*) FILTER (WHERE success_count > 0 AND failure_count > 0),
			MAX(completed_at)
		FROM publish_runs`).Scan(&stats.TotalJobs, &stats.SuccessfulJobs, &stats.FailedJobs, &stats.PartialSuccessJobs, &last)
	if err != nil {
		return nil, err
	}
	stats.LastJobTime = timePtr(last)

	rows, err := r.db.QueryContext(ctx, `SELECT platform, COUNT(*), COUNT(*) FILTER (WHERE success), COUNT(*) FILTER (WHERE NOT success)
		FROM publish_results GROUP BY platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var ps model.PlatformStats
		if err := rows.Scan(&platform, &ps.Attempts, &ps.Successes, &ps.Failures); err != nil {
			return nil, err
		}
		stats.PlatformStats[model.Platform(platform)] = ps
	}
	return stats, rows.Err()
}

func (r *PublishResultRepository) GetPlatformStats(ctx context.Context, platform model.Platform) (*model.PlatformStats, error) {
	ps := &model.PlatformStats{}
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE success), COUNT(*) FILTER (WHERE NOT success)
		FROM publish_results WHERE platform=$1`, string(platform)).Scan(&ps.Attempts, &ps.Successes, &ps.Failures)
	if err != nil {
		return nil, err
	}
	return ps, nil
}
