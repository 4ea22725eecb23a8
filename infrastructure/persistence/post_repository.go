package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const postColumns = `id, user_id, content, media_refs, status, scheduled_at, platforms, failure_reason, published_at, created_at, updated_at`

type PostRepository struct {
	db *sql.DB
}

var _ repository.IPost = (*PostRepository)(nil)

func NewPostRepository(db *sql.DB) *PostRepository { return &PostRepository{db: db} }

func (r *PostRepository) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Status == "" {
		post.Status = model.PostDraft
	}
	if post.MediaRefs == nil {
		post.MediaRefs = []model.MediaRef{}
	}
	post.CreatedAt, post.UpdatedAt = now, now

	media, err := json.Marshal(post.MediaRefs)
	if err != nil {
		return err
	}
	q := `INSERT INTO social_posts (` + postColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.db.ExecContext(ctx, q, post.ID, post.UserID, post.Content, media, string(post.Status),
		nullTimePtr(post.ScheduledAt), pq.Array(model.PlatformStrings(post.Platforms)),
		nullStringPtr(post.FailureReason), nullTimePtr(post.PublishedAt), post.CreatedAt, post.UpdatedAt)
	return err
}

func (r *PostRepository) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM social_posts WHERE id=$1`, postID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	return p, err
}

func (r *PostRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM social_posts
		WHERE status='scheduled' AND scheduled_at <= $1 ORDER BY scheduled_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func (r *PostRepository) TransitionStatus(ctx context.Context, postID string, from []model.PostStatus, to model.PostStatus, reason *string) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE social_posts SET status=$2, failure_reason=$3,
		published_at = CASE WHEN $2 = 'published' THEN $4 ELSE published_at END, updated_at=$4
		WHERE id=$1 AND status = ANY($5)`,
		postID, string(to), nullStringPtr(reason), now, pq.Array(allowed))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.missingOrConflict(ctx, postID)
}

// Schedule sets the publish time of a draft or already scheduled post.
func (r *PostRepository) Schedule(ctx context.Context, postID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE social_posts SET status='scheduled', scheduled_at=$2, updated_at=$3
		WHERE id=$1 AND status IN ('draft','scheduled')`, postID, at.UTC(), time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.missingOrConflict(ctx, postID)
}

func (r *PostRepository) CountByStatus(ctx context.Context) (map[model.PostStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM social_posts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.PostStatus]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.PostStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *PostRepository) missingOrConflict(ctx context.Context, postID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM social_posts WHERE id=$1`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrPostNotFound
	}
	if err != nil {
		return err
	}
	return model.ErrInvalidPostTransition
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		p                        model.Post
		media                    []byte
		status                   string
		platforms                []string
		scheduledAt, publishedAt sql.NullTime
		reason                   sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Content, &media, &status, &scheduledAt, pq.Array(&platforms),
		&reason, &publishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.MediaRefs = []model.MediaRef{}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &p.MediaRefs); err != nil {
			return nil, err
		}
	}
	p.Status = model.PostStatus(status)
	p.ScheduledAt = timePtr(scheduledAt)
	p.PublishedAt = timePtr(publishedAt)
	p.FailureReason = stringPtr(reason)
	p.Platforms = model.PlatformsFromStrings(platforms)
	return &p, nil
}
