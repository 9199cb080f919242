package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/pageflowhq/pageflow/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByMemberAndID(ctx context.Context, memberID, id int64) (*models.Post, error)
	ListByMemberID(ctx context.Context, memberID int64, status, page, limit int) ([]*models.Post, error)
	CountByMemberID(ctx context.Context, memberID int64, status int) (int, error)
	Update(ctx context.Context, post *models.Post) error
	SoftDelete(ctx context.Context, id int64) error
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]int64, error)
	Finalize(ctx context.Context, id int64, expectedStatus, newStatus int, fbPostID string) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, member_id, platform, page_id, post_id, post_text, post_image, post_video, status, post_at, created_at, updated_at, deleted_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.MemberID, &p.Platform, &p.PageID, &p.FBPostID,
		&p.PostText, &p.PostImage, &p.PostVideo, &p.Status, &p.PostAt,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (member_id, platform, page_id, post_text, post_image, post_video, status, post_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.MemberID, post.Platform, post.PageID,
			post.PostText, post.PostImage, post.PostVideo, post.Status, post.PostAt).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.MemberID, post.Platform, post.PageID,
			post.PostText, post.PostImage, post.PostVideo, post.Status, post.PostAt).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND deleted_at IS NULL`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByMemberAndID(ctx context.Context, memberID, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND member_id = $2 AND deleted_at IS NULL`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, memberID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByMemberID(ctx context.Context, memberID int64, status, page, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE member_id = $1 AND deleted_at IS NULL`
	args := []any{memberID}

	if status != 0 {
		query += ` AND status = $2`
		args = append(args, status)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) CountByMemberID(ctx context.Context, memberID int64, status int) (int, error) {
	query := `SELECT COUNT(*) FROM posts WHERE member_id = $1 AND deleted_at IS NULL`
	args := []any{memberID}

	if status != 0 {
		query += ` AND status = $2`
		args = append(args, status)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return count, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET page_id = $1,
			post_text = $2,
			post_image = $3,
			post_video = $4,
			post_at = $5,
			updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, post.PageID, post.PostText, post.PostImage,
		post.PostVideo, post.PostAt, time.Now(), post.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE posts SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimDue selects due scheduled posts and flips them to SENDING in a single
// conditional update. Only ids whose update applied are returned; rows already
// claimed by an overlapping run drop out via the status condition.
func (r *postRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]int64, error) {
	selectQuery := `
		SELECT id FROM posts
		WHERE status = $1 AND post_at <= $2 AND deleted_at IS NULL
		ORDER BY post_at ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, selectQuery, models.PostStatusScheduled, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var candidates []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		candidates = append(candidates, id)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	claimQuery := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = ANY($3) AND status = $4
		RETURNING id
	`

	claimRows, err := r.db.QueryContext(ctx, claimQuery,
		models.PostStatusSending, now, pq.Array(candidates), models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer claimRows.Close()

	var claimed []int64
	for claimRows.Next() {
		var id int64
		if err := claimRows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		claimed = append(claimed, id)
	}
	if err = claimRows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return claimed, nil
}

// Finalize moves a post out of expectedStatus. It reports false when the row
// was no longer in that status, so concurrent writers cannot overwrite a
// terminal state with a stale one.
func (r *postRepository) Finalize(ctx context.Context, id int64, expectedStatus, newStatus int, fbPostID string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			post_id = COALESCE(NULLIF($2, ''), post_id),
			updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, newStatus, fbPostID, time.Now(), id, expectedStatus)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}
