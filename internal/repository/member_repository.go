package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pageflowhq/pageflow/internal/models"
)

type MemberRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Member, bool, error)
	GetByFBUserID(ctx context.Context, fbUserID string) (*models.Member, bool, error)
	Create(ctx context.Context, tx *sql.Tx, member *models.Member) (int64, error)
	Update(ctx context.Context, member *models.Member) error
}

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*models.Member, bool, error) {
	var m models.Member
	query := `SELECT id, fb_user_id, name, created_at, updated_at FROM members WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.FBUserID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &m, true, nil
}

func (r *memberRepository) GetByFBUserID(ctx context.Context, fbUserID string) (*models.Member, bool, error) {
	var m models.Member
	query := `SELECT id, fb_user_id, name, created_at, updated_at FROM members WHERE fb_user_id = $1`
	err := r.db.QueryRowContext(ctx, query, fbUserID).Scan(&m.ID, &m.FBUserID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &m, true, nil
}

func (r *memberRepository) Create(ctx context.Context, tx *sql.Tx, member *models.Member) (int64, error) {
	query := `INSERT INTO members (fb_user_id, name) VALUES ($1, $2) RETURNING id`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, member.FBUserID, member.Name).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, member.FBUserID, member.Name).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	query := `UPDATE members SET name = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, member.Name, time.Now(), member.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
