package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pageflowhq/pageflow/internal/models"
)

type MemberPageRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, mp *models.MemberPage) (int64, error)
	GetByMemberAndPage(ctx context.Context, memberID, pageID int64) (*models.MemberPage, error)
	ListByMemberID(ctx context.Context, memberID int64) ([]*models.MemberPage, error)
	Remove(ctx context.Context, memberID, pageID int64) error
}

type memberPageRepository struct {
	db *sql.DB
}

func NewMemberPageRepository(db *sql.DB) MemberPageRepository {
	return &memberPageRepository{db: db}
}

func (r *memberPageRepository) Upsert(ctx context.Context, tx *sql.Tx, mp *models.MemberPage) (int64, error) {
	query := `
		INSERT INTO member_pages (member_id, page_id, page_name, access_token)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (member_id, page_id)
		DO UPDATE SET page_name = EXCLUDED.page_name,
			access_token = EXCLUDED.access_token,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, mp.MemberID, mp.PageID, mp.PageName, mp.AccessToken).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, mp.MemberID, mp.PageID, mp.PageName, mp.AccessToken).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *memberPageRepository) GetByMemberAndPage(ctx context.Context, memberID, pageID int64) (*models.MemberPage, error) {
	query := `
		SELECT id, member_id, page_id, page_name, access_token, created_at, updated_at
		FROM member_pages
		WHERE member_id = $1 AND page_id = $2
	`

	var mp models.MemberPage
	err := r.db.QueryRowContext(ctx, query, memberID, pageID).Scan(
		&mp.ID, &mp.MemberID, &mp.PageID, &mp.PageName, &mp.AccessToken, &mp.CreatedAt, &mp.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &mp, nil
}

func (r *memberPageRepository) ListByMemberID(ctx context.Context, memberID int64) ([]*models.MemberPage, error) {
	query := `
		SELECT id, member_id, page_id, page_name, created_at, updated_at
		FROM member_pages
		WHERE member_id = $1
		ORDER BY page_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pages []*models.MemberPage
	for rows.Next() {
		var mp models.MemberPage
		if err := rows.Scan(&mp.ID, &mp.MemberID, &mp.PageID, &mp.PageName, &mp.CreatedAt, &mp.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pages = append(pages, &mp)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return pages, nil
}

func (r *memberPageRepository) Remove(ctx context.Context, memberID, pageID int64) error {
	query := `DELETE FROM member_pages WHERE member_id = $1 AND page_id = $2`
	_, err := r.db.ExecContext(ctx, query, memberID, pageID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
