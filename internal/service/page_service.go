package service

import (
	"context"

	"github.com/pageflowhq/pageflow/internal/models"
	"github.com/pageflowhq/pageflow/internal/repository"
)

type PageService interface {
	List(ctx context.Context, memberID int64) ([]*models.MemberPage, error)
	Remove(ctx context.Context, memberID, pageID int64) error
}

type pageService struct {
	mp repository.MemberPageRepository
}

func NewPageService(mp repository.MemberPageRepository) PageService {
	return &pageService{mp: mp}
}

func (s *pageService) List(ctx context.Context, memberID int64) ([]*models.MemberPage, error) {
	return s.mp.ListByMemberID(ctx, memberID)
}

func (s *pageService) Remove(ctx context.Context, memberID, pageID int64) error {
	return s.mp.Remove(ctx, memberID, pageID)
}
