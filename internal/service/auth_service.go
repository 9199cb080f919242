package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	config "github.com/pageflowhq/pageflow/configs"
	"github.com/pageflowhq/pageflow/internal/models"
	"github.com/pageflowhq/pageflow/internal/repository"
	"github.com/pageflowhq/pageflow/pkg/utils"
)

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	cfg config.Config
	fb  FacebookService
	mr  repository.MemberRepository
	mp  repository.MemberPageRepository
}

func NewAuthService(cfg config.Config, fb FacebookService, mr repository.MemberRepository, mp repository.MemberPageRepository) AuthService {
	return &authService{cfg: cfg, fb: fb, mr: mr, mp: mp}
}

func (s *authService) LoginURL(state string) string {
	return s.fb.LoginURL(state)
}

// LoginCallback exchanges the OAuth code, upserts the member and refreshes
// the page credentials the member granted. Returns the member id for the
// session cookie.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := s.fb.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return 0, err
	}

	profile, err := s.fb.GetUserProfile(ctx, token.AccessToken)
	if err != nil {
		return 0, err
	}

	member, exists, err := s.mr.GetByFBUserID(ctx, profile.ID)
	if err != nil {
		return 0, err
	}

	var memberID int64
	if exists {
		memberID = member.ID
	} else {
		memberID, err = s.mr.Create(ctx, nil, &models.Member{
			FBUserID: profile.ID,
			Name:     profile.Name,
		})
		if err != nil {
			return 0, err
		}
	}

	if err := s.syncPages(ctx, memberID, token.AccessToken); err != nil {
		return 0, err
	}

	return memberID, nil
}

func (s *authService) syncPages(ctx context.Context, memberID int64, accessToken string) error {
	pages, err := s.fb.GetUserPages(ctx, accessToken)
	if err != nil {
		return err
	}

	for _, page := range pages {
		pageID, err := strconv.ParseInt(page.ID, 10, 64)
		if err != nil {
			slog.Info("skipping page with non-numeric id", "page_id", page.ID)
			continue
		}

		encryptedToken, err := utils.Encrypt([]byte(page.AccessToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}

		_, err = s.mp.Upsert(ctx, nil, &models.MemberPage{
			MemberID:    memberID,
			PageID:      pageID,
			PageName:    page.Name,
			AccessToken: encryptedToken,
		})
		if err != nil {
			return err
		}
	}

	slog.Info("synced member pages", "member_id", memberID, "count", len(pages))
	return nil
}
