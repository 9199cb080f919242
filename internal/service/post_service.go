package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/pageflowhq/pageflow/internal/models"
	"github.com/pageflowhq/pageflow/internal/repository"
	"github.com/pageflowhq/pageflow/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

var (
	ErrPageNotLinked  = errors.New("member does not own this page")
	ErrPostNotFound   = errors.New("post not found")
	ErrPostImmutable  = errors.New("published posts cannot be changed")
	ErrInvalidPayload = errors.New("invalid post data")
)

type PostService interface {
	Create(ctx context.Context, memberID int64, pc *transfer.PostCreation, image, video *multipart.FileHeader) (int64, error)
	List(ctx context.Context, memberID int64, status, page, limit int) ([]*models.Post, int, error)
	Get(ctx context.Context, memberID, postID int64) (*models.Post, error)
	Update(ctx context.Context, memberID, postID int64, pc *transfer.PostCreation, image, video *multipart.FileHeader) error
	Remove(ctx context.Context, memberID, postID int64) error
}

type postService struct {
	pr    repository.PostRepository
	mp    repository.MemberPageRepository
	media *MediaService
}

func NewPostService(pr repository.PostRepository, mp repository.MemberPageRepository, media *MediaService) PostService {
	return &postService{pr: pr, mp: mp, media: media}
}

func (s *postService) Create(ctx context.Context, memberID int64, pc *transfer.PostCreation, image, video *multipart.FileHeader) (int64, error) {
	pageID, postAt, platform, err := parsePostFields(pc)
	if err != nil {
		return 0, err
	}

	// The page credential must exist before anything gets scheduled against it.
	page, err := s.mp.GetByMemberAndPage(ctx, memberID, pageID)
	if err != nil {
		return 0, err
	}
	if page == nil {
		return 0, ErrPageNotLinked
	}

	post := &models.Post{
		MemberID: memberID,
		Platform: platform,
		PageID:   pageID,
		PostText: pc.PostText,
		Status:   models.PostStatusScheduled,
		PostAt:   postAt,
	}

	postID, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		return 0, fmt.Errorf("failed to create post: %w", err)
	}
	post.ID = postID

	if err := s.attachMedia(ctx, post, image, video); err != nil {
		return 0, err
	}

	return postID, nil
}

func (s *postService) List(ctx context.Context, memberID int64, status, page, limit int) ([]*models.Post, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	posts, err := s.pr.ListByMemberID(ctx, memberID, status, page, limit)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.pr.CountByMemberID(ctx, memberID, status)
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (s *postService) Get(ctx context.Context, memberID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByMemberAndID(ctx, memberID, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, memberID, postID int64, pc *transfer.PostCreation, image, video *multipart.FileHeader) error {
	post, err := s.pr.GetByMemberAndID(ctx, memberID, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.Status == models.PostStatusPublished {
		return ErrPostImmutable
	}

	pageID, postAt, platform, err := parsePostFields(pc)
	if err != nil {
		return err
	}

	if pageID != post.PageID {
		page, err := s.mp.GetByMemberAndPage(ctx, memberID, pageID)
		if err != nil {
			return err
		}
		if page == nil {
			return ErrPageNotLinked
		}
	}

	post.PageID = pageID
	post.Platform = platform
	post.PostText = pc.PostText
	post.PostAt = postAt

	if image != nil && post.PostImage != "" {
		if err := s.media.Delete(ctx, post.PostImage); err != nil {
			slog.Info("failed to delete old image", "post_id", post.ID, "key", post.PostImage)
		}
		post.PostImage = ""
	}
	if video != nil && post.PostVideo != "" {
		if err := s.media.Delete(ctx, post.PostVideo); err != nil {
			slog.Info("failed to delete old video", "post_id", post.ID, "key", post.PostVideo)
		}
		post.PostVideo = ""
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	return s.attachMedia(ctx, post, image, video)
}

func (s *postService) Remove(ctx context.Context, memberID, postID int64) error {
	post, err := s.pr.GetByMemberAndID(ctx, memberID, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}

	if post.PostImage != "" {
		if err := s.media.Delete(ctx, post.PostImage); err != nil {
			slog.Info("failed to delete post image", "post_id", post.ID, "key", post.PostImage)
		}
	}
	if post.PostVideo != "" {
		if err := s.media.Delete(ctx, post.PostVideo); err != nil {
			slog.Info("failed to delete post video", "post_id", post.ID, "key", post.PostVideo)
		}
	}

	return s.pr.SoftDelete(ctx, postID)
}

func (s *postService) attachMedia(ctx context.Context, post *models.Post, image, video *multipart.FileHeader) error {
	changed := false

	if image != nil {
		key, err := s.media.UploadImage(ctx, image, post.ID)
		if err != nil {
			return fmt.Errorf("failed to upload image: %w", err)
		}
		post.PostImage = key
		changed = true
	}

	if video != nil {
		key, err := s.media.UploadVideo(ctx, video, post.ID)
		if err != nil {
			return fmt.Errorf("failed to upload video: %w", err)
		}
		post.PostVideo = key
		changed = true
	}

	if !changed {
		return nil
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return fmt.Errorf("failed to save media references: %w", err)
	}
	return nil
}

func parsePostFields(pc *transfer.PostCreation) (pageID int64, postAt time.Time, platform int, err error) {
	if pc == nil || pc.PostText == "" {
		return 0, time.Time{}, 0, ErrInvalidPayload
	}

	pageID, err = strconv.ParseInt(pc.PageID, 10, 64)
	if err != nil || pageID <= 0 {
		return 0, time.Time{}, 0, fmt.Errorf("invalid page id: %w", ErrInvalidPayload)
	}

	postAt, err = time.Parse(scheduledTimeLayout, pc.PostAt)
	if err != nil {
		return 0, time.Time{}, 0, fmt.Errorf("invalid scheduled time: %w", ErrInvalidPayload)
	}

	switch pc.Platform {
	case "", "facebook":
		platform = models.PlatformFacebook
	case "thread":
		platform = models.PlatformThread
	default:
		return 0, time.Time{}, 0, fmt.Errorf("invalid platform: %w", ErrInvalidPayload)
	}

	return pageID, postAt, platform, nil
}
