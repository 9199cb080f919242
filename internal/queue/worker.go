package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/pageflowhq/pageflow/internal/models"
	"github.com/pageflowhq/pageflow/pkg/utils"
)

// ErrFacebookAPI marks a transient publish failure. It is the only error that
// should reach the retry machinery; every other outcome is settled within the
// attempt itself.
var ErrFacebookAPI = errors.New("facebook api call failed")

func (q *Queue) HandleSendPostTask(ctx context.Context, task *asynq.Task) error {
	var payload SendPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode send post payload: %v: %w", err, asynq.SkipRetry)
	}

	err := q.PublishPost(ctx, payload.PostID)
	if err == nil {
		return nil
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		q.FinalizeFailure(payload.PostID)
		return fmt.Errorf("send post %d gave up after %d attempts: %v: %w",
			payload.PostID, retried+1, err, asynq.SkipRetry)
	}

	return err
}

// PublishPost performs one publish attempt. Terminal outcomes (missing
// credential, rejected image upload) finalize the post and return nil;
// a transient Facebook failure returns ErrFacebookAPI so the dispatcher can
// retry.
func (q *Queue) PublishPost(ctx context.Context, postID int64) error {
	post, err := q.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("post not found, skipping", "post_id", postID)
		return nil
	}

	// Only posts still claimed by the scheduler get sent; anything else is a
	// stale or duplicate dispatch.
	if post.Status != models.PostStatusSending {
		slog.Info("post status changed, skipping",
			"post_id", post.ID,
			"current_status", models.PostStatusName(post.Status))
		return nil
	}

	slog.Info("sending facebook post",
		"post_id", post.ID,
		"member_id", post.MemberID,
		"page_id", post.PageID)

	page, err := q.mp.GetByMemberAndPage(ctx, post.MemberID, post.PageID)
	if err != nil {
		return err
	}
	if page == nil {
		slog.Error("no member page for post",
			"post_id", post.ID,
			"member_id", post.MemberID,
			"page_id", post.PageID)
		q.failPost(ctx, post.ID)
		return nil
	}

	accessToken, err := utils.Decrypt(page.AccessToken, []byte(q.cfg.SecretKey))
	if err != nil {
		slog.Error("page access token unusable", "post_id", post.ID, "page_id", post.PageID)
		q.failPost(ctx, post.ID)
		return nil
	}

	pageID := strconv.FormatInt(post.PageID, 10)

	var imageID string
	if post.PostImage != "" {
		imageURL := q.media.FileURL(post.PostImage)
		imageID = q.fb.UploadImageToPage(ctx, pageID, accessToken, imageURL)
		if imageID == "" {
			slog.Error("facebook image upload failed",
				"post_id", post.ID,
				"page_id", post.PageID,
				"image", post.PostImage)
			q.failPost(ctx, post.ID)
			return nil
		}
	}

	fbPostID := q.fb.PostToPage(ctx, pageID, accessToken, post.PostText, imageID)
	if fbPostID == "" {
		return fmt.Errorf("post %d: %w", post.ID, ErrFacebookAPI)
	}

	ok, err := q.pr.Finalize(ctx, post.ID, models.PostStatusSending, models.PostStatusPublished, fbPostID)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("post was finalized concurrently", "post_id", post.ID, "fb_post_id", fbPostID)
		return nil
	}

	slog.Info("facebook post published", "post_id", post.ID, "fb_post_id", fbPostID)
	return nil
}

// FinalizeFailure marks a post as failed once its attempt budget is spent.
// The conditional update makes it idempotent and keeps it from clobbering a
// publish that slipped in concurrently.
func (q *Queue) FinalizeFailure(postID int64) {
	// Runs after the attempt context may already be canceled.
	q.failPost(context.Background(), postID)
}

func (q *Queue) failPost(ctx context.Context, postID int64) {
	ok, err := q.pr.Finalize(ctx, postID, models.PostStatusSending, models.PostStatusSendFailed, "")
	if err != nil {
		slog.Error("failed to mark post as send_failed", "post_id", postID, "error", err.Error())
		return
	}
	if !ok {
		slog.Info("post no longer sending, leaving status untouched", "post_id", postID)
		return
	}
	slog.Info("post marked send_failed", "post_id", postID)
}
