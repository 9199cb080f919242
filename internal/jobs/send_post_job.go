package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pageflowhq/pageflow/internal/queue"
	"github.com/pageflowhq/pageflow/internal/repository"
)

// DefaultClaimLimit caps how many due posts a single tick claims.
const DefaultClaimLimit = 3

// SendPostJob is the scheduler tick: claim due posts and hand each to the
// dispatcher. The claim is a conditional bulk update, so ticks that overlap
// never dispatch the same post twice.
type SendPostJob struct {
	pr repository.PostRepository
	d  queue.Dispatcher
}

func NewSendPostJob(pr repository.PostRepository, d queue.Dispatcher) *SendPostJob {
	return &SendPostJob{pr: pr, d: d}
}

// Run returns an error only when selection/claim itself fails; a post that
// cannot be enqueued is logged and skipped.
func (j *SendPostJob) Run(ctx context.Context, limit int) error {
	claimed, err := j.pr.ClaimDue(ctx, limit, time.Now())
	if err != nil {
		return fmt.Errorf("claim due posts: %w", err)
	}

	if len(claimed) == 0 {
		slog.Info("no scheduled posts due")
		return nil
	}

	for _, postID := range claimed {
		if err := j.d.EnqueuePost(ctx, postID); err != nil {
			slog.Error("failed to enqueue post", "post_id", postID, "error", err.Error())
		}
	}

	slog.Info("dispatched due posts", "count", len(claimed), "post_ids", claimed)
	return nil
}
