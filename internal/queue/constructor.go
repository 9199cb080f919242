package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// One post gets at most maxAttempts publish attempts before it is
	// finalized as failed.
	maxAttempts    = 3
	retryDelay     = 60 * time.Second
	attemptTimeout = 60 * time.Second
)

// Dispatcher hands claimed posts to the worker pool with at most one
// queued or executing attempt per post.
type Dispatcher interface {
	EnqueuePost(ctx context.Context, postID int64) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type dispatcher struct {
	client TaskEnqueuer
}

func NewDispatcher(client TaskEnqueuer) Dispatcher {
	return &dispatcher{client: client}
}

func dedupKey(postID int64) string {
	return fmt.Sprintf("publish:%d", postID)
}

// EnqueuePost queues one publish attempt for the post. While a task with the
// same dedup key is still queued or running, further calls collapse into a
// no-op.
func (d *dispatcher) EnqueuePost(ctx context.Context, postID int64) error {
	payload, err := json.Marshal(SendPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSendPost, payload)

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.TaskID(dedupKey(postID)),
		asynq.MaxRetry(maxAttempts-1),
		asynq.Timeout(attemptTimeout),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			slog.Info("publish task already queued", "post_id", postID)
			return nil
		}
		return err
	}

	slog.Info("publish task queued", "post_id", postID)
	return nil
}

// RetryDelay is plugged into the asynq server config; failed attempts are
// retried after a fixed delay.
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	return retryDelay
}
