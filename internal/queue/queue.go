package queue

import (
	config "github.com/pageflowhq/pageflow/configs"
	"github.com/pageflowhq/pageflow/internal/repository"
	"github.com/pageflowhq/pageflow/internal/service"
)

const TaskTypeSendPost = "post:send"

type SendPostPayload struct {
	PostID int64 `json:"post_id"`
}

// FileURLResolver is the slice of the media service the worker needs: turning
// a stored media key into a URL Facebook can fetch.
type FileURLResolver interface {
	FileURL(key string) string
}

type Queue struct {
	cfg   config.Config
	pr    repository.PostRepository
	mp    repository.MemberPageRepository
	fb    service.FacebookService
	media FileURLResolver
}

func NewQueue(
	cfg config.Config,
	pr repository.PostRepository,
	mp repository.MemberPageRepository,
	fb service.FacebookService,
	media FileURLResolver) *Queue {
	return &Queue{
		cfg:   cfg,
		pr:    pr,
		mp:    mp,
		fb:    fb,
		media: media,
	}
}
