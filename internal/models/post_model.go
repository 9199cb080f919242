package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID        int64        `db:"id" json:"id"`
	MemberID  int64        `db:"member_id" json:"member_id"`
	Platform  int          `db:"platform" json:"platform"`
	PageID    int64        `db:"page_id" json:"page_id"`
	FBPostID  string       `db:"post_id" json:"post_id"`
	PostText  string       `db:"post_text" json:"post_text"`
	PostImage string       `db:"post_image" json:"post_image"`
	PostVideo string       `db:"post_video" json:"post_video"`
	Status    int          `db:"status" json:"status"`
	PostAt    time.Time    `db:"post_at" json:"post_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at" json:"-"`
}

const (
	PlatformFacebook = 1
	PlatformThread   = 2
)

const (
	PostStatusScheduled   = 1 // waiting for its scheduled time
	PostStatusPublished   = 2 // sent to Facebook, FBPostID set
	PostStatusUnpublished = 3 // taken down by an admin
	PostStatusSendFailed  = 4 // gave up sending
	PostStatusSending     = 5 // claimed by the scheduler
)

func PlatformName(platform int) string {
	switch platform {
	case PlatformFacebook:
		return "facebook"
	case PlatformThread:
		return "thread"
	default:
		return "unknown"
	}
}

func PostStatusName(status int) string {
	switch status {
	case PostStatusScheduled:
		return "scheduled"
	case PostStatusPublished:
		return "published"
	case PostStatusUnpublished:
		return "unpublished"
	case PostStatusSendFailed:
		return "send_failed"
	case PostStatusSending:
		return "sending"
	default:
		return "unknown"
	}
}

type StatusTransition struct {
	From int
	To   int
}

// The sending pipeline only ever performs the first three transitions;
// unpublishing is an admin action.
var validTransitions = []StatusTransition{
	{From: PostStatusScheduled, To: PostStatusSending},
	{From: PostStatusSending, To: PostStatusPublished},
	{From: PostStatusSending, To: PostStatusSendFailed},
	{From: PostStatusPublished, To: PostStatusUnpublished},
}

func IsValidStatusTransition(from, to int) bool {
	for _, t := range validTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
