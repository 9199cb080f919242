package models

import "time"

// MemberPage holds the page access token a member granted us during the
// Facebook login flow. AccessToken is stored encrypted and is unique per
// (member_id, page_id).
type MemberPage struct {
	ID          int64     `db:"id" json:"id"`
	MemberID    int64     `db:"member_id" json:"member_id"`
	PageID      int64     `db:"page_id" json:"page_id"`
	PageName    string    `db:"page_name" json:"page_name"`
	AccessToken string    `db:"access_token" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
