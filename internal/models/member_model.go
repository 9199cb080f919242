package models

import "time"

type Member struct {
	ID        int64     `db:"id" json:"id"`
	FBUserID  string    `db:"fb_user_id" json:"fb_user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
