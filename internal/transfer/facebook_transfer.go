package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type FacebookToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

type FacebookUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FacebookPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type PostCreation struct {
	PageID   string
	Platform string
	PostText string
	PostAt   string
}

type CustomClaims struct {
	MemberID string `json:"member_id"`
	jwt.RegisteredClaims
}
