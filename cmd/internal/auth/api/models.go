package authapi

import (
	"time"

	"beer/cmd/internal/auth/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func toSessionResponse(s session.Session, subj session.Subject) sessionResponse {
	return sessionResponse{
		User:      userResponse{ID: subj.ID, Username: subj.Username},
		ExpiresAt: s.ExpiresAt,
	}
}
