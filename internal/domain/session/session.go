package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a logged-in marketplace account: every book listing, trade
// action, and dispute filing is authorized through one. Only the SHA-256
// hash of the bearer token is stored.
type Session struct {
	ID         int64      `json:"id"`
	SessionID  uuid.UUID  `json:"sessionId"`
	TokenHash  string     `json:"-"`
	UserID     uuid.UUID  `json:"userId"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
	IPAddress  *string    `json:"ipAddress,omitempty"`
}

// New creates a session for a user with the given lifetime.
func New(userID uuid.UUID, tokenHash string, ttl time.Duration, userAgent, ipAddress *string) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:  uuid.New(),
		TokenHash:  tokenHash,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: &now,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}
}

// IsExpired reports whether the session has outlived its TTL. Expired
// sessions are deleted on the next authentication attempt.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
