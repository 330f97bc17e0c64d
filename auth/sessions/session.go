// Package sessions stores the server-side session records that anchor each
// refresh-token chain, the per-user session index used for bulk invalidation,
// and the access-token blacklist.
package sessions

import "time"

// Session represents one authenticated refresh-token chain. The JTI field
// always equals the jti embedded in the one refresh token that is currently
// valid for this session; every rotation replaces it.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"` // denormalized so refresh never needs a user-by-id fetch
	JTI       string    `json:"jti"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Data is the input for creating a session.
type Data struct {
	UserID    string
	Email     string
	JTI       string
	IPAddress string
	UserAgent string
}
