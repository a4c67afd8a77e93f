package entity

import "time"

// Session is one logged-in browser. Its ID is carried inside the signed
// session cookie and is checked on every authenticated request.
type Session struct {
	ID        string     // 64-character hex string
	UserID    uint       // Owner of the session
	UserAgent string     // User-Agent at login
	IPAddress string     // Client IP at login
	CreatedAt time.Time  // Login time
	ExpiresAt time.Time  // Cookie expiry
	RevokedAt *time.Time // Set by logout
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsRevoked reports whether the session was logged out.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsActive reports whether the session can still authenticate requests.
func (s *Session) IsActive(now time.Time) bool {
	return !s.IsExpired(now) && !s.IsRevoked()
}
