package jwtmw

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "userID"
	ContextUsername  = "username"
	ContextSessionID = "sessionID"
)

// SessionChecker reports whether a server-side session is still usable.
type SessionChecker interface {
	IsSessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Identify reads the session cookie and, when the token is valid and its
// session is active, stores the user in the Gin context. It never rejects
// a request; use RequireUser on protected routes.
func Identify(tokens *Generator, cookieName string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			slog.Debug("ignoring invalid session cookie", "error", err, "remote_addr", c.ClientIP())
			c.Next()
			return
		}

		active, err := sessions.IsSessionActive(c.Request.Context(), claims.SessionID)
		if err != nil {
			slog.Error("session lookup failed", "error", err, "remote_addr", c.ClientIP())
			c.Next()
			return
		}
		if !active {
			c.Next()
			return
		}

		userID, _ := claims.UserID()
		c.Set(ContextUserID, userID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextSessionID, claims.SessionID)
		c.Next()
	}
}

// RequireUser redirects anonymous requests to loginPath with a next
// parameter pointing back at the requested page.
func RequireUser(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}
		target := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// UserID returns the authenticated user's ID.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// Username returns the authenticated user's name, or "" for anonymous requests.
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

// SessionID returns the current session ID, or "" for anonymous requests.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
