package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// FlashCookie holds messages that survive exactly one redirect.
const FlashCookie = "journal_flash"

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// pendingKey stores flashes added during the current request.
const pendingKey = "web.flashes"

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Level   string `json:"l"`
	Message string `json:"m"`
}

// AddFlash queues a message for the next page the client renders.
func AddFlash(c *gin.Context, level, message string) {
	flashes := append(pendingFlashes(c), Flash{Level: level, Message: message})
	c.Set(pendingKey, flashes)
	writeFlashCookie(c, flashes)
}

// PopFlashes returns the queued messages and clears the cookie.
func PopFlashes(c *gin.Context) []Flash {
	flashes := pendingFlashes(c)
	if len(flashes) == 0 {
		return nil
	}
	c.Set(pendingKey, []Flash(nil))
	http.SetCookie(c.Writer, flashCookie(c, "", -1))
	return flashes
}

// pendingFlashes merges the incoming cookie with flashes added in this request.
func pendingFlashes(c *gin.Context) []Flash {
	if v, ok := c.Get(pendingKey); ok {
		flashes, _ := v.([]Flash)
		return flashes
	}
	var flashes []Flash
	if raw, err := c.Cookie(FlashCookie); err == nil && raw != "" {
		if b, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			_ = json.Unmarshal(b, &flashes)
		}
	}
	c.Set(pendingKey, flashes)
	return flashes
}

func writeFlashCookie(c *gin.Context, flashes []Flash) {
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(c.Writer, flashCookie(c, base64.RawURLEncoding.EncodeToString(b), 0))
}

func flashCookie(c *gin.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     FlashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   IsSecureRequest(c),
		SameSite: http.SameSiteLaxMode,
	}
}

// IsSecureRequest reports whether the client reached us over HTTPS.
func IsSecureRequest(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}
