// Package web renders the HTML pages and carries flash messages between
// requests.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/shared/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"hasID": func(ids []uint, id uint) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	},
}

// Templates parses every embedded page.
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Install loads the templates into r.
func Install(r *gin.Engine) error {
	t, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(t)
	return nil
}

// Render writes the named page. It adds the pending flashes and the current
// user to data.
func Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = validation.Errors(nil)
	}
	_, authenticated := jwtmw.UserID(c)
	data["Authenticated"] = authenticated
	data["CurrentUser"] = jwtmw.Username(c)
	data["Flashes"] = PopFlashes(c)
	c.HTML(status, name, data)
}

// Redirect queues a flash message and answers with 303 See Other.
func Redirect(c *gin.Context, location, level, message string) {
	if message != "" {
		AddFlash(c, level, message)
	}
	c.Redirect(http.StatusSeeOther, location)
}

// RenderError logs err and renders the generic error page.
func RenderError(c *gin.Context, status int, err error) {
	slog.Error("request failed", "error", err, "method", c.Request.Method, "path", c.Request.URL.Path, "remote_addr", c.ClientIP())
	_ = c.Error(err)
	Render(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": "Something went wrong. Please try again later.",
	})
}
