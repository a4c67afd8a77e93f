// Package router はHTTPルーティングを組み立てます。
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "journal_backend/internal/feature/auth/transport/handler"
	collectionshandler "journal_backend/internal/feature/collections/transport/handler"
	entrieshandler "journal_backend/internal/feature/entries/transport/handler"
	platformhandler "journal_backend/internal/platform/http/handler"
	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/platform/logger"
	"journal_backend/internal/platform/metrics"
	"journal_backend/internal/platform/web"
	"journal_backend/internal/shared/ratelimiter"
)

const loginPath = "/login"

// Deps はルーターが必要とするハンドラーとミドルウェアの依存です。
type Deps struct {
	Auth        *authhandler.AuthHandler
	Entries     *entrieshandler.EntriesHandler
	Collections *collectionshandler.CollectionsHandler
	Health      *platformhandler.HealthHandler
	Metrics     *metrics.Metrics
	Tokens      *jwtmw.Generator
	Sessions    jwtmw.SessionChecker
	AuthLimiter *ratelimiter.RateLimiter
	Logger      *slog.Logger
	// MediaRoot が空でなければ、その配下を /media で配信します（localストレージ用）。
	MediaRoot string
	MediaURL  string
}

// NewRouter はルートを登録したgin.Engineを返します。
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(d.Logger), d.Metrics.Middleware())
	if err := web.Install(r); err != nil {
		return nil, err
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", d.Health.Health)
	r.HEAD("/healthz", d.Health.Health)
	r.OPTIONS("/healthz", d.Health.Health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	if d.MediaRoot != "" {
		mediaURL := d.MediaURL
		if mediaURL == "" {
			mediaURL = "/media"
		}
		r.Static(mediaURL, d.MediaRoot)
	}

	// 以降のページはセッションCookieからログインユーザーを識別する
	site := r.Group("/", jwtmw.Identify(d.Tokens, authhandler.SessionCookie, d.Sessions))
	{
		site.GET("/", d.Entries.Home)
		site.GET("/home", d.Entries.Home)
		site.GET("/login", d.Auth.ShowLogin)
		site.POST("/login", d.AuthLimiter.Middleware(), d.Auth.Login)
		site.GET("/register", d.Auth.ShowRegister)
		site.POST("/register", d.AuthLimiter.Middleware(), d.Auth.Register)
	}

	// 認証必須のルート
	auth := site.Group("/", jwtmw.RequireUser(loginPath))
	{
		auth.POST("/logout", d.Auth.Logout)

		auth.GET("/my-entries", d.Entries.MyEntries)
		auth.GET("/entries/new", d.Entries.ShowCreate)
		auth.POST("/entries/new", d.Entries.Create)
		auth.GET("/entries/:id/edit", d.Entries.ShowEdit)
		auth.POST("/entries/:id/edit", d.Entries.Edit)
		auth.GET("/entries/:id/delete", d.Entries.ConfirmDelete)
		auth.POST("/entries/:id/delete", d.Entries.Delete)
		auth.GET("/entries/:id/collections", d.Entries.ShowCollections)
		auth.POST("/entries/:id/collections", d.Entries.SetCollections)

		auth.GET("/collections", d.Collections.List)
		auth.GET("/collections/new", d.Collections.ShowCreate)
		auth.POST("/collections/new", d.Collections.Create)
		auth.GET("/collections/:id/edit", d.Collections.ShowEdit)
		auth.POST("/collections/:id/edit", d.Collections.Edit)
		auth.GET("/collections/:id/delete", d.Collections.ConfirmDelete)
		auth.POST("/collections/:id/delete", d.Collections.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		web.Render(c, http.StatusNotFound, "error.html", gin.H{
			"Title":   http.StatusText(http.StatusNotFound),
			"Status":  http.StatusNotFound,
			"Message": "The page you are looking for does not exist.",
		})
	})
	return r, nil
}
