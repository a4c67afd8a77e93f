// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"journal_backend/internal/feature/auth/domain/entity"
	"journal_backend/internal/feature/auth/transport/http/dto"
	"journal_backend/internal/feature/auth/usecase"
	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/platform/web"
	"journal_backend/internal/shared/validation"
)

// SessionCookie はセッショントークンを保持するCookie名です。
const SessionCookie = "journal_session"

const (
	loginPath   = "/login"
	defaultNext = "/home"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Register は入力を検証し、新規ユーザーを登録します。
	Register(ctx context.Context, in usecase.RegisterInput) (*entity.User, error)
	// Login はユーザーを認証し、セッションと署名済みトークンを返します。
	Login(ctx context.Context, username, password string, client usecase.ClientInfo) (*usecase.LoginResult, error)
	// Logout はセッションを失効させます。
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandler はログイン・ログアウト・登録のHTTPリクエストを処理します。
type AuthHandler struct {
	auth         AuthUsecase
	cookieName   string
	secureCookie bool
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
// secureCookieがfalseでも、HTTPS経由のリクエストにはSecure属性付きのCookieを発行します。
func NewAuthHandler(auth AuthUsecase, cookieName string, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieName: cookieName, secureCookie: secureCookie}
}

// ShowLogin はログインフォームを表示します。ログイン済みならホームへリダイレクトします。
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if _, ok := jwtmw.UserID(c); ok {
		c.Redirect(http.StatusSeeOther, defaultNext)
		return
	}
	web.Render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Log in",
		"Form":  dto.LoginForm{Next: c.Query("next")},
	})
}

// Login はログインフォームを処理します。
// - 入力不備は422で再表示
// - 認証失敗は401で "Invalid credentials" を表示し、ユーザー名を保持
// - 成功時はセッションCookieを発行し、nextまたは/homeへ303リダイレクト
func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		h.renderLogin(c, http.StatusUnprocessableEntity, form, web.BindingErrors(err))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), form.Username, form.Password, usecase.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			// ユーザー列挙攻撃を防止するため、失敗理由は区別しない
			slog.Warn("login failed", "username", form.Username, "remote_addr", c.ClientIP())
			var errs validation.Errors
			errs.Add("", "Invalid credentials", usecase.ErrInvalidCredentials)
			h.renderLogin(c, http.StatusUnauthorized, form, errs)
			return
		}
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	web.Redirect(c, SafeNext(form.Next), web.LevelSuccess, "Welcome "+res.User.Username+"!")
}

// Logout はセッションを失効させ、Cookieを削除してログイン画面へリダイレクトします。
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), jwtmw.SessionID(c)); err != nil {
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	h.clearSessionCookie(c)
	web.Redirect(c, loginPath, web.LevelInfo, "You have been logged out.")
}

// ShowRegister は登録フォームを表示します。
func (h *AuthHandler) ShowRegister(c *gin.Context) {
	web.Render(c, http.StatusOK, "register.html", gin.H{
		"Title": "Register",
		"Form":  dto.RegisterForm{},
	})
}

// Register は登録フォームを処理します。
// 検証エラーは全項目分を422で表示し、成功時は/loginへリダイレクトします。
func (h *AuthHandler) Register(c *gin.Context) {
	var form dto.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		// フォーム自体が読めない場合のみ。項目の検証はユースケースが行う
		slog.Warn("register form unreadable", "error", err, "remote_addr", c.ClientIP())
		h.renderRegister(c, form, web.BindingErrors(err))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Username:         form.Username,
		Email:            form.Email,
		Password:         form.Password,
		RepeatedPassword: form.RepeatedPassword,
		Country:          form.Country,
	})
	if err != nil {
		if errs, ok := validation.AsErrors(err); ok {
			h.renderRegister(c, form, errs)
			return
		}
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}

	slog.Info("user registered", "user_id", user.ID, "remote_addr", c.ClientIP())
	web.Redirect(c, loginPath, web.LevelSuccess, "Account created for "+user.Username+". You can now log in.")
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, form dto.LoginForm, errs validation.Errors) {
	form.Password = ""
	web.Render(c, status, "login.html", gin.H{
		"Title":  "Log in",
		"Form":   form,
		"Errors": errs,
	})
}

func (h *AuthHandler) renderRegister(c *gin.Context, form dto.RegisterForm, errs validation.Errors) {
	form.Password = ""
	form.RepeatedPassword = ""
	web.Render(c, http.StatusUnprocessableEntity, "register.html", gin.H{
		"Title":  "Register",
		"Form":   form,
		"Errors": errs,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, h.cookie(c, token, maxAge))
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, h.cookie(c, "", -1))
}

func (h *AuthHandler) cookie(c *gin.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie || web.IsSecureRequest(c),
		SameSite: http.SameSiteLaxMode,
	}
}

// SafeNext returns next when it is a local path, and /home otherwise.
// Absolute URLs and protocol-relative paths are rejected to avoid open redirects.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return defaultNext
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return defaultNext
	}
	return next
}
