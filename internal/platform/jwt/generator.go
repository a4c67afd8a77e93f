// Package jwtmw は署名付きセッションCookieの発行・検証と、認証用のGinミドルウェアを提供します。
package jwtmw

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はセッションCookieに格納するクレームです。
// Subject にユーザーID、sid にサーバー側セッションのIDを持ちます。
type Claims struct {
	Username  string `json:"name"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID は Subject をユーザーIDとして解釈します。
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// Generator はHS256でトークンを署名・検証します。
type Generator struct {
	secret []byte
	now    func() time.Time
}

// NewGenerator creates a Generator for the given secret.
func NewGenerator(secret string) *Generator {
	return &Generator{secret: []byte(secret), now: time.Now}
}

// GenerateToken creates a signed token for a user session that expires at expiresAt.
func (g *Generator) GenerateToken(userID uint, username, sessionID string, expiresAt time.Time) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}
	claims := Claims{
		Username:  username,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(g.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
// Only HS256 is accepted.
func (g *Generator) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.SessionID == "" {
		return nil, errors.New("token has no session id")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
