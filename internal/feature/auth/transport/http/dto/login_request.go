// Package dto はauthフィーチャーのHTTPトランスポート層のフォーム入力を定義します。
package dto

// LoginForm は/loginに送信されるフォームです。
type LoginForm struct {
	Username string `form:"username" binding:"required,max=150"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}
