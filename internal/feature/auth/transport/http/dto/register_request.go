package dto

// RegisterForm は/registerに送信されるフォームです。
// 必須・長さ・形式・重複はすべてユースケース側でまとめて検証するため、binding タグは付けません。
type RegisterForm struct {
	Username         string `form:"username"`
	Email            string `form:"email"`
	Password         string `form:"password"`
	RepeatedPassword string `form:"repeated_password"`
	Country          string `form:"country"`
}
