// Package model はドメインモデルを定義する。
package model

// User はサービス利用ユーザーを表す。
// ログイン応答およびローカルストレージに保存されるプロフィール。
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// LoginResponse は外部IdPトークン交換エンドポイントの応答を表す。
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}
