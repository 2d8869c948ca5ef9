// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, transport, system
	Action   string // ユーザー向け対処方法
	Status   int    // HTTPステータスコード（0の場合はトランスポート障害）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLoginRequired = "LOGIN_REQUIRED"
	ErrCodeRequestFailed = "REQUEST_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
)

// NewLoginRequiredError はログイン必須エラーを生成する。
// 未ログイン状態で投稿・コメントなどの操作を行おうとした場合に、
// ネットワーク呼び出しの前に返される。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "設定タブからログインしてください。",
	}
}

// NewRequestFailedError はAPI呼び出し失敗エラーを生成する。
// operation には呼び出し元の操作名、status にはHTTPステータス
// （トランスポート障害の場合は0）、body にはレスポンスボディを渡す。
func NewRequestFailedError(operation string, status int, body string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestFailed,
		Message:  fmt.Sprintf("%s に失敗しました (status=%d): %s", operation, status, body),
		Category: "transport",
		Action:   "通信環境を確認して、しばらくしてからもう一度お試しください。",
		Status:   status,
	}
}

// NewInvalidInputError は入力値検証エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
