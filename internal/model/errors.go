// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, upload, system
	Action   string   // ユーザー向け対処方法
	Details  []string // レコード単位の詳細（バリデーションエラーのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	ErrCodeExtractionFailed    = "EXTRACTION_FAILED"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeDownstreamFailed    = "DOWNSTREAM_FAILED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
)

// NewUnsupportedTypeError は拡張子またはContent-Typeが受付対象外の場合のエラーを生成する。
func NewUnsupportedTypeError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedFileType,
		Message:  "Unsupported file type",
		Category: "upload",
		Action:   "Upload one of: .csv, .xlsx, .pdf, .docx, .json.",
	}
}

// NewExtractionError はファイルからレコードを抽出できなかった場合のエラーを生成する。
func NewExtractionError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeExtractionFailed,
		Message:  message,
		Category: "upload",
		Action:   "Check that the file contains name/email/age data in the expected layout.",
	}
}

// NewValidationError はレコード検証に失敗した場合のエラーを生成する。
// messageには最初に違反したフィールドを、detailsには全違反レコードを載せる。
func NewValidationError(field string, details []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("Validation error in %s column data", field),
		Category: "validation",
		Action:   "Fix the listed records and upload the file again.",
		Details:  details,
	}
}

// NewInvalidCredentialsError はログイン失敗時のエラーを生成する。
// ユーザー列挙を防ぐため、原因がユーザー名かパスワードかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Incorrect username or password",
		Category: "auth",
		Action:   "Check the username and password and try again.",
	}
}

// NewInvalidTokenError はBearerトークンの検証に失敗した場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid authentication credentials",
		Category: "auth",
		Action:   "Log in again to obtain a new token.",
	}
}

// NewUsernameTakenError はユーザー名が登録済みの場合のエラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "Username already registered",
		Category: "auth",
		Action:   "Choose a different username.",
	}
}

// NewDownstreamError は下流SaaS APIへの転送に失敗した場合のエラーを生成する。
func NewDownstreamError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeDownstreamFailed,
		Message:  message,
		Category: "system",
		Action:   "Wait a moment and upload the file again.",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "Check the request format and try again.",
	}
}
