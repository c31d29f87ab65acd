// Package model はドメインモデルを定義する。
package model

// RawRecord はファイルから抽出された未検証のレコードを表す。
// キーは抽出元フォーマットに依存し、リクエストを越えて保持されない。
type RawRecord map[string]any

// Record は検証済みレコードを表す。
// name/email/ageの全チェックを通過した場合にのみ生成される。
type Record struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}
