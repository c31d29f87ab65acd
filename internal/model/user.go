// Package model はドメインモデルを定義する。
package model

// Credential は登録済みユーザーの認証情報を表す。
// サインアップ時に生成され、以後変更されない。プロセス生存期間のみ保持される。
type Credential struct {
	Username       string
	HashedPassword string
	Email          string
	FullName       string
}

// User はクライアントに返す公開プロフィールを表す。
// パスワードハッシュは含まない。
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// PublicProfile はCredentialから公開プロフィールを生成する。
func (c *Credential) PublicProfile() *User {
	return &User{
		Username: c.Username,
		Email:    c.Email,
		FullName: c.FullName,
	}
}
