package security

import (
	"path"
	"strings"
)

// SanitizeFilename はクライアント指定のファイル名からディレクトリ成分を除去する。
// パストラバーサル（"../../etc/passwd" 等）を防ぐため、区切り文字以降の
// ベース名のみを返す。Windowsクライアントのバックスラッシュ区切りにも対応する。
// ベース名が得られない入力（空文字、"."、".."、区切りのみ）には空文字列を返す。
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}
