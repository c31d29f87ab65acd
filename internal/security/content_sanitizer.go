// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はアップロードファイルから抽出したフィールド値を
// サニタイズし、下流API・ログへのタグ混入やXSS持ち込みを防ぐ。
// bluemondayライブラリのStrictPolicyで全タグを除去し、プレーンテキスト
// のみを通過させる。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は抽出テキストのサニタイズ機能のインターフェースを定義する。
// レコード検証前に各文字列フィールドへ適用される。
type TextSanitizerService interface {
	// Sanitize はテキストからHTMLタグと制御文字を除去して返す。
	// タグを含まない入力はエンティティ化されず原文のまま返る。
	// 先頭末尾の空白は除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグ・属性を除去し、テキストノードのみを残す。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストからHTMLタグと制御文字を除去して返す。
// bluemondayはエスケープ済みの出力を返すため、タグ除去後に
// エンティティを復元してプレーンテキストへ戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	clean := html.UnescapeString(s.policy.Sanitize(raw))
	clean = strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, clean)
	return strings.TrimSpace(clean)
}
