// Package extract はアップロードファイルからのレコード抽出を提供する。
//
// 宣言されたContent-Typeで抽出戦略を選択し、各ファイルを
// name/email/ageを持つRawRecordの列へ変換する。PDF/DOCXの
// ヒューリスティック抽出はstrict/lenientモードを持ち、lenientでは
// 不正な行を読み飛ばして件数を記録する。
package extract

import (
	"mime"
	"strings"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// Mode は不正な行・テーブル行に遭遇したときの抽出方針を表す。
type Mode string

const (
	// ModeLenient は不正な行をスキップし、件数をResult.Skippedに記録する。
	ModeLenient Mode = "lenient"
	// ModeStrict は不正な行で抽出を中断し、ExtractionErrorを返す。
	ModeStrict Mode = "strict"
)

// ModeFromString は設定文字列をModeへ変換する。未知の値はlenientとして扱う。
func ModeFromString(s string) Mode {
	if strings.EqualFold(s, string(ModeStrict)) {
		return ModeStrict
	}
	return ModeLenient
}

// Result は1ファイル分の抽出結果を表す。
type Result struct {
	Records []model.RawRecord
	Skipped int // lenientモードで読み飛ばした行数
}

// Extractor は1フォーマット分の抽出戦略のインターフェース。
type Extractor interface {
	Extract(path string) (*Result, error)
}

// Registry は宣言されたContent-Typeから抽出戦略を引くディスパッチャ。
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry は全フォーマットの抽出器を登録したRegistryを生成する。
func NewRegistry(mode Mode, sanitizer security.TextSanitizerService) *Registry {
	csvEx := NewCSVExtractor(sanitizer)
	jsonEx := NewJSONExtractor(sanitizer)
	excelEx := NewExcelExtractor(sanitizer)
	pdfEx := NewPDFExtractor(mode, sanitizer)
	docxEx := NewDocxExtractor(mode, sanitizer)

	return &Registry{
		extractors: map[string]Extractor{
			"application/json":         jsonEx,
			"text/csv":                 csvEx,
			"application/vnd.ms-excel": excelEx,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":   excelEx,
			"application/pdf": pdfEx,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": docxEx,
		},
	}
}

// Extract は宣言されたContent-Typeに対応する抽出器でファイルを処理する。
// "text/csv; charset=utf-8" のようなパラメータ付きの値も受け付ける。
// 対応しないContent-TypeはUnsupportedTypeErrorになる。
func (r *Registry) Extract(contentType, path string) (*Result, error) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	ex, ok := r.extractors[strings.ToLower(strings.TrimSpace(mediaType))]
	if !ok {
		return nil, model.NewUnsupportedTypeError()
	}
	return ex.Extract(path)
}

// isAllDigits は文字列が1文字以上のASCII数字のみで構成されるか判定する。
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
