package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// DocxExtractor はDOCX内の全テーブルからレコードを抽出する。
//
// 各テーブルの先頭行をヘッダーとして読み飛ばし、以降の行の
// セル0/1/2をname/email/ageへ対応付ける。年齢セルが全て数字の
// 行のみを採用し、合わない行の扱いはモードに従う。
type DocxExtractor struct {
	mode      Mode
	sanitizer security.TextSanitizerService
}

// NewDocxExtractor はDocxExtractorを生成する。
func NewDocxExtractor(mode Mode, sanitizer security.TextSanitizerService) *DocxExtractor {
	return &DocxExtractor{mode: mode, sanitizer: sanitizer}
}

// Extract はDOCXファイルを読み込み、テーブル行からレコードを抽出する。
// 1件も抽出できなかった場合はExtractionErrorになる。
func (e *DocxExtractor) Extract(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けませんでした: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ファイル情報を取得できませんでした: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse DOCX file: %v", err))
	}

	return e.extractTables(docxTableCells(doc))
}

// extractTables はテーブルごとのセル文字列にヒューリスティックを適用する。
// tablesは テーブル → 行 → セル の三重配列。
func (e *DocxExtractor) extractTables(tables [][][]string) (*Result, error) {
	result := &Result{}

	for _, rows := range tables {
		for rowIdx, cells := range rows {
			if rowIdx == 0 {
				// ヘッダー行
				continue
			}

			record, ok := e.recordFromCells(cells)
			if !ok {
				if e.mode == ModeStrict {
					return nil, model.NewExtractionError(fmt.Sprintf("Malformed table row %d in the DOCX file", rowIdx+1))
				}
				result.Skipped++
				continue
			}
			result.Records = append(result.Records, record)
		}
	}

	if len(result.Records) == 0 {
		return nil, model.NewExtractionError("No valid data found in the DOCX file")
	}
	return result, nil
}

// recordFromCells は1行分のセルからレコードを組み立てる。
// セルが3つ未満、または年齢セルが数字でない行は不採用になる。
func (e *DocxExtractor) recordFromCells(cells []string) (model.RawRecord, bool) {
	if len(cells) < 3 {
		return nil, false
	}

	name := e.sanitizer.Sanitize(cells[0])
	email := e.sanitizer.Sanitize(cells[1])
	age := e.sanitizer.Sanitize(cells[2])

	if !isAllDigits(age) {
		return nil, false
	}

	return model.RawRecord{
		"name":  name,
		"email": email,
		"age":   age,
	}, true
}

// docxTableCells は文書内の全テーブルをセル文字列の三重配列へ変換する。
func docxTableCells(doc *docx.Docx) [][][]string {
	var tables [][][]string

	for _, item := range doc.Document.Body.Items {
		table, ok := item.(*docx.Table)
		if !ok {
			continue
		}

		var rows [][]string
		for _, tr := range table.TableRows {
			var cells []string
			for _, tc := range tr.TableCells {
				var sb strings.Builder
				for _, p := range tc.Paragraphs {
					sb.WriteString(p.String())
				}
				cells = append(cells, sb.String())
			}
			rows = append(rows, cells)
		}
		tables = append(tables, rows)
	}

	return tables
}
