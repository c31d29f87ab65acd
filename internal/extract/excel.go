package extract

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// ExcelExtractor はxlsxファイルをRawRecordの列へ変換する。
// 先頭シートのみを対象とし、先頭行をヘッダーとして扱う。
type ExcelExtractor struct {
	sanitizer security.TextSanitizerService
}

// NewExcelExtractor はExcelExtractorを生成する。
func NewExcelExtractor(sanitizer security.TextSanitizerService) *ExcelExtractor {
	return &ExcelExtractor{sanitizer: sanitizer}
}

// Extract はxlsxファイルを読み込み、ヘッダーをキーとするレコード列を返す。
// セル値はexcelizeの整形済み文字列として取り出す（数値の30は"30"になる）。
// 壊れたファイルはExtractionErrorになる。
// データ行が存在しない場合は空のレコード列を返す（エラーではない）。
func (e *ExcelExtractor) Extract(path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse Excel file: %v", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("failed to close excel file", slog.String("error", cerr.Error()))
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Result{Records: []model.RawRecord{}}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse Excel file: %v", err))
	}
	if len(rows) == 0 {
		return &Result{Records: []model.RawRecord{}}, nil
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = e.sanitizer.Sanitize(col)
	}

	records := make([]model.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(model.RawRecord, len(header))
		for i, key := range header {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			record[key] = e.sanitizer.Sanitize(val)
		}
		records = append(records, record)
	}

	return &Result{Records: records}, nil
}
