package extract

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// CSVExtractor はCSVファイルをRawRecordの列へ変換する。
// 先頭行をヘッダーとして扱い、各行をヘッダーのキーで引けるマップにする。
type CSVExtractor struct {
	sanitizer security.TextSanitizerService
}

// NewCSVExtractor はCSVExtractorを生成する。
func NewCSVExtractor(sanitizer security.TextSanitizerService) *CSVExtractor {
	return &CSVExtractor{sanitizer: sanitizer}
}

// Extract はCSVファイルを読み込み、ヘッダーをキーとするレコード列を返す。
// 行ごとのフィールド数は可変として扱い、不足分は空文字列になる。
// 構文エラー（閉じられていない引用符等）はExtractionErrorになる。
// データ行が存在しない場合は空のレコード列を返す（エラーではない）。
func (e *CSVExtractor) Extract(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けませんでした: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse CSV file: %v", err))
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
