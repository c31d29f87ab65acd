package extract

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// JSONExtractor はJSONファイルをRawRecordの列へ変換する。
// 受け付けるのはオブジェクトのトップレベル配列のみ。
type JSONExtractor struct {
	sanitizer security.TextSanitizerService
}

// NewJSONExtractor はJSONExtractorを生成する。
func NewJSONExtractor(sanitizer security.TextSanitizerService) *JSONExtractor {
	return &JSONExtractor{sanitizer: sanitizer}
}

// Extract はJSONファイルを読み込み、各オブジェクトをレコードとして返す。
// トップレベルが配列でない場合や構文エラーはExtractionErrorになる。
// 空配列は空のレコード列を返す（エラーではない）。
// 数値はfloat64のまま保持され、検証時に整数へ変換される。
func (e *JSONExtractor) Extract(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを読み込めませんでした: %w", err)
	}

	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse JSON file: %v", err))
	}

	for _, record := range records {
		for key, val := range record {
			if s, ok := val.(string); ok {
				record[key] = e.sanitizer.Sanitize(s)
			}
		}
	}

	if records == nil {
		records = []model.RawRecord{}
	}
	return &Result{Records: records}, nil
}
