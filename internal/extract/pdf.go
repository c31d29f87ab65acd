package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// PDFExtractor はPDFのテキスト行からヒューリスティックにレコードを抽出する。
//
// 行ごとに空白で分割し、"@"を含む最初のトークンをメールアドレスの
// アンカーとする。その前方のトークンを連結したものが名前、直後のトークンが
// 全て数字であれば年齢になる。空行と"name"で始まるヘッダー行は無視する。
// パターンに合わない行の扱いはモードに従う。
type PDFExtractor struct {
	mode      Mode
	sanitizer security.TextSanitizerService
}

// NewPDFExtractor はPDFExtractorを生成する。
func NewPDFExtractor(mode Mode, sanitizer security.TextSanitizerService) *PDFExtractor {
	return &PDFExtractor{mode: mode, sanitizer: sanitizer}
}

// Extract はPDFの全ページからテキスト行を集め、レコードを抽出する。
// 1件も抽出できなかった場合はExtractionErrorになる。
func (e *PDFExtractor) Extract(path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse PDF file: %v", err))
	}
	defer f.Close()

	lines, err := pdfTextLines(reader)
	if err != nil {
		return nil, model.NewExtractionError(fmt.Sprintf("Failed to parse PDF file: %v", err))
	}

	return e.extractLines(lines)
}

// extractLines はテキスト行の列にヒューリスティックを適用する。
func (e *PDFExtractor) extractLines(lines []string) (*Result, error) {
	result := &Result{}

	for i, raw := range lines {
		line := e.sanitizer.Sanitize(raw)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "name") {
			continue
		}

		record, ok := parsePersonLine(line)
		if !ok {
			if e.mode == ModeStrict {
				return nil, model.NewExtractionError(fmt.Sprintf("Malformed line %d in the PDF", i+1))
			}
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, record)
	}

	if len(result.Records) == 0 {
		return nil, model.NewExtractionError("No valid data found in the PDF")
	}
	return result, nil
}

// parsePersonLine は1行からname/email/ageを取り出す。
// メールアンカーが無い、または年齢トークンが数字でない行は不採用になる。
// メールが行頭にある場合は名前が空のレコードになり、検証段階で弾かれる。
func parsePersonLine(line string) (model.RawRecord, bool) {
	tokens := strings.Fields(line)

	emailIdx := -1
	for i, tok := range tokens {
		if strings.Contains(tok, "@") {
			emailIdx = i
			break
		}
	}
	if emailIdx == -1 || emailIdx+1 >= len(tokens) {
		return nil, false
	}

	age := tokens[emailIdx+1]
	if !isAllDigits(age) {
		return nil, false
	}

	return model.RawRecord{
		"name":  strings.Join(tokens[:emailIdx], " "),
		"email": tokens[emailIdx],
		"age":   age,
	}, true
}

// pdfTextLines は全ページのテキストを行単位で取り出す。
func pdfTextLines(reader *pdf.Reader) ([]string, error) {
	var lines []string

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, text := range row.Content {
				sb.WriteString(text.S)
			}
			lines = append(lines, sb.String())
		}
	}

	return lines, nil
}
