// Package validate は抽出済みレコードの検証と正規化を行う。
//
// 検証はバッチ全体に対して行い、1件でも違反があればファイル全体を
// 不合格にする。違反の詳細は全件分を集めてエラーに載せるため、
// 利用者は1回のアップロードで全ての問題を把握できる。
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hitoshi/uploadman/internal/model"
)

// emailPattern は user@domain.tld の骨格を持つことだけを確認する。
// 厳密なRFC準拠の検証は行わない。
var emailPattern = regexp.MustCompile(`[^@]+@[^@]+\.[^@]+`)

// RecordValidatorService は抽出済みレコード群の検証機能のインターフェースを定義する。
type RecordValidatorService interface {
	// ValidateAll は全レコードを検証し、正規化済みレコードを返す。
	// 1件でも違反があれば全違反の詳細を持つエラーを返し、レコードは1件も通さない。
	// 空のバッチは空のスライスを返す。
	ValidateAll(raws []model.RawRecord) ([]model.Record, error)
}

// recordValidator はRecordValidatorServiceの実装。状態を持たない。
type recordValidator struct{}

// NewRecordValidator はRecordValidatorServiceの新しいインスタンスを生成する。
func NewRecordValidator() *recordValidator {
	return &recordValidator{}
}

// fieldIssue は1レコード内の1違反を表す。
type fieldIssue struct {
	field string
	text  string
}

// ValidateAll は全レコードを検証し、正規化済みレコードを返す。
// エラーのMessageは最初に違反したフィールド名を、Detailsは全違反を載せる。
func (v *recordValidator) ValidateAll(raws []model.RawRecord) ([]model.Record, error) {
	records := make([]model.Record, 0, len(raws))
	firstField := ""
	var details []string

	for i, raw := range raws {
		record, issues := checkRecord(raw)
		if len(issues) > 0 {
			for _, issue := range issues {
				if firstField == "" {
					firstField = issue.field
				}
				details = append(details, fmt.Sprintf("record %d: %s", i+1, issue.text))
			}
			continue
		}
		records = append(records, record)
	}

	if firstField != "" {
		return nil, model.NewValidationError(firstField, details)
	}
	return records, nil
}

// checkRecord は1レコードをname、email、ageの順に検証する。
func checkRecord(raw model.RawRecord) (model.Record, []fieldIssue) {
	var issues []fieldIssue

	name, issue := checkName(raw)
	if issue != nil {
		issues = append(issues, *issue)
	}

	email, issue := checkEmail(raw)
	if issue != nil {
		issues = append(issues, *issue)
	}

	age, issue := checkAge(raw)
	if issue != nil {
		issues = append(issues, *issue)
	}

	if len(issues) > 0 {
		return model.Record{}, issues
	}
	return model.Record{Name: name, Email: email, Age: age}, nil
}

// checkName は名前が空でなく、文字と空白のみで構成されることを確認する。
func checkName(raw model.RawRecord) (string, *fieldIssue) {
	value, ok := raw["name"]
	if !ok {
		return "", &fieldIssue{field: "name", text: "name is missing"}
	}
	s, ok := value.(string)
	if !ok {
		return "", &fieldIssue{field: "name", text: "name must be a string"}
	}
	name := strings.TrimSpace(s)
	if name == "" {
		return "", &fieldIssue{field: "name", text: "name must not be empty"}
	}
	for _, r := range strings.ReplaceAll(name, " ", "") {
		if !unicode.IsLetter(r) {
			return "", &fieldIssue{field: "name", text: "name must contain only letters and spaces"}
		}
	}
	return name, nil
}

// checkEmail はメールアドレスが基本形を満たすことを確認する。
func checkEmail(raw model.RawRecord) (string, *fieldIssue) {
	value, ok := raw["email"]
	if !ok {
		return "", &fieldIssue{field: "email", text: "email is missing"}
	}
	s, ok := value.(string)
	if !ok {
		return "", &fieldIssue{field: "email", text: "email must be a string"}
	}
	email := strings.TrimSpace(s)
	if !emailPattern.MatchString(email) {
		return "", &fieldIssue{field: "email", text: "email must be a valid email address"}
	}
	return email, nil
}

// checkAge は年齢が正の整数であることを確認する。
func checkAge(raw model.RawRecord) (int, *fieldIssue) {
	value, ok := raw["age"]
	if !ok {
		return 0, &fieldIssue{field: "age", text: "age is missing"}
	}
	age, ok := coerceAge(value)
	if !ok || age <= 0 {
		return 0, &fieldIssue{field: "age", text: "age must be a positive integer"}
	}
	return age, nil
}

// coerceAge は抽出元ごとに型の異なる年齢値をintへ揃える。
// CSV・PDF・DOCX・Excelは文字列で、JSONはfloat64で届く。
func coerceAge(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
