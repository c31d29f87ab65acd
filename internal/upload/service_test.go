package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/uploadman/internal/extract"
	"github.com/hitoshi/uploadman/internal/model"
)

// --- モック定義 ---

// mockFileStore はFileStoreのモック実装。
type mockFileStore struct {
	saveFn func(filename string, src io.Reader) (string, error)
}

func (m *mockFileStore) Save(filename string, src io.Reader) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(filename, src)
	}
	return "uploads/" + filename, nil
}

// mockExtractor はRecordExtractorのモック実装。
type mockExtractor struct {
	extractFn func(contentType, path string) (*extract.Result, error)
}

func (m *mockExtractor) Extract(contentType, path string) (*extract.Result, error) {
	if m.extractFn != nil {
		return m.extractFn(contentType, path)
	}
	return &extract.Result{}, nil
}

// mockValidator はRecordValidatorのモック実装。
type mockValidator struct {
	validateFn func(raws []model.RawRecord) ([]model.Record, error)
}

func (m *mockValidator) ValidateAll(raws []model.RawRecord) ([]model.Record, error) {
	if m.validateFn != nil {
		return m.validateFn(raws)
	}
	return []model.Record{}, nil
}

// mockForwarder はSaaSForwarderのモック実装。
type mockForwarder struct {
	forwardFn func(ctx context.Context, records []model.Record) (any, error)
}

func (m *mockForwarder) Forward(ctx context.Context, records []model.Record) (any, error) {
	if m.forwardFn != nil {
		return m.forwardFn(ctx, records)
	}
	return nil, nil
}

// mockMetrics は記録された値を保持するMetricsRecorderのモック。
type mockMetrics struct {
	outcomes  []string
	forwarded int
	skipped   int
}

func (m *mockMetrics) RecordUpload(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) RecordRecordsForwarded(count int) {
	m.forwarded += count
}

func (m *mockMetrics) RecordRecordsSkipped(count int) {
	m.skipped += count
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testInput() Input {
	return Input{
		Filename:    "records.csv",
		ContentType: "text/csv",
		Body:        strings.NewReader("name,email,age\nJane Doe,jane@x.com,30\n"),
	}
}

func rawRecords() []model.RawRecord {
	return []model.RawRecord{
		{"name": "Jane Doe", "email": "jane@x.com", "age": "30"},
	}
}

func validRecords() []model.Record {
	return []model.Record{
		{Name: "Jane Doe", Email: "jane@x.com", Age: 30},
	}
}

// --- パイプラインテスト ---

func TestService_Process_RunsAllStagesInOrder(t *testing.T) {
	var order []string

	store := &mockFileStore{
		saveFn: func(filename string, src io.Reader) (string, error) {
			order = append(order, "save")
			if filename != "records.csv" {
				t.Errorf("filename = %q, want %q", filename, "records.csv")
			}
			return "uploads/records.csv", nil
		},
	}
	extractor := &mockExtractor{
		extractFn: func(contentType, path string) (*extract.Result, error) {
			order = append(order, "extract")
			if contentType != "text/csv" {
				t.Errorf("contentType = %q, want %q", contentType, "text/csv")
			}
			if path != "uploads/records.csv" {
				t.Errorf("path = %q, want %q", path, "uploads/records.csv")
			}
			return &extract.Result{Records: rawRecords(), Skipped: 1}, nil
		},
	}
	validator := &mockValidator{
		validateFn: func(raws []model.RawRecord) ([]model.Record, error) {
			order = append(order, "validate")
			if len(raws) != 1 {
				t.Errorf("raw records = %d, want 1", len(raws))
			}
			return validRecords(), nil
		},
	}
	forwarder := &mockForwarder{
		forwardFn: func(ctx context.Context, records []model.Record) (any, error) {
			order = append(order, "forward")
			if len(records) != 1 {
				t.Errorf("records = %d, want 1", len(records))
			}
			return map[string]any{"status": "success"}, nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(store, extractor, validator, forwarder, metrics, testLogger())

	result, err := svc.Process(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	wantOrder := []string{"save", "extract", "validate", "forward"}
	if len(order) != len(wantOrder) {
		t.Fatalf("stages = %v, want %v", order, wantOrder)
	}
	for i, stage := range wantOrder {
		if order[i] != stage {
			t.Errorf("stage[%d] = %q, want %q", i, order[i], stage)
		}
	}

	if result.SavedPath != "uploads/records.csv" {
		t.Errorf("SavedPath = %q, want %q", result.SavedPath, "uploads/records.csv")
	}
	if result.Extracted != 1 {
		t.Errorf("Extracted = %d, want 1", result.Extracted)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Forwarded != 1 {
		t.Errorf("Forwarded = %d, want 1", result.Forwarded)
	}
	respMap, ok := result.SaaSResponse.(map[string]any)
	if !ok || respMap["status"] != "success" {
		t.Errorf("SaaSResponse = %v, want status success", result.SaaSResponse)
	}

	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "success" {
		t.Errorf("outcomes = %v, want [success]", metrics.outcomes)
	}
	if metrics.forwarded != 1 {
		t.Errorf("forwarded = %d, want 1", metrics.forwarded)
	}
	if metrics.skipped != 1 {
		t.Errorf("skipped = %d, want 1", metrics.skipped)
	}
}

func TestService_Process_SaveFailure_StopsPipeline(t *testing.T) {
	extractCalled := false

	store := &mockFileStore{
		saveFn: func(filename string, src io.Reader) (string, error) {
			return "", model.NewUnsupportedTypeError()
		},
	}
	extractor := &mockExtractor{
		extractFn: func(contentType, path string) (*extract.Result, error) {
			extractCalled = true
			return &extract.Result{}, nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(store, extractor, &mockValidator{}, &mockForwarder{}, metrics, testLogger())

	_, err := svc.Process(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnsupportedFileType {
		t.Errorf("err = %v, want UnsupportedTypeError", err)
	}
	if extractCalled {
		t.Error("extract must not run when save fails")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "unsupported_type" {
		t.Errorf("outcomes = %v, want [unsupported_type]", metrics.outcomes)
	}
}

func TestService_Process_ExtractFailure_StopsPipeline(t *testing.T) {
	validateCalled := false

	extractor := &mockExtractor{
		extractFn: func(contentType, path string) (*extract.Result, error) {
			return nil, model.NewExtractionError("No valid data found in the PDF")
		},
	}
	validator := &mockValidator{
		validateFn: func(raws []model.RawRecord) ([]model.Record, error) {
			validateCalled = true
			return nil, nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(&mockFileStore{}, extractor, validator, &mockForwarder{}, metrics, testLogger())

	_, err := svc.Process(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if validateCalled {
		t.Error("validate must not run when extraction fails")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "extraction_failed" {
		t.Errorf("outcomes = %v, want [extraction_failed]", metrics.outcomes)
	}
}

func TestService_Process_ValidationFailure_NothingForwarded(t *testing.T) {
	forwardCalled := false

	extractor := &mockExtractor{
		extractFn: func(contentType, path string) (*extract.Result, error) {
			return &extract.Result{Records: rawRecords()}, nil
		},
	}
	validator := &mockValidator{
		validateFn: func(raws []model.RawRecord) ([]model.Record, error) {
			return nil, model.NewValidationError("name", []string{"record 1: name must contain only letters and spaces"})
		},
	}
	forwarder := &mockForwarder{
		forwardFn: func(ctx context.Context, records []model.Record) (any, error) {
			forwardCalled = true
			return nil, nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(&mockFileStore{}, extractor, validator, forwarder, metrics, testLogger())

	_, err := svc.Process(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("err = %v, want ValidationError", err)
	}
	if forwardCalled {
		t.Error("forward must not run when validation fails")
	}
	if metrics.forwarded != 0 {
		t.Errorf("forwarded = %d, want 0", metrics.forwarded)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "validation_failed" {
		t.Errorf("outcomes = %v, want [validation_failed]", metrics.outcomes)
	}
}

func TestService_Process_ForwardFailure_PropagatesError(t *testing.T) {
	extractor := &mockExtractor{
		extractFn: func(contentType, path string) (*extract.Result, error) {
			return &extract.Result{Records: rawRecords()}, nil
		},
	}
	validator := &mockValidator{
		validateFn: func(raws []model.RawRecord) ([]model.Record, error) {
			return validRecords(), nil
		},
	}
	forwarder := &mockForwarder{
		forwardFn: func(ctx context.Context, records []model.Record) (any, error) {
			return nil, model.NewDownstreamError("Error communicating with SaaS API")
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(&mockFileStore{}, extractor, validator, forwarder, metrics, testLogger())

	_, err := svc.Process(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDownstreamFailed {
		t.Errorf("err = %v, want DownstreamError", err)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "downstream_failed" {
		t.Errorf("outcomes = %v, want [downstream_failed]", metrics.outcomes)
	}
}

func TestService_Process_EmptyBatch_ForwardsEmpty(t *testing.T) {
	// CSVのヘッダーのみのファイルなど、0件の抽出は有効でそのまま転送する
	forwardedCount := -1

	extractor := &mockExtractor{
		extractFn: func(contentType, path string) (*extract.Result, error) {
			return &extract.Result{Records: []model.RawRecord{}}, nil
		},
	}
	forwarder := &mockForwarder{
		forwardFn: func(ctx context.Context, records []model.Record) (any, error) {
			forwardedCount = len(records)
			return map[string]any{"status": "success"}, nil
		},
	}

	svc := NewService(&mockFileStore{}, extractor, &mockValidator{}, forwarder, &mockMetrics{}, testLogger())

	result, err := svc.Process(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if forwardedCount != 0 {
		t.Errorf("forwarded records = %d, want 0", forwardedCount)
	}
	if result.Forwarded != 0 {
		t.Errorf("Forwarded = %d, want 0", result.Forwarded)
	}
}

func TestOutcomeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"対象外ファイル", model.NewUnsupportedTypeError(), "unsupported_type"},
		{"抽出失敗", model.NewExtractionError("x"), "extraction_failed"},
		{"検証失敗", model.NewValidationError("name", nil), "validation_failed"},
		{"下流失敗", model.NewDownstreamError("x"), "downstream_failed"},
		{"一般エラー", errors.New("disk full"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeFromError(tt.err); got != tt.want {
				t.Errorf("outcomeFromError() = %q, want %q", got, tt.want)
			}
		})
	}
}
