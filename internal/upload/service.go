package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/hitoshi/uploadman/internal/extract"
	"github.com/hitoshi/uploadman/internal/model"
)

// RecordExtractor はContent-Typeに応じたレコード抽出のインターフェース。
type RecordExtractor interface {
	Extract(contentType, path string) (*extract.Result, error)
}

// RecordValidator は抽出済みレコードの検証のインターフェース。
type RecordValidator interface {
	ValidateAll(raws []model.RawRecord) ([]model.Record, error)
}

// SaaSForwarder は検証済みレコードの転送のインターフェース。
type SaaSForwarder interface {
	Forward(ctx context.Context, records []model.Record) (any, error)
}

// MetricsRecorder はアップロード結果の記録のインターフェース。
type MetricsRecorder interface {
	RecordUpload(outcome string)
	RecordRecordsForwarded(count int)
	RecordRecordsSkipped(count int)
}

// Input はアップロード1件の入力。
type Input struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Result はパイプライン成功時の結果。
type Result struct {
	SavedPath    string
	SaaSResponse any
	Extracted    int
	Skipped      int
	Forwarded    int
}

// Service は保存、抽出、検証、転送のパイプラインを実行する。
// 各段階は逐次実行され、失敗した段階のエラーがそのまま呼び出し元へ返る。
type Service struct {
	store     FileStore
	extractor RecordExtractor
	validator RecordValidator
	forwarder SaaSForwarder
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	store FileStore,
	extractor RecordExtractor,
	validator RecordValidator,
	forwarder SaaSForwarder,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		validator: validator,
		forwarder: forwarder,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process はアップロードされたファイルをパイプラインに通す。
// 検証に失敗したバッチは1件も転送されない。
func (s *Service) Process(ctx context.Context, in Input) (*Result, error) {
	path, err := s.store.Save(in.Filename, in.Body)
	if err != nil {
		s.logger.Warn("ファイルの保存に失敗しました",
			slog.String("file", in.Filename),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordUpload(outcomeFromError(err))
		return nil, err
	}

	extracted, err := s.extractor.Extract(in.ContentType, path)
	if err != nil {
		s.logger.Warn("レコードの抽出に失敗しました",
			slog.String("file", filepath.Base(path)),
			slog.String("content_type", in.ContentType),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordUpload(outcomeFromError(err))
		return nil, err
	}

	s.metrics.RecordRecordsSkipped(extracted.Skipped)
	if extracted.Skipped > 0 {
		s.logger.Warn("抽出時に読み飛ばした行があります",
			slog.String("file", filepath.Base(path)),
			slog.Int("skipped", extracted.Skipped),
		)
	}

	records, err := s.validator.ValidateAll(extracted.Records)
	if err != nil {
		s.logger.Warn("レコードの検証に失敗しました",
			slog.String("file", filepath.Base(path)),
			slog.Int("extracted", len(extracted.Records)),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordUpload(outcomeFromError(err))
		return nil, err
	}

	resp, err := s.forwarder.Forward(ctx, records)
	if err != nil {
		s.metrics.RecordUpload(outcomeFromError(err))
		return nil, err
	}

	s.metrics.RecordUpload("success")
	s.metrics.RecordRecordsForwarded(len(records))

	s.logger.Info("アップロードの処理が完了しました",
		slog.String("file", filepath.Base(path)),
		slog.String("content_type", in.ContentType),
		slog.Int("extracted", len(extracted.Records)),
		slog.Int("skipped", extracted.Skipped),
		slog.Int("forwarded", len(records)),
	)

	return &Result{
		SavedPath:    path,
		SaaSResponse: resp,
		Extracted:    len(extracted.Records),
		Skipped:      extracted.Skipped,
		Forwarded:    len(records),
	}, nil
}

// outcomeFromError はエラーコードをメトリクスのoutcomeラベルへ変換する。
func outcomeFromError(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeUnsupportedFileType:
			return "unsupported_type"
		case model.ErrCodeExtractionFailed:
			return "extraction_failed"
		case model.ErrCodeValidationFailed:
			return "validation_failed"
		case model.ErrCodeDownstreamFailed:
			return "downstream_failed"
		}
	}
	return "error"
}
