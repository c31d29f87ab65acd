// Package forward は検証済みレコードの下流SaaS APIへの転送を提供する。
// 配送は1アップロードにつき1回のみで、リトライは行わない。
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/uploadman/internal/model"
)

// submitPath は下流SaaS APIの受付エンドポイントのパス。
const submitPath = "/api/saas/submit"

// Outcome はHTTPステータスコードに基づく転送結果の分類。
type Outcome int

const (
	// OutcomeAccepted は受付成功（2xx）。
	OutcomeAccepted Outcome = iota
	// OutcomeRejected は下流がリクエストを拒否したステータス（4xxほか）。
	OutcomeRejected
	// OutcomeUpstreamFailure は下流側の障害（5xx）。
	OutcomeUpstreamFailure
	// OutcomeUnreachable は接続自体の失敗。
	OutcomeUnreachable
)

// String はログとメトリクスのラベルに使う名前を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUpstreamFailure:
		return "upstream_failure"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ClassifyStatus はHTTPステータスコードを転送結果に分類する。
// 分類はログとメトリクスのためのもので、再送の判断には使わない。
func ClassifyStatus(statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeAccepted
	case statusCode >= 500:
		return OutcomeUpstreamFailure
	default:
		return OutcomeRejected
	}
}

// MetricsRecorder は転送結果の記録のインターフェース。
type MetricsRecorder interface {
	RecordForwardStatus(statusCode int)
	RecordForwardLatency(duration time.Duration)
}

// SaaSForwarderService は検証済みレコードの転送機能のインターフェースを定義する。
type SaaSForwarderService interface {
	// Forward はレコードを下流SaaS APIへ送信し、デコード済みの
	// レスポンスボディを返す。配送は1回のみ。
	Forward(ctx context.Context, records []model.Record) (any, error)
}

// submitRequest は下流SaaS APIへ送るリクエストボディ。
type submitRequest struct {
	Data []model.Record `json:"data"`
}

// Client は下流SaaS APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder
	baseURL    string // テスト用にベースURLを差し替え可能
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Forward は検証済みレコードを {"data": [...]} 形式でPOSTする。
// 非2xxはDownstreamError（"Error communicating with SaaS API"）、
// 接続失敗はDownstreamError（"Failed to connect to SaaS API: ..."）になる。
func (c *Client) Forward(ctx context.Context, records []model.Record) (any, error) {
	if records == nil {
		records = []model.Record{}
	}

	payload, err := json.Marshal(submitRequest{Data: records})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordForwardLatency(time.Since(start))
	if err != nil {
		c.logger.Error("SaaS APIへの接続に失敗しました",
			slog.String("error", err.Error()),
			slog.String("outcome", OutcomeUnreachable.String()),
			slog.Int("record_count", len(records)),
		)
		return nil, model.NewDownstreamError(fmt.Sprintf("Failed to connect to SaaS API: %v", err))
	}
	defer resp.Body.Close()

	c.metrics.RecordForwardStatus(resp.StatusCode)

	outcome := ClassifyStatus(resp.StatusCode)
	if outcome != OutcomeAccepted {
		c.logger.Error("SaaS APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("outcome", outcome.String()),
			slog.Int("record_count", len(records)),
		)
		return nil, model.NewDownstreamError("Error communicating with SaaS API")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewDownstreamError("Error communicating with SaaS API")
	}

	var result any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			// JSON以外のボディはそのまま文字列として返す
			c.logger.Warn("SaaS APIのレスポンスがJSONではありません",
				slog.String("error", err.Error()),
			)
			result = string(body)
		}
	}

	c.logger.Info("SaaS APIへの転送が完了しました",
		slog.Int("http_status", resp.StatusCode),
		slog.Int("record_count", len(records)),
	)
	return result, nil
}
