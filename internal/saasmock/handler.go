// Package saasmock は下流SaaS APIのテストダブルを提供する。
//
// 実SaaSの無い環境（デモ・結合テスト・docker-compose）で使う。本体ルーター
// への同居マウントと、mocksaasサブコマンドによる独立プロセス起動の両方に
// 対応する。レスポンス形式は本物の下流APIを模すため、本体のエラー
// フォーマットではなく `{"detail": ...}` 形式を使う。
package saasmock

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/uploadman/internal/model"
)

// submitPayload は受付エンドポイントが期待するリクエストボディ。
type submitPayload struct {
	Data []model.Record `json:"data"`
}

// Handler は下流SaaS APIを模倣するHTTPハンドラー。
type Handler struct {
	apiKey string
	logger *slog.Logger
}

// NewHandler はHandlerを生成する。
// apiKeyには転送側が送るのと同じ値を注入する。
func NewHandler(apiKey string, logger *slog.Logger) *Handler {
	return &Handler{
		apiKey: apiKey,
		logger: logger,
	}
}

// Submit はデータ受付エンドポイント。APIキーを検証し、受信した
// ペイロードをエコーバックする。
// POST /api/saas/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != h.apiKey {
		h.logger.Warn("不正なAPIキーのリクエストを拒否しました",
			slog.String("remote_addr", r.RemoteAddr),
		)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Invalid API key",
		})
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "Invalid request body",
		})
		return
	}
	if payload.Data == nil {
		payload.Data = []model.Record{}
	}

	h.logger.Info("モックSaaSがデータを受信しました",
		slog.Int("record_count", len(payload.Data)),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Data received successfully",
		"data":    payload,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// SetupRoutes はモックSaaSのルーティングを設定したchi.Routerを返す。
func SetupRoutes(apiKey string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(apiKey, logger)

	r.Post("/api/saas/submit", h.Submit)

	return r
}
