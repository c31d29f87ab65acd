package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/uploadman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string

	// サービス
	AuthService   AuthServiceInterface
	UploadService UploadServiceInterface
	MaxUploadSize int64

	// 運用エンドポイント
	MetricsHandler http.Handler

	// モックSaaS。nilの場合はマウントしない。
	MockSaaSSubmit http.HandlerFunc
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS
//
// アップロードルートにはさらに Auth → RateLimit(Upload) が重なる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	uploadHandler := NewUploadHandler(deps.UploadService, deps.MaxUploadSize)

	// --- 認証不要のルート ---

	r.Get("/health", handleHealth)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/signup", authHandler.Signup)
	r.Post("/login", authHandler.Login)

	// レート制限のデモ用エンドポイント
	r.With(deps.RateLimiter.GeneralMiddleware()).Get("/limited", handleLimited)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(Upload)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.UploadMiddleware())

		r.Post("/upload", uploadHandler.Upload)
	})

	// モックSaaSを同一プロセスに同居させる開発用マウント
	if deps.MockSaaSSubmit != nil {
		r.Post("/api/saas/submit", deps.MockSaaSSubmit)
	}

	return r
}

// handleHealth はヘルスチェックに応答する。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleLimited はレート制限の動作確認用の静的レスポンスを返す。
// GET /limited
func handleLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "This is a rate-limited route"})
}
