package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/uploadman/internal/auth"
	"github.com/hitoshi/uploadman/internal/config"
	"github.com/hitoshi/uploadman/internal/extract"
	"github.com/hitoshi/uploadman/internal/forward"
	"github.com/hitoshi/uploadman/internal/handler"
	"github.com/hitoshi/uploadman/internal/logger"
	"github.com/hitoshi/uploadman/internal/metrics"
	"github.com/hitoshi/uploadman/internal/middleware"
	"github.com/hitoshi/uploadman/internal/saasmock"
	"github.com/hitoshi/uploadman/internal/security"
	"github.com/hitoshi/uploadman/internal/upload"
	"github.com/hitoshi/uploadman/internal/validate"
	"github.com/hitoshi/uploadman/internal/worker/retention"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("extract_mode", cfg.ExtractMode),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMocksaas:
		return runMocksaas(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)

	// 2. 認証サービスの初期化
	credStore := auth.NewMemoryStore()
	tokens := auth.NewTokenService(cfg.SecretKey)
	authService := auth.NewService(credStore, tokens, auth.ServiceConfig{
		TokenTTL:   cfg.TokenExpiry,
		BcryptCost: cfg.BcryptCost,
	})

	// 3. アップロードパイプラインの初期化
	sanitizer := security.NewTextSanitizer()
	fileStore := upload.NewDiskStore(cfg.UploadDir, slog.Default())
	extractors := extract.NewRegistry(extract.ModeFromString(cfg.ExtractMode), sanitizer)
	validator := validate.NewRecordValidator()
	forwarder := forward.NewClient(
		&http.Client{Timeout: cfg.ForwardTimeout},
		slog.Default(), collector, cfg.SaaSAPIURL, cfg.SaaSAPIKey,
	)
	uploadService := upload.NewService(
		fileStore, extractors, validator, forwarder, collector, slog.Default(),
	)

	// 4. レートリミッターの初期化
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitUpload, cfg.RateLimitGeneral),
	)
	defer rateLimiter.Stop()

	// 5. モックSaaSの同居マウント（実SaaSの無い環境用）
	var mockSubmit http.HandlerFunc
	if cfg.MockSaaSMount {
		mockSubmit = saasmock.NewHandler(cfg.SaaSAPIKey, slog.Default()).Submit
		slog.Info("mock SaaS endpoint mounted", slog.String("path", "/api/saas/submit"))
	}

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     tokens,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		AuthService:   authService,
		UploadService: uploadService,
		MaxUploadSize: cfg.MaxUploadSize,

		MetricsHandler: metrics.Handler(promRegistry),
		MockSaaSSubmit: mockSubmit,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は保持期間スイーパーモードで起動する。
// UPLOAD_RETENTIONが正の値のときのみ動作し、アップロードディレクトリの
// 期限切れファイルを定期削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.UploadRetention <= 0 {
		return fmt.Errorf("worker mode requires UPLOAD_RETENTION to be set to a positive duration")
	}

	job := retention.NewJob(cfg.UploadDir, cfg.UploadRetention, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// スイーパーをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.RetentionSweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMocksaas はモックSaaS APIを独立プロセスとして起動する。
// docker-compose等で本体と別コンテナとして動かす場合に使う。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runMocksaas(cfg *config.Config) error {
	router := saasmock.SetupRoutes(cfg.SaaSAPIKey, slog.Default())

	server := &http.Server{
		Addr:         ":" + cfg.MockSaaSPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("mock SaaS server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down mock SaaS server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("mock SaaS server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
