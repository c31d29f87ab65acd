// Package retention は保存済みアップロードファイルの自動削除ジョブを提供する。
// 保持期間を超過したアップロードディレクトリ内のファイルを定期バッチで
// 削除する。保持期間0は削除無効を意味し、ジョブは起動されない想定。
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Job は保持期間を超過したアップロードファイルの削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time // テスト用に差し替え可能
}

// NewJob は新しいJobを生成する。
// dirは走査対象のアップロードディレクトリ、maxAgeはファイルの保持期間。
func NewJob(dir string, maxAge time.Duration, logger *slog.Logger) *Job {
	return &Job{
		dir:    dir,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Run は保持期間を超過したファイルを削除する。
// 更新時刻がmaxAge前より古いファイルを削除対象とする。
// サブディレクトリは走査しない。冪等: 削除対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.maxAge)

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		// ディレクトリ未作成はまだ1件もアップロードされていないだけなので正常
		if os.IsNotExist(err) {
			j.logger.Info("アップロードディレクトリが存在しないためスキップします",
				slog.String("dir", j.dir),
			)
			return nil
		}
		return fmt.Errorf("アップロードディレクトリの走査に失敗しました: %w", err)
	}

	var deleted, failed int
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// 走査とRemoveの間に消えたファイルは他プロセスが処理済み
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			j.logger.Error("期限切れファイルの削除に失敗しました",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			failed++
			continue
		}
		deleted++
	}

	duration := time.Since(start)
	j.logger.Info("アップロード保持期間の掃除が完了しました",
		slog.Int("deleted_count", deleted),
		slog.Int("failed_count", failed),
		slog.Duration("max_age", j.maxAge),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は定期的にRunを実行するループを開始する。
// 起動直後に1回実行し、以降はinterval間隔で実行する。
// ctxがキャンセルされるまでブロックする。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("保持期間スイーパーを開始しました",
		slog.String("dir", j.dir),
		slog.Duration("max_age", j.maxAge),
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("保持期間の掃除に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("保持期間スイーパーを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("保持期間の掃除に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
