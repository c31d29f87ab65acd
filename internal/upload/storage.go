// Package upload はアップロードファイルの保存と処理パイプラインを提供する。
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/uploadman/internal/model"
	"github.com/hitoshi/uploadman/internal/security"
)

// allowedExtensions は受け付けるファイル拡張子。
var allowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".pdf":  true,
	".docx": true,
	".json": true,
}

// FileStore はアップロードファイルの保存機能のインターフェースを定義する。
type FileStore interface {
	// Save はファイル名を検証してファイルを保存し、保存先パスを返す。
	// 拡張子が受付対象外の場合はUnsupportedTypeErrorを返す。
	Save(filename string, src io.Reader) (string, error)
}

// DiskStore はローカルディスクへ保存するFileStoreの実装。
// ファイル名はサニタイズされ、同名ファイルが既にある場合は
// UNIXタイムスタンプを付与して衝突を回避する。
type DiskStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time // テスト用に差し替え可能
}

// NewDiskStore はDiskStoreを生成する。
func NewDiskStore(dir string, logger *slog.Logger) *DiskStore {
	return &DiskStore{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
}

// Save はファイル名のサニタイズと拡張子検証を行ってから保存する。
// 拡張子の検証は衝突回避よりも先に行われるため、受付対象外の
// ファイルがディスクに触れることはない。
func (s *DiskStore) Save(filename string, src io.Reader) (string, error) {
	name := security.SanitizeFilename(filename)

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", model.NewUnsupportedTypeError()
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("アップロードディレクトリの作成に失敗しました: %w", err)
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		renamed := fmt.Sprintf("%s_%d%s", stem, s.now().Unix(), filepath.Ext(name))
		s.logger.Info("同名ファイルが存在するため名前を変更します",
			slog.String("original", name),
			slog.String("renamed", renamed),
		)
		path = filepath.Join(s.dir, renamed)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("ファイルの作成に失敗しました: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}

	return path, nil
}
