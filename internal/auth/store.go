package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/hitoshi/uploadman/internal/model"
)

// ErrUsernameTaken は登録済みユーザー名での作成要求を表す。
var ErrUsernameTaken = errors.New("username already taken")

// Store は認証情報の保存先のインターフェース。
// Createは存在チェックと挿入を不可分に行い、重複時はErrUsernameTakenを返す。
// 永続化バックエンドへの差し替えはこのインターフェースの実装追加で行う。
type Store interface {
	Create(ctx context.Context, cred *model.Credential) error
	// Find は該当ユーザーが存在しない場合 (nil, nil) を返す。
	Find(ctx context.Context, username string) (*model.Credential, error)
}

// MemoryStore はプロセス内メモリ上のStore実装。
// プロセス生存期間のみ保持され、再起動で消える。
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]model.Credential
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]model.Credential),
	}
}

// Create は認証情報を保存する。
// ロック下で存在チェックと挿入を行うため、同名ユーザーの同時サインアップ
// でも勝者は常に1つになる。
func (s *MemoryStore) Create(_ context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[cred.Username]; ok {
		return ErrUsernameTaken
	}
	s.creds[cred.Username] = *cred
	return nil
}

// Find はユーザー名で認証情報を取得する。存在しない場合は (nil, nil) を返す。
func (s *MemoryStore) Find(_ context.Context, username string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[username]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}
