// Package auth はサインアップ、ログイン、Bearerトークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/uploadman/internal/model"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenTTL   time.Duration // 発行するトークンの有効期間
	BcryptCost int           // bcryptのコストパラメータ（0は既定値）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	store  Store
	tokens *TokenService
	config ServiceConfig
}

// NewService はServiceを生成する。
func NewService(store Store, tokens *TokenService, config ServiceConfig) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:  store,
		tokens: tokens,
		config: config,
	}
}

// SignupInput はサインアップのリクエスト内容を表す。
type SignupInput struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Signup は新規ユーザーを登録し、公開プロフィールを返す。
// ユーザー名が登録済みの場合はUsernameTakenErrorを返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	cred := &model.Credential{
		Username:       in.Username,
		HashedPassword: string(hashed),
		Email:          in.Email,
		FullName:       in.FullName,
	}

	if err := s.store.Create(ctx, cred); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("認証情報の保存に失敗しました: %w", err)
	}

	slog.Info("user signed up", slog.String("username", in.Username))

	return cred.PublicProfile(), nil
}

// Login はユーザー名とパスワードを検証し、アクセストークンを発行する。
// ユーザー列挙を防ぐため、ユーザー不在とパスワード不一致は区別せず
// 同一のエラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	cred, err := s.store.Find(ctx, username)
	if err != nil {
		return "", fmt.Errorf("認証情報の取得に失敗しました: %w", err)
	}
	if cred == nil {
		return "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), []byte(password)); err != nil {
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(username, s.config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("user logged in", slog.String("username", username))

	return token, nil
}
