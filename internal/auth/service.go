// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/crewdeck/internal/model"
	"github.com/hitoshi/crewdeck/internal/repository"
)

// passwordMinLength はパスワードの最小文字数。
const passwordMinLength = 6

// Metrics は認証イベントの計測インターフェース。
// 計測不要な場合（テスト等）はnilを渡せる。
type Metrics interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSessionRevoked()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	credRepo    repository.CredentialRepository
	sessionRepo repository.SessionRepository
	hasher      *Hasher
	metrics     Metrics
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(
	userRepo repository.UserRepository,
	credRepo repository.CredentialRepository,
	sessionRepo repository.SessionRepository,
	hasher *Hasher,
	metrics Metrics,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		credRepo:    credRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		metrics:     metrics,
		config:      config,
	}
}

// Register は自己登録を処理し、セッションを発行する。
// 最初に登録されたユーザーはadminロールを受け取る（それ以外はuser）。
// ロール確定とユーザー・認証情報の作成はリポジトリが単一トランザクションで行う。
func (s *Service) Register(ctx context.Context, email, password, confirmPassword, name string) (*model.User, *model.Session, error) {
	if err := validateRegistration(email, password, confirmPassword); err != nil {
		return nil, nil, err
	}

	hash, salt, err := s.hasher.Generate(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      model.RoleUser, // テーブルが空の場合はリポジトリがadminに昇格させる
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &model.Credential{
		UserID:       user.ID,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    now,
	}

	created, err := s.userRepo.CreateSelfRegistered(ctx, user, cred)
	if err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, nil, model.NewDuplicateEmailError()
		}
		return nil, nil, fmt.Errorf("failed to register user: %w", err)
	}

	// 登録完了前に無効化された事前発行アカウントにはセッションを発行しない
	// （Login・ValidateSessionと同じ扱い）
	if !created.IsActive {
		return nil, nil, model.NewForbiddenError()
	}

	session, err := s.createSession(ctx, created.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("user registered",
		slog.String("user_id", created.ID),
		slog.String("role", string(created.Role)),
	)
	return created, session, nil
}

// Login はパスワードを検証し、セッションを発行する。
// メール未登録とパスワード不一致はどちらも同一のInvalidCredentialsを返し、
// アカウントの存在を漏らさない。無効化されたアカウントにはセッションを発行しない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	cred, err := s.credRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil || !s.hasher.Verify(password, cred.Salt, cred.PasswordHash) {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, nil, model.NewInvalidCredentialsError()
	}

	user, err := s.userRepo.FindByID(ctx, cred.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, nil, model.NewInvalidCredentialsError()
	}
	if !user.IsActive {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, nil, model.NewForbiddenError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, session, nil
}

// Logout はセッションを破棄する。冪等であり、既に無いトークンでもエラーにならない。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionRevoked()
	}
	return nil
}

// ValidateSession はトークンからユーザーを解決する。
//
// 注意: この操作は書き込みを伴う。検証成功時にユーザーのlast_activity_atを
// 現在時刻に更新する（アクティビティハートビート）。更新はベストエフォートで、
// 失敗してもリクエストは続行する。
//
// 期限切れ・存在しないトークン、および無効化されたアカウントのセッションは
// Unauthorizedとして拒否する。
func (s *Service) ValidateSession(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}
	// 有効なセッションはexpires_atが厳密に未来であること。
	// リポジトリの検索も期限切れ行を返さないが、期限はここでも検査する。
	if !session.ExpiresAt.After(time.Now()) {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewUnauthorizedError()
	}

	if err := s.userRepo.TouchLastActivity(ctx, user.ID); err != nil {
		slog.Warn("failed to touch last activity",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// validateRegistration は登録入力を検証する。
func validateRegistration(email, password, confirmPassword string) error {
	if email == "" || !strings.Contains(email, "@") {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(password) < passwordMinLength {
		return model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上必要です", passwordMinLength))
	}
	if password != confirmPassword {
		return model.NewValidationError("確認用パスワードが一致しません")
	}
	return nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
// 256bitの乱数をhexエンコードしたもので、UUID v4の122bitを上回る。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
