// Package account は管理者によるアカウントライフサイクル管理を提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/crewdeck/internal/model"
	"github.com/hitoshi/crewdeck/internal/repository"
)

// Service はアカウント管理のサービス層。
// ユーザーの発行・更新・削除は管理者のみが実行できる（ハンドラ層で強制）。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// List は全ユーザーを作成日時の降順で返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Provision は管理者によるユーザーの仮発行を行う。
// 発行されたユーザーは認証情報を持たず、本人が同じメールアドレスで
// 登録を完了するまでログインできない。
// adminロールの発行は常に拒否する。manager・scrapperはロール上限に従う。
func (s *Service) Provision(ctx context.Context, email, name string, role model.Role) (*model.User, error) {
	if email == "" || !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if name == "" {
		return nil, model.NewValidationError("名前は必須です")
	}
	if role == model.RoleAdmin {
		return nil, model.NewCannotCreateAdminError()
	}
	if !role.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明なロールです: %s", role))
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.CreateProvisioned(ctx, user); err != nil {
		switch err {
		case repository.ErrDuplicateEmail:
			return nil, model.NewDuplicateEmailError()
		case repository.ErrManagerLimit:
			return nil, model.NewManagerLimitReachedError()
		case repository.ErrScrapperLimit:
			return nil, model.NewScrapperLimitReachedError()
		}
		return nil, fmt.Errorf("ユーザーの発行に失敗しました: %w", err)
	}

	slog.Info("user provisioned",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
	)
	return user, nil
}

// Update はユーザーの部分更新を行う。nilのフィールドは変更しない。
// 管理者自身を対象にすることはできない（ロックアウト防止）。
// adminロールへの変更は常に拒否し、manager・scrapperへの変更はロール上限に従う。
// 無効化した場合は対象ユーザーの全セッションを即時失効させる。
func (s *Service) Update(ctx context.Context, actorID, targetID string, name *string, role *model.Role, isActive *bool) (*model.User, error) {
	if targetID == actorID {
		return nil, model.NewSelfModificationError()
	}
	if name == nil && role == nil && isActive == nil {
		return nil, model.NewNoFieldsToUpdateError()
	}
	if role != nil {
		if *role == model.RoleAdmin {
			return nil, model.NewCannotCreateAdminError()
		}
		if !role.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("不明なロールです: %s", *role))
		}
	}
	if name != nil && *name == "" {
		return nil, model.NewValidationError("名前は必須です")
	}

	updated, err := s.userRepo.UpdateFields(ctx, targetID, name, role, isActive)
	if err != nil {
		switch err {
		case repository.ErrUserNotFound:
			return nil, model.NewUserNotFoundError()
		case repository.ErrManagerLimit:
			return nil, model.NewManagerLimitReachedError()
		case repository.ErrScrapperLimit:
			return nil, model.NewScrapperLimitReachedError()
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	if isActive != nil && !*isActive {
		if err := s.sessionRepo.DeleteByUserID(ctx, targetID); err != nil {
			return nil, fmt.Errorf("セッションの失効に失敗しました: %w", err)
		}
		slog.Info("user deactivated and sessions revoked",
			slog.String("user_id", targetID),
		)
	}

	return updated, nil
}

// Delete はユーザーと全関連データを削除する。
// 削除はリポジトリが単一トランザクションで行い、チャット・スクレイパーデータ・
// 配布ログ（送受信双方）・売上・認証情報・セッションをまとめて消す。
// 管理者自身を対象にすることはできない。
func (s *Service) Delete(ctx context.Context, actorID, targetID string) error {
	if targetID == actorID {
		return model.NewSelfDeletionError()
	}

	slog.Info("account deletion started", slog.String("user_id", targetID))

	if err := s.userRepo.DeleteCascade(ctx, targetID); err != nil {
		if err == repository.ErrUserNotFound {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("account deletion completed", slog.String("user_id", targetID))
	return nil
}
