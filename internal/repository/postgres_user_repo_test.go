package repository

import (
	"testing"

	"github.com/hitoshi/crewdeck/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresCredentialRepoはCredentialRepositoryインターフェースを満たすことを検証
func TestPostgresCredentialRepo_ImplementsInterface(t *testing.T) {
	var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresCredentialRepoが正しく初期化されることを検証
func TestNewPostgresCredentialRepo_Initializes(t *testing.T) {
	repo := NewPostgresCredentialRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ユニットテスト: 一意制約違反の判定がpqエラーコード23505にのみ反応すること
func TestIsUniqueViolation_NonPQError(t *testing.T) {
	if isUniqueViolation(ErrUserNotFound) {
		t.Error("plain error should not be treated as unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil should not be treated as unique violation")
	}
}

// ユニットテスト: ロール上限の定義がモデルの定数と一致していること
func TestRoleCapacityLimits(t *testing.T) {
	if model.ManagerLimit != 1 {
		t.Errorf("ManagerLimit = %d, want 1", model.ManagerLimit)
	}
	if model.ScrapperLimit != 3 {
		t.Errorf("ScrapperLimit = %d, want 3", model.ScrapperLimit)
	}
}
