package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/crewdeck/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用した認証情報リポジトリ。
// 作成はユーザー作成と同一トランザクションで行うため、
// PostgresUserRepo.CreateSelfRegisteredが担当する。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByEmail は指定メールアドレスの認証情報を取得する。見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	cred := &model.Credential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, password_hash, salt, created_at
		 FROM credentials
		 WHERE email = $1`,
		email,
	).Scan(&cred.UserID, &cred.Email, &cred.PasswordHash, &cred.Salt, &cred.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	return cred, nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
