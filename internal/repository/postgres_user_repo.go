package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/crewdeck/internal/model"
)

// roleLedgerLockKey はpg_advisory_xact_lockのキー。
// ロール数の確認と挿入・更新を直列化し、初回登録レースとロール上限レースを防ぐ。
const roleLedgerLockKey int64 = 7342001

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, name, role, is_active, last_activity_at, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var lastActivity sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Role,
		&user.IsActive, &lastActivity, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		user.LastActivityAt = &lastActivity.Time
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// List は全ユーザーを作成日時の降順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// CreateSelfRegistered は自己登録を単一トランザクションで処理する。
// アドバイザリロック下で「テーブルが空か」を判定するため、
// 同時の初回登録が両方adminになることはない。
func (r *PostgresUserRepo) CreateSelfRegistered(ctx context.Context, user *model.User, cred *model.Credential) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, roleLedgerLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire role ledger lock: %w", err)
	}

	// 既存の認証情報があれば重複登録
	var credExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE email = $1)`, cred.Email,
	).Scan(&credExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing credential: %w", err)
	}
	if credExists {
		return nil, ErrDuplicateEmail
	}

	// 仮発行済みユーザーなら認証情報のみを追加する
	row := tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, user.Email)
	existing, err := scanUser(row)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	created := user
	if existing != nil {
		created = existing
	} else {
		// 初回登録ブートストラップ: テーブルが空の場合のみadminを付与する
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		if count == 0 {
			user.Role = model.RoleAdmin
		} else {
			user.Role = model.RoleUser
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, email, name, role, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Email, user.Name, user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicateEmail
			}
			return nil, fmt.Errorf("failed to insert user: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (user_id, email, password_hash, salt, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		created.ID, cred.Email, cred.PasswordHash, cred.Salt, cred.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// CreateProvisioned は管理者発行のユーザーを作成する。
// ロール上限の確認と挿入を同一ロック下で行う。
func (r *PostgresUserRepo) CreateProvisioned(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, roleLedgerLockKey); err != nil {
		return fmt.Errorf("failed to acquire role ledger lock: %w", err)
	}

	if err := checkRoleCapacity(ctx, tx, user.Role, ""); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.Name, user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateFields はユーザーの部分更新を行う。nilのフィールドは変更しない。
// roleの変更は上限確認と同一トランザクションで実行する。
func (r *PostgresUserRepo) UpdateFields(ctx context.Context, id string, name *string, role *model.Role, isActive *bool) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if role != nil {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, roleLedgerLockKey); err != nil {
			return nil, fmt.Errorf("failed to acquire role ledger lock: %w", err)
		}
		// 対象ユーザー自身は数に含めない（同一ロールへの変更を許容する）
		if err := checkRoleCapacity(ctx, tx, *role, id); err != nil {
			return nil, err
		}
	}

	setClauses := []string{}
	args := []any{}
	argPos := 1

	if name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *name)
		argPos++
	}
	if role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", argPos))
		args = append(args, *role)
		argPos++
	}
	if isActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *isActive)
		argPos++
	}
	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(setClauses, ", "), argPos,
	)

	user, err := scanUser(tx.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// TouchLastActivity はlast_activity_atを現在時刻に更新する。
// ホットパスの書き込みのためlast-write-winsとし、行の存在確認は行わない。
func (r *PostgresUserRepo) TouchLastActivity(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_activity_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch last activity: %w", err)
	}
	return nil
}

// DeleteCascade はユーザーと全依存レコードを単一トランザクションで削除する。
// 依存レコードを先に削除し、最後にユーザー本体を削除する。
func (r *PostgresUserRepo) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dependents := []struct {
		table string
		query string
	}{
		{"chat_messages", `DELETE FROM chat_messages WHERE sender_id = $1`},
		{"scrapper_data", `DELETE FROM scrapper_data WHERE scrapper_id = $1`},
		{"scrapper_settings", `DELETE FROM scrapper_settings WHERE scrapper_id = $1`},
		{"distribution_logs", `DELETE FROM distribution_logs WHERE scrapper_id = $1 OR recipient_id = $1`},
		{"sales_figures", `DELETE FROM sales_figures WHERE user_id = $1`},
		{"credentials", `DELETE FROM credentials WHERE user_id = $1`},
		{"sessions", `DELETE FROM sessions WHERE user_id = $1`},
	}

	for _, dep := range dependents {
		if _, err := tx.ExecContext(ctx, dep.query, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", dep.table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// checkRoleCapacity はロール上限の確認を行う。excludeIDは数に含めないユーザーID。
// 呼び出し側がアドバイザリロックを取得済みであることを前提とする。
func checkRoleCapacity(ctx context.Context, tx *sql.Tx, role model.Role, excludeID string) error {
	var limit int
	var limitErr error

	switch role {
	case model.RoleManager:
		limit = model.ManagerLimit
		limitErr = ErrManagerLimit
	case model.RoleScrapper:
		limit = model.ScrapperLimit
		limitErr = ErrScrapperLimit
	default:
		return nil
	}

	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE role = $1 AND id <> $2`, role, excludeID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count role holders: %w", err)
	}
	if count >= limit {
		return limitErr
	}
	return nil
}

// isUniqueViolation はPostgreSQLの一意制約違反（23505）かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
