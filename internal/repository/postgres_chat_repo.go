package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/crewdeck/internal/model"
)

// PostgresChatRepo はPostgreSQLを使用したチャットメッセージリポジトリ。
type PostgresChatRepo struct {
	db *sql.DB
}

// NewPostgresChatRepo はPostgresChatRepoを生成する。
func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

const messageWithSenderColumns = `
	cm.id, cm.sender_id, cm.message, cm.created_at, cm.updated_at,
	u.name, u.email, u.role`

// scanMessageWithSender は送信者情報付きのメッセージ1行をスキャンする。
func scanMessageWithSender(row rowScanner) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{Sender: &model.MessageSender{}}
	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.Message, &msg.CreatedAt, &msg.UpdatedAt,
		&msg.Sender.Name, &msg.Sender.Email, &msg.Sender.Role,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListWithSender はメッセージを作成日時の昇順で最大limit件、送信者情報付きで返す。
func (r *PostgresChatRepo) ListWithSender(ctx context.Context, limit int) ([]*model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageWithSenderColumns+`
		 FROM chat_messages cm
		 JOIN users u ON cm.sender_id = u.id
		 ORDER BY cm.created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		msg, err := scanMessageWithSender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// Create はメッセージを作成する。
func (r *PostgresChatRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, sender_id, message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.SenderID, msg.Message, msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindByIDWithSender は指定IDのメッセージを送信者情報付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresChatRepo) FindByIDWithSender(ctx context.Context, id string) (*model.ChatMessage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageWithSenderColumns+`
		 FROM chat_messages cm
		 JOIN users u ON cm.sender_id = u.id
		 WHERE cm.id = $1`,
		id,
	)

	msg, err := scanMessageWithSender(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return msg, nil
}

// compile-time interface check
var _ ChatRepository = (*PostgresChatRepo)(nil)
