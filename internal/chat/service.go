// Package chat はチームチャットのドメインロジックを提供する。
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/crewdeck/internal/model"
	"github.com/hitoshi/crewdeck/internal/repository"
)

const (
	// messageMaxLength はメッセージの最大文字数。
	messageMaxLength = 1000
	// listLimit は一覧取得の最大件数。
	listLimit = 100
)

// Service はチャットのサービス層。
type Service struct {
	chatRepo repository.ChatRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(chatRepo repository.ChatRepository) *Service {
	return &Service{chatRepo: chatRepo}
}

// List はメッセージを作成日時の昇順で最大100件、送信者情報付きで返す。
func (s *Service) List(ctx context.Context) ([]*model.ChatMessage, error) {
	messages, err := s.chatRepo.ListWithSender(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	return messages, nil
}

// Send はメッセージを投稿し、送信者情報付きで返す。
func (s *Service) Send(ctx context.Context, senderID, message string) (*model.ChatMessage, error) {
	if message == "" {
		return nil, model.NewValidationError("メッセージは必須です")
	}
	if len([]rune(message)) > messageMaxLength {
		return nil, model.NewValidationError(fmt.Sprintf("メッセージは%d文字以内で入力してください", messageMaxLength))
	}

	now := time.Now()
	msg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chatRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}

	created, err := s.chatRepo.FindByIDWithSender(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("作成したメッセージが見つかりません: %s", msg.ID)
	}

	return created, nil
}
