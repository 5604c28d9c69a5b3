package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/crewdeck/internal/middleware"
	"github.com/hitoshi/crewdeck/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	List(ctx context.Context) ([]*model.ChatMessage, error)
	Send(ctx context.Context, senderID, message string) (*model.ChatMessage, error)
}

// ChatHandler はチームチャットのHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// sendMessageRequest はメッセージ投稿リクエストのボディ。
type sendMessageRequest struct {
	Message string `json:"message"`
}

// List はメッセージ一覧を返す。
// GET /api/chat/messages
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resps := make([]chatMessageResponse, 0, len(messages))
	for _, m := range messages {
		resps = append(resps, toChatMessageResponse(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": resps,
	})
}

// Send はメッセージを投稿する。
// POST /api/chat/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	msg, err := h.service.Send(r.Context(), user.ID, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": toChatMessageResponse(msg),
	})
}
