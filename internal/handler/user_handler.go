package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/crewdeck/internal/middleware"
	"github.com/hitoshi/crewdeck/internal/model"
)

// AccountServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	List(ctx context.Context) ([]*model.User, error)
	Provision(ctx context.Context, email, name string, role model.Role) (*model.User, error)
	Update(ctx context.Context, actorID, targetID string, name *string, role *model.Role, isActive *bool) (*model.User, error)
	Delete(ctx context.Context, actorID, targetID string) error
}

// UserHandler は管理者向けユーザー管理のHTTPハンドラー。
// adminロールの強制はルーターのRequireRoleミドルウェアで行う。
type UserHandler struct {
	service AccountServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AccountServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// provisionRequest はユーザー発行リクエストのボディ。
type provisionRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// updateUserRequest はユーザー更新リクエストのボディ。nilのフィールドは変更しない。
type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// List は全ユーザーの一覧を返す。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": toUserResponses(users),
	})
}

// Provision はユーザーの仮発行を処理する。
// POST /api/users
func (h *UserHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	user, err := h.service.Provision(r.Context(), req.Email, req.Name, model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": toUserResponse(user),
	})
}

// Update はユーザーの部分更新を処理する。
// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	targetID := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	var role *model.Role
	if req.Role != nil {
		r := model.Role(*req.Role)
		role = &r
	}

	user, err := h.service.Update(r.Context(), actor.ID, targetID, req.Name, role, req.IsActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}

// Delete はユーザーと全関連データの削除を処理する。
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	targetID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), actor.ID, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
