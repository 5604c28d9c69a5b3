package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/crewdeck/internal/middleware"
	"github.com/hitoshi/crewdeck/internal/model"
)

// ScrapperServiceInterface はスクレイパーハンドラーが必要とするサービスインターフェース。
type ScrapperServiceInterface interface {
	ListUnprocessed(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error)
	AddLines(ctx context.Context, scrapperID string, lines []string) (int, error)
	GetSettings(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error)
	UpdateSettings(ctx context.Context, scrapperID string, linesPerUser int, selectedUsers []string, timerInterval int, isActive bool) (*model.ScrapperSettings, error)
	ListLogs(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error)
}

// ScrapperHandler はスクレイパーデータと配布設定のHTTPハンドラー。
// scrapperロールの強制はルーターのRequireRoleミドルウェアで行う。
type ScrapperHandler struct {
	service ScrapperServiceInterface
}

// NewScrapperHandler はScrapperHandlerを生成する。
func NewScrapperHandler(service ScrapperServiceInterface) *ScrapperHandler {
	return &ScrapperHandler{service: service}
}

// addDataRequest はデータ投入リクエストのボディ。
type addDataRequest struct {
	DataLines []string `json:"data_lines"`
}

// updateSettingsRequest は配布設定更新リクエストのボディ。
type updateSettingsRequest struct {
	LinesPerUser  int      `json:"lines_per_user"`
	SelectedUsers []string `json:"selected_users"`
	TimerInterval int      `json:"timer_interval"`
	IsActive      bool     `json:"is_active"`
}

// ListData は自分の未配布行の一覧を返す。
// GET /api/scrapper/data
func (h *ScrapperHandler) ListData(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	lines, err := h.service.ListUnprocessed(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resps := make([]scrapperDataResponse, 0, len(lines))
	for _, d := range lines {
		resps = append(resps, toScrapperDataResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": resps,
	})
}

// AddData は行データを投入する。
// POST /api/scrapper/data
func (h *ScrapperHandler) AddData(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req addDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	count, err := h.service.AddLines(r.Context(), user.ID, req.DataLines)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"added_count": count,
	})
}

// ListLogs は自分の配布履歴を新しい順で返す。
// GET /api/scrapper/logs
func (h *ScrapperHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	logs, err := h.service.ListLogs(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resps := make([]distributionLogResponse, 0, len(logs))
	for _, l := range logs {
		resps = append(resps, toDistributionLogResponse(l))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs": resps,
	})
}

// GetSettings は配布設定を返す。未作成の場合はデフォルト値で作成する。
// GET /api/scrapper/settings
func (h *ScrapperHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	settings, err := h.service.GetSettings(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"settings": toScrapperSettingsResponse(settings),
	})
}

// UpdateSettings は配布設定を更新する。
// PUT /api/scrapper/settings
func (h *ScrapperHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), user.ID, req.LinesPerUser, req.SelectedUsers, req.TimerInterval, req.IsActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"settings": toScrapperSettingsResponse(settings),
	})
}
