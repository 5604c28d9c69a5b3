package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/crewdeck/internal/model"
)

// SalesServiceInterface は売上ハンドラーが必要とするサービスインターフェース。
type SalesServiceInterface interface {
	ListCurrentMonth(ctx context.Context) ([]*model.SalesRow, error)
	Update(ctx context.Context, userID string, update *model.SalesUpdate) error
	ResetCurrentMonth(ctx context.Context) error
}

// SalesHandler は月次売上ボードのHTTPハンドラー。
// 更新・リセットのadmin強制はルーターのRequireRoleミドルウェアで行う。
type SalesHandler struct {
	service SalesServiceInterface
}

// NewSalesHandler はSalesHandlerを生成する。
func NewSalesHandler(service SalesServiceInterface) *SalesHandler {
	return &SalesHandler{service: service}
}

// updateSalesRequest は売上更新リクエストのボディ。nilのフィールドは変更しない。
type updateSalesRequest struct {
	UserID        string `json:"user_id"`
	TodaySales    *int   `json:"today_sales"`
	TotalSales    *int   `json:"total_sales"`
	SilverSales   *int   `json:"silver_sales"`
	GoldSales     *int   `json:"gold_sales"`
	PlatinumSales *int   `json:"platinum_sales"`
	DiamondSales  *int   `json:"diamond_sales"`
	RubySales     *int   `json:"ruby_sales"`
	SapphireSales *int   `json:"sapphire_sales"`
}

// List は当月の売上ボードを返す。
// GET /api/sales
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListCurrentMonth(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resps := make([]salesRowResponse, 0, len(rows))
	for _, row := range rows {
		resps = append(resps, toSalesRowResponse(row))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sales": resps,
	})
}

// Update は指定ユーザーの当月売上を部分更新する。
// PUT /api/sales
func (h *SalesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSalesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	update := &model.SalesUpdate{
		TodaySales:    req.TodaySales,
		TotalSales:    req.TotalSales,
		SilverSales:   req.SilverSales,
		GoldSales:     req.GoldSales,
		PlatinumSales: req.PlatinumSales,
		DiamondSales:  req.DiamondSales,
		RubySales:     req.RubySales,
		SapphireSales: req.SapphireSales,
	}

	if err := h.service.Update(r.Context(), req.UserID, update); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Reset は当月の全売上数値をゼロにリセットする。
// POST /api/sales/reset
func (h *SalesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetCurrentMonth(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}
