package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/crewdeck/internal/middleware"
	"github.com/hitoshi/crewdeck/internal/model"
)

// mockScrapperService はScrapperServiceInterfaceのモック
type mockScrapperService struct {
	listUnprocessedFn func(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error)
	addLinesFn        func(ctx context.Context, scrapperID string, lines []string) (int, error)
	getSettingsFn     func(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error)
	updateSettingsFn  func(ctx context.Context, scrapperID string, linesPerUser int, selectedUsers []string, timerInterval int, isActive bool) (*model.ScrapperSettings, error)
	listLogsFn        func(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error)
}

func (m *mockScrapperService) ListUnprocessed(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error) {
	return m.listUnprocessedFn(ctx, scrapperID)
}
func (m *mockScrapperService) AddLines(ctx context.Context, scrapperID string, lines []string) (int, error) {
	return m.addLinesFn(ctx, scrapperID, lines)
}
func (m *mockScrapperService) GetSettings(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error) {
	return m.getSettingsFn(ctx, scrapperID)
}
func (m *mockScrapperService) UpdateSettings(ctx context.Context, scrapperID string, linesPerUser int, selectedUsers []string, timerInterval int, isActive bool) (*model.ScrapperSettings, error) {
	return m.updateSettingsFn(ctx, scrapperID, linesPerUser, selectedUsers, timerInterval, isActive)
}
func (m *mockScrapperService) ListLogs(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error) {
	return m.listLogsFn(ctx, scrapperID)
}

func scrapperContext(req *http.Request) *http.Request {
	ctx := middleware.ContextWithUser(req.Context(), &model.User{ID: "scrapper-1", Role: model.RoleScrapper})
	return req.WithContext(ctx)
}

// データ投入が件数を返すことを検証
func TestScrapperHandler_AddData(t *testing.T) {
	service := &mockScrapperService{
		addLinesFn: func(ctx context.Context, scrapperID string, lines []string) (int, error) {
			if scrapperID != "scrapper-1" {
				t.Errorf("scrapper ID = %s, want scrapper-1", scrapperID)
			}
			return 2, nil
		},
	}
	h := NewScrapperHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/scrapper/data", strings.NewReader(`{"data_lines":["b","a","b"]}`))
	rec := httptest.NewRecorder()

	h.AddData(rec, scrapperContext(req))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["added_count"] != float64(2) {
		t.Errorf("added_count = %v, want 2", resp["added_count"])
	}
}

// 未配布データ一覧が自分のIDで取得されることを検証
func TestScrapperHandler_ListData(t *testing.T) {
	service := &mockScrapperService{
		listUnprocessedFn: func(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error) {
			return []*model.ScrapperData{{ID: "data-1", ScrapperID: scrapperID, DataLine: "line"}}, nil
		},
	}
	h := NewScrapperHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/scrapper/data", nil)
	rec := httptest.NewRecorder()

	h.ListData(rec, scrapperContext(req))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// 配布履歴一覧が自分のIDで取得され、data_linesがJSON配列で返ることを検証
func TestScrapperHandler_ListLogs(t *testing.T) {
	service := &mockScrapperService{
		listLogsFn: func(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error) {
			if scrapperID != "scrapper-1" {
				t.Errorf("scrapper ID = %s, want scrapper-1", scrapperID)
			}
			return []*model.DistributionLog{
				{ID: "log-1", ScrapperID: scrapperID, RecipientID: "user-2", DataLines: `["line-a","line-b"]`},
			}, nil
		},
	}
	h := NewScrapperHandler(service)

	rec := httptest.NewRecorder()
	h.ListLogs(rec, scrapperContext(httptest.NewRequest(http.MethodGet, "/api/scrapper/logs", nil)))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var resp map[string][]struct {
		RecipientID string   `json:"recipient_id"`
		DataLines   []string `json:"data_lines"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	logs := resp["logs"]
	if len(logs) != 1 || logs[0].RecipientID != "user-2" {
		t.Fatalf("logs = %+v, want one entry for user-2", logs)
	}
	if len(logs[0].DataLines) != 2 || logs[0].DataLines[0] != "line-a" {
		t.Error("data_lines should decode as a JSON array")
	}
}

// 配布設定の取得と更新を検証
func TestScrapperHandler_Settings(t *testing.T) {
	service := &mockScrapperService{
		getSettingsFn: func(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error) {
			return &model.ScrapperSettings{ScrapperID: scrapperID, LinesPerUser: 1, TimerInterval: 180}, nil
		},
		updateSettingsFn: func(ctx context.Context, scrapperID string, linesPerUser int, selectedUsers []string, timerInterval int, isActive bool) (*model.ScrapperSettings, error) {
			return &model.ScrapperSettings{
				ScrapperID:    scrapperID,
				LinesPerUser:  linesPerUser,
				SelectedUsers: selectedUsers,
				TimerInterval: timerInterval,
				IsActive:      isActive,
			}, nil
		},
	}
	h := NewScrapperHandler(service)

	rec := httptest.NewRecorder()
	h.GetSettings(rec, scrapperContext(httptest.NewRequest(http.MethodGet, "/api/scrapper/settings", nil)))
	if rec.Code != http.StatusOK {
		t.Errorf("GetSettings status = %d, want 200", rec.Code)
	}

	body := `{"lines_per_user":5,"selected_users":["user-2"],"timer_interval":300,"is_active":true}`
	req := httptest.NewRequest(http.MethodPut, "/api/scrapper/settings", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.UpdateSettings(rec, scrapperContext(req))

	if rec.Code != http.StatusOK {
		t.Errorf("UpdateSettings status = %d, want 200", rec.Code)
	}

	var resp map[string]scrapperSettingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	settings := resp["settings"]
	if settings.LinesPerUser != 5 || settings.TimerInterval != 300 || !settings.IsActive {
		t.Error("settings values should round-trip")
	}
	if len(settings.SelectedUsers) != 1 || settings.SelectedUsers[0] != "user-2" {
		t.Error("selected users should round-trip")
	}
}
