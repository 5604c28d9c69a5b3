package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/crewdeck/internal/middleware"
	"github.com/hitoshi/crewdeck/internal/model"
)

// mockSessionValidator はトークンからロール別のテストユーザーを返す
type mockSessionValidator struct{}

func (m *mockSessionValidator) ValidateSession(ctx context.Context, token string) (*model.User, error) {
	switch token {
	case "admin-token":
		return &model.User{ID: "admin-1", Role: model.RoleAdmin, IsActive: true}, nil
	case "user-token":
		return &model.User{ID: "user-1", Role: model.RoleUser, IsActive: true}, nil
	case "scrapper-token":
		return &model.User{ID: "scrapper-1", Role: model.RoleScrapper, IsActive: true}, nil
	default:
		return nil, model.NewUnauthorizedError()
	}
}

type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		SessionValidator:  &mockSessionValidator{},
		CORSAllowedOrigin: "https://app.example.com",
		RateLimiter:       rl,
		CSRFConfig:        middleware.CSRFConfig{},

		AuthService: &mockAuthService{
			logoutFn: func(ctx context.Context, token string) error { return nil },
		},
		AuthConfig: AuthHandlerConfig{SessionMaxAge: 3600},

		AccountService: &mockAccountService{
			listFn: func(ctx context.Context) ([]*model.User, error) {
				return []*model.User{}, nil
			},
		},
		ChatService: &mockChatService{
			listFn: func(ctx context.Context) ([]*model.ChatMessage, error) {
				return []*model.ChatMessage{}, nil
			},
			sendFn: func(ctx context.Context, senderID, message string) (*model.ChatMessage, error) {
				return &model.ChatMessage{ID: "msg-1", SenderID: senderID, Message: message}, nil
			},
		},
		ScrapperService: &mockScrapperService{
			listUnprocessedFn: func(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error) {
				return []*model.ScrapperData{}, nil
			},
		},
		SalesService: &mockSalesService{
			listFn: func(ctx context.Context) ([]*model.SalesRow, error) {
				return []*model.SalesRow{}, nil
			},
			resetFn: func(ctx context.Context) error { return nil },
		},
	}

	return NewRouter(deps)
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	return req
}

func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-csrf"})
	req.Header.Set("X-CSRF-Token", "test-csrf")
	return req
}

// /healthが認証なしで200を返すことを検証
func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// セッションなしの認証必須ルートが401になることを検証
func TestRouter_RequiresSession(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{"/me", "/api/users", "/api/chat/messages", "/api/sales"}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: status = %d, want 401", path, rec.Code)
		}
	}
}

// ロールゲートの検証: 管理ルートはadminのみ、スクレイパールートはscrapperのみ
func TestRouter_RoleGates(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
	}{
		{"adminはユーザー一覧可", "/api/users", "admin-token", http.StatusOK},
		{"userはユーザー一覧不可", "/api/users", "user-token", http.StatusForbidden},
		{"scrapperはデータ一覧可", "/api/scrapper/data", "scrapper-token", http.StatusOK},
		{"userはデータ一覧不可", "/api/scrapper/data", "user-token", http.StatusForbidden},
		{"userは売上閲覧可", "/api/sales", "user-token", http.StatusOK},
		{"userはチャット閲覧可", "/api/chat/messages", "user-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, tt.path, nil), tt.token))
			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s (%s): status = %d, want %d", tt.path, tt.token, rec.Code, tt.wantStatus)
			}
		})
	}
}

// 売上リセットがadmin専用であることを検証
func TestRouter_SalesResetAdminOnly(t *testing.T) {
	router := newTestRouter(t)

	req := withCSRF(withSession(httptest.NewRequest(http.MethodPost, "/api/sales/reset", nil), "user-token"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user reset: status = %d, want 403", rec.Code)
	}

	req = withCSRF(withSession(httptest.NewRequest(http.MethodPost, "/api/sales/reset", nil), "admin-token"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin reset: status = %d, want 200", rec.Code)
	}
}

// CSRFトークンなしの状態変更リクエストが403になることを検証
func TestRouter_CSRFEnforced(t *testing.T) {
	router := newTestRouter(t)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"message":"x"}`)), "user-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

// CSRFトークン付きの投稿が通ることを検証
func TestRouter_PostWithCSRF(t *testing.T) {
	router := newTestRouter(t)

	req := withCSRF(withSession(httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"message":"やあ"}`)), "user-token"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

// ログアウトが認証なしで204を返すことを検証
func TestRouter_Logout(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

// セキュリティヘッダーが全レスポンスに付与されることを検証
func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %s, want nosniff", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %s, want configured origin", got)
	}
}
