package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/crewdeck/internal/metrics"
	"github.com/hitoshi/crewdeck/internal/middleware"
	"github.com/hitoshi/crewdeck/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionValidator  middleware.SessionValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	MetricsRecorder   middleware.HTTPMetricsRecorder
	MetricsGatherer   prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー管理
	AccountService AccountServiceInterface

	// チャット
	ChatService ChatServiceInterface

	// スクレイパー
	ScrapperService ScrapperServiceInterface

	// 売上
	SalesService SalesServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging → CSRF
//	→（認証グループのみ）Session → RateLimit(General)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置し、
// ログイン・登録には送信元IPごとのレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.AccountService)
	chatHandler := NewChatHandler(deps.ChatService)
	scrapperHandler := NewScrapperHandler(deps.ScrapperService)
	salesHandler := NewSalesHandler(deps.SalesService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/auth", func(r chi.Router) {
		// 登録・ログインには送信元IPごとのレート制限を追加
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionValidator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/me", authHandler.Me)

		// ユーザー管理（admin専用）
		r.Route("/api/users", func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(model.RoleAdmin))

			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Provision)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		// チャット（全ロール）
		r.Route("/api/chat/messages", func(r chi.Router) {
			r.Get("/", chatHandler.List)
			r.Post("/", chatHandler.Send)
		})

		// スクレイパー（scrapper専用）
		r.Route("/api/scrapper", func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(model.RoleScrapper))

			r.Get("/data", scrapperHandler.ListData)
			r.Post("/data", scrapperHandler.AddData)
			r.Get("/logs", scrapperHandler.ListLogs)
			r.Get("/settings", scrapperHandler.GetSettings)
			r.Put("/settings", scrapperHandler.UpdateSettings)
		})

		// 売上（閲覧は全ロール、更新とリセットはadmin専用）
		r.Route("/api/sales", func(r chi.Router) {
			r.Get("/", salesHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewRequireRoleMiddleware(model.RoleAdmin))
				r.Put("/", salesHandler.Update)
				r.Post("/reset", salesHandler.Reset)
			})
		})
	})

	return r
}
