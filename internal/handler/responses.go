package handler

import (
	"encoding/json"
	"time"

	"github.com/hitoshi/crewdeck/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	IsActive       bool    `json:"is_active"`
	LastActivityAt *string `json:"last_activity_at"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
	if u.LastActivityAt != nil {
		s := u.LastActivityAt.Format(time.RFC3339)
		resp.LastActivityAt = &s
	}
	return resp
}

func toUserResponses(users []*model.User) []userResponse {
	resps := make([]userResponse, 0, len(users))
	for _, u := range users {
		resps = append(resps, toUserResponse(u))
	}
	return resps
}

// messageSenderResponse はメッセージ送信者の表示用レスポンス。
type messageSenderResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// chatMessageResponse はチャットメッセージのAPIレスポンス。
type chatMessageResponse struct {
	ID        string                 `json:"id"`
	SenderID  string                 `json:"sender_id"`
	Message   string                 `json:"message"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
	Sender    *messageSenderResponse `json:"sender,omitempty"`
}

func toChatMessageResponse(m *model.ChatMessage) chatMessageResponse {
	resp := chatMessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Message:   m.Message,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
	if m.Sender != nil {
		resp.Sender = &messageSenderResponse{
			Name:  m.Sender.Name,
			Email: m.Sender.Email,
			Role:  string(m.Sender.Role),
		}
	}
	return resp
}

// scrapperDataResponse はスクレイパーデータ行のAPIレスポンス。
type scrapperDataResponse struct {
	ID          string `json:"id"`
	ScrapperID  string `json:"scrapper_id"`
	DataLine    string `json:"data_line"`
	IsProcessed bool   `json:"is_processed"`
	CreatedAt   string `json:"created_at"`
}

func toScrapperDataResponse(d *model.ScrapperData) scrapperDataResponse {
	return scrapperDataResponse{
		ID:          d.ID,
		ScrapperID:  d.ScrapperID,
		DataLine:    d.DataLine,
		IsProcessed: d.IsProcessed,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

// scrapperSettingsResponse は配布設定のAPIレスポンス。
type scrapperSettingsResponse struct {
	ID            string   `json:"id"`
	ScrapperID    string   `json:"scrapper_id"`
	LinesPerUser  int      `json:"lines_per_user"`
	SelectedUsers []string `json:"selected_users"`
	TimerInterval int      `json:"timer_interval"`
	IsActive      bool     `json:"is_active"`
}

func toScrapperSettingsResponse(s *model.ScrapperSettings) scrapperSettingsResponse {
	users := s.SelectedUsers
	if users == nil {
		users = []string{}
	}
	return scrapperSettingsResponse{
		ID:            s.ID,
		ScrapperID:    s.ScrapperID,
		LinesPerUser:  s.LinesPerUser,
		SelectedUsers: users,
		TimerInterval: s.TimerInterval,
		IsActive:      s.IsActive,
	}
}

// distributionLogResponse は配布履歴1件のAPIレスポンス。
// DataLinesはDBに保存されたJSON配列をそのまま返す。
type distributionLogResponse struct {
	ID            string          `json:"id"`
	ScrapperID    string          `json:"scrapper_id"`
	RecipientID   string          `json:"recipient_id"`
	DataLines     json.RawMessage `json:"data_lines"`
	DistributedAt string          `json:"distributed_at"`
}

func toDistributionLogResponse(l *model.DistributionLog) distributionLogResponse {
	return distributionLogResponse{
		ID:            l.ID,
		ScrapperID:    l.ScrapperID,
		RecipientID:   l.RecipientID,
		DataLines:     json.RawMessage(l.DataLines),
		DistributedAt: l.DistributedAt.Format(time.RFC3339),
	}
}

// salesRowResponse は売上ボード1行のAPIレスポンス。
type salesRowResponse struct {
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email"`
	UserRole      string `json:"user_role"`
	TodaySales    int    `json:"today_sales"`
	TotalSales    int    `json:"total_sales"`
	SilverSales   int    `json:"silver_sales"`
	GoldSales     int    `json:"gold_sales"`
	PlatinumSales int    `json:"platinum_sales"`
	DiamondSales  int    `json:"diamond_sales"`
	RubySales     int    `json:"ruby_sales"`
	SapphireSales int    `json:"sapphire_sales"`
}

func toSalesRowResponse(r *model.SalesRow) salesRowResponse {
	return salesRowResponse{
		UserID:        r.UserID,
		UserName:      r.UserName,
		UserEmail:     r.UserEmail,
		UserRole:      string(r.UserRole),
		TodaySales:    r.Figures.TodaySales,
		TotalSales:    r.Figures.TotalSales,
		SilverSales:   r.Figures.SilverSales,
		GoldSales:     r.Figures.GoldSales,
		PlatinumSales: r.Figures.PlatinumSales,
		DiamondSales:  r.Figures.DiamondSales,
		RubySales:     r.Figures.RubySales,
		SapphireSales: r.Figures.SapphireSales,
	}
}
