// Package sales は月次売上ボードのドメインロジックを提供する。
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/crewdeck/internal/model"
	"github.com/hitoshi/crewdeck/internal/repository"
)

// Service は売上ボードのサービス層。
// 更新とリセットは管理者のみが実行できる（ハンドラ層で強制）。
type Service struct {
	salesRepo repository.SalesRepository
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(salesRepo repository.SalesRepository) *Service {
	return &Service{
		salesRepo: salesRepo,
		now:       time.Now,
	}
}

// ListCurrentMonth は当月の売上ボードを返す。
// 全ユーザーを対象とし、売上レコードが無いユーザーは数値ゼロで含める。
func (s *Service) ListCurrentMonth(ctx context.Context) ([]*model.SalesRow, error) {
	rows, err := s.salesRepo.ListMonth(ctx, s.currentMonthYear())
	if err != nil {
		return nil, fmt.Errorf("売上ボードの取得に失敗しました: %w", err)
	}
	return rows, nil
}

// Update は指定ユーザーの当月売上を部分更新する。nilのフィールドは変更しない。
// レコードが無ければ未指定フィールドをゼロとして作成する。
func (s *Service) Update(ctx context.Context, userID string, update *model.SalesUpdate) error {
	if userID == "" {
		return model.NewValidationError("user_idは必須です")
	}
	if update == nil || !hasAnyField(update) {
		return model.NewNoFieldsToUpdateError()
	}

	if err := s.salesRepo.Upsert(ctx, userID, s.currentMonthYear(), update); err != nil {
		return fmt.Errorf("売上の更新に失敗しました: %w", err)
	}
	return nil
}

// ResetCurrentMonth は当月の全売上数値をゼロにリセットする。
// today_salesは日次の値なのでリセット対象に含めない。
func (s *Service) ResetCurrentMonth(ctx context.Context) error {
	if err := s.salesRepo.ResetMonth(ctx, s.currentMonthYear()); err != nil {
		return fmt.Errorf("売上のリセットに失敗しました: %w", err)
	}
	return nil
}

// currentMonthYear は当月を"2026-08"形式で返す。
func (s *Service) currentMonthYear() string {
	return s.now().UTC().Format("2006-01")
}

// hasAnyField は更新指定が1つ以上あるかを返す。
func hasAnyField(u *model.SalesUpdate) bool {
	return u.TodaySales != nil ||
		u.TotalSales != nil ||
		u.SilverSales != nil ||
		u.GoldSales != nil ||
		u.PlatinumSales != nil ||
		u.DiamondSales != nil ||
		u.RubySales != nil ||
		u.SapphireSales != nil
}
