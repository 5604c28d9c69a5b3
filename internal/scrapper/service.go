// Package scrapper はスクレイパーデータの投入と配布設定のドメインロジックを提供する。
package scrapper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/crewdeck/internal/model"
	"github.com/hitoshi/crewdeck/internal/repository"
)

// 配布設定の許容範囲。
const (
	linesPerUserMin  = 1
	linesPerUserMax  = 100
	timerIntervalMin = 60   // 1分
	timerIntervalMax = 3600 // 1時間
)

// Service はスクレイパーデータのサービス層。
// 対象ユーザーがscrapperロールであることはハンドラ層で強制する。
type Service struct {
	scrapperRepo repository.ScrapperRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(scrapperRepo repository.ScrapperRepository) *Service {
	return &Service{scrapperRepo: scrapperRepo}
}

// ListUnprocessed は指定スクレイパーの未配布行を作成日時の昇順で返す。
func (s *Service) ListUnprocessed(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error) {
	lines, err := s.scrapperRepo.ListUnprocessed(ctx, scrapperID)
	if err != nil {
		return nil, fmt.Errorf("データ一覧の取得に失敗しました: %w", err)
	}
	return lines, nil
}

// AddLines は行データを投入する。重複行を除去し、辞書順にソートしてから
// 一括作成する。投入した件数を返す。
func (s *Service) AddLines(ctx context.Context, scrapperID string, lines []string) (int, error) {
	unique := dedupeAndSort(lines)
	if len(unique) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]*model.ScrapperData, 0, len(unique))
	for _, line := range unique {
		rows = append(rows, &model.ScrapperData{
			ID:          uuid.New().String(),
			ScrapperID:  scrapperID,
			DataLine:    line,
			IsProcessed: false,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.scrapperRepo.InsertDataLines(ctx, rows); err != nil {
		return 0, fmt.Errorf("データの投入に失敗しました: %w", err)
	}

	return len(unique), nil
}

// GetSettings は配布設定を返す。未作成の場合はデフォルト値
// （1行/人、配布先なし、180秒間隔、停止中）で作成して返す。
func (s *Service) GetSettings(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error) {
	settings, err := s.scrapperRepo.GetOrCreateSettings(ctx, scrapperID)
	if err != nil {
		return nil, fmt.Errorf("配布設定の取得に失敗しました: %w", err)
	}
	return settings, nil
}

// UpdateSettings は配布設定を全項目更新し、更新後の設定を返す。
func (s *Service) UpdateSettings(ctx context.Context, scrapperID string, linesPerUser int, selectedUsers []string, timerInterval int, isActive bool) (*model.ScrapperSettings, error) {
	if linesPerUser < linesPerUserMin || linesPerUser > linesPerUserMax {
		return nil, model.NewValidationError(fmt.Sprintf("1人あたりの行数は%d〜%dで指定してください", linesPerUserMin, linesPerUserMax))
	}
	if timerInterval < timerIntervalMin || timerInterval > timerIntervalMax {
		return nil, model.NewValidationError(fmt.Sprintf("配布間隔は%d〜%d秒で指定してください", timerIntervalMin, timerIntervalMax))
	}
	if selectedUsers == nil {
		selectedUsers = []string{}
	}

	settings := &model.ScrapperSettings{
		ScrapperID:    scrapperID,
		LinesPerUser:  linesPerUser,
		SelectedUsers: selectedUsers,
		TimerInterval: timerInterval,
		IsActive:      isActive,
		UpdatedAt:     time.Now(),
	}

	updated, err := s.scrapperRepo.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("配布設定の更新に失敗しました: %w", err)
	}
	return updated, nil
}

// ListLogs は指定スクレイパーの配布履歴を新しい順で返す。
func (s *Service) ListLogs(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error) {
	logs, err := s.scrapperRepo.ListDistributionLogs(ctx, scrapperID)
	if err != nil {
		return nil, fmt.Errorf("配布履歴の取得に失敗しました: %w", err)
	}
	return logs, nil
}

// dedupeAndSort は重複を除去した行を辞書順で返す。空行は捨てる。
func dedupeAndSort(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	unique := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		unique = append(unique, line)
	}
	sort.Strings(unique)
	return unique
}
