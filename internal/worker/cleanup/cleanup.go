// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// expires_atを過ぎたセッション行を日次バッチで削除する。
// セッション検証は期限切れ行を検索対象外とするため、
// このジョブの実行タイミングが認証の正しさに影響することはない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/crewdeck/internal/repository"
)

// SweepMetrics は掃除結果の計測インターフェース。
type SweepMetrics interface {
	RecordSessionsSwept(count int64)
}

// SweepJob は期限切れセッションの削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SweepJob struct {
	sessionRepo repository.SessionRepository
	logger      *slog.Logger
	metrics     SweepMetrics // nilの場合は計測しない
}

// NewSweepJob は新しいSweepJobを生成する。
func NewSweepJob(sessionRepo repository.SessionRepository, logger *slog.Logger, metrics SweepMetrics) *SweepJob {
	return &SweepJob{
		sessionRepo: sessionRepo,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run は期限切れセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()

	sweptCount, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッション掃除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッション掃除の実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(sweptCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッション掃除ジョブが完了しました",
		slog.Int64("swept_count", sweptCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
