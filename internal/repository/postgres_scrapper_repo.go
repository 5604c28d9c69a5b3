package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/crewdeck/internal/model"
)

// PostgresScrapperRepo はPostgreSQLを使用したスクレイパーデータ・配布設定リポジトリ。
type PostgresScrapperRepo struct {
	db *sql.DB
}

// NewPostgresScrapperRepo はPostgresScrapperRepoを生成する。
func NewPostgresScrapperRepo(db *sql.DB) *PostgresScrapperRepo {
	return &PostgresScrapperRepo{db: db}
}

// InsertDataLines は行データを単一トランザクションで一括作成する。
func (r *PostgresScrapperRepo) InsertDataLines(ctx context.Context, lines []*model.ScrapperData) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scrapper_data (id, scrapper_id, data_line, is_processed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		_, err := stmt.ExecContext(ctx,
			line.ID, line.ScrapperID, line.DataLine, line.IsProcessed, line.CreatedAt, line.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert data line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListUnprocessed は指定スクレイパーの未処理行を作成日時の昇順で返す。
func (r *PostgresScrapperRepo) ListUnprocessed(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scrapper_id, data_line, is_processed, created_at, updated_at
		 FROM scrapper_data
		 WHERE scrapper_id = $1 AND is_processed = FALSE
		 ORDER BY created_at ASC`,
		scrapperID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrapper data: %w", err)
	}
	defer rows.Close()

	var result []*model.ScrapperData
	for rows.Next() {
		d := &model.ScrapperData{}
		err := rows.Scan(&d.ID, &d.ScrapperID, &d.DataLine, &d.IsProcessed, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrapper data: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scrapper data: %w", err)
	}
	return result, nil
}

// scanSettings は配布設定1行をスキャンし、selected_usersのJSONを展開する。
func scanSettings(row rowScanner) (*model.ScrapperSettings, error) {
	s := &model.ScrapperSettings{}
	var selectedUsers []byte
	err := row.Scan(
		&s.ID, &s.ScrapperID, &s.LinesPerUser, &selectedUsers,
		&s.TimerInterval, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selectedUsers, &s.SelectedUsers); err != nil {
		return nil, fmt.Errorf("failed to decode selected users: %w", err)
	}
	return s, nil
}

const settingsColumns = `id, scrapper_id, lines_per_user, selected_users, timer_interval, is_active, created_at, updated_at`

// GetOrCreateSettings は配布設定を取得し、無ければデフォルト値で作成して返す。
// ON CONFLICT DO NOTHINGにより同時アクセスでも重複作成されない。
func (r *PostgresScrapperRepo) GetOrCreateSettings(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error) {
	defaults := &model.ScrapperSettings{
		ScrapperID:    scrapperID,
		LinesPerUser:  1,
		SelectedUsers: []string{},
		TimerInterval: 180,
		IsActive:      false,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scrapper_settings (id, scrapper_id, lines_per_user, selected_users, timer_interval, is_active)
		 VALUES ($1, $2, $3, '[]', $4, $5)
		 ON CONFLICT (scrapper_id) DO NOTHING`,
		uuid.New().String(), scrapperID, defaults.LinesPerUser, defaults.TimerInterval, defaults.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure settings: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM scrapper_settings WHERE scrapper_id = $1`,
		scrapperID,
	)
	settings, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings は配布設定を全項目更新し、更新後の設定を返す。
func (r *PostgresScrapperRepo) UpdateSettings(ctx context.Context, settings *model.ScrapperSettings) (*model.ScrapperSettings, error) {
	selectedUsers, err := json.Marshal(settings.SelectedUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selected users: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE scrapper_settings
		 SET lines_per_user = $1, selected_users = $2, timer_interval = $3, is_active = $4, updated_at = now()
		 WHERE scrapper_id = $5
		 RETURNING `+settingsColumns,
		settings.LinesPerUser, selectedUsers, settings.TimerInterval, settings.IsActive, settings.ScrapperID,
	)

	updated, err := scanSettings(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settings not found for scrapper %s", settings.ScrapperID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return updated, nil
}

// listLogsLimit は配布履歴1回の取得上限。
const listLogsLimit = 100

// ListDistributionLogs は指定スクレイパーの配布履歴を配布日時の降順で返す。
func (r *PostgresScrapperRepo) ListDistributionLogs(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scrapper_id, recipient_id, data_lines, distributed_at, created_at
		 FROM distribution_logs
		 WHERE scrapper_id = $1
		 ORDER BY distributed_at DESC
		 LIMIT $2`,
		scrapperID, listLogsLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list distribution logs: %w", err)
	}
	defer rows.Close()

	var result []*model.DistributionLog
	for rows.Next() {
		l := &model.DistributionLog{}
		err := rows.Scan(&l.ID, &l.ScrapperID, &l.RecipientID, &l.DataLines, &l.DistributedAt, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution log: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate distribution logs: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ ScrapperRepository = (*PostgresScrapperRepo)(nil)
