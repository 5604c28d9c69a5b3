package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/crewdeck/internal/model"
)

// PostgresSalesRepo はPostgreSQLを使用した売上データリポジトリ。
type PostgresSalesRepo struct {
	db *sql.DB
}

// NewPostgresSalesRepo はPostgresSalesRepoを生成する。
func NewPostgresSalesRepo(db *sql.DB) *PostgresSalesRepo {
	return &PostgresSalesRepo{db: db}
}

// ListMonth は指定月の売上ボードを返す。
// 全ユーザーを対象とし、売上レコードが無いユーザーは数値ゼロで含める。
func (r *PostgresSalesRepo) ListMonth(ctx context.Context, monthYear string) ([]*model.SalesRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			u.id, u.name, u.email, u.role,
			COALESCE(sf.today_sales, 0),
			COALESCE(sf.total_sales, 0),
			COALESCE(sf.silver_sales, 0),
			COALESCE(sf.gold_sales, 0),
			COALESCE(sf.platinum_sales, 0),
			COALESCE(sf.diamond_sales, 0),
			COALESCE(sf.ruby_sales, 0),
			COALESCE(sf.sapphire_sales, 0)
		 FROM users u
		 LEFT JOIN sales_figures sf ON u.id = sf.user_id AND sf.month_year = $1
		 ORDER BY u.name, u.email`,
		monthYear,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var result []*model.SalesRow
	for rows.Next() {
		row := &model.SalesRow{}
		err := rows.Scan(
			&row.UserID, &row.UserName, &row.UserEmail, &row.UserRole,
			&row.Figures.TodaySales, &row.Figures.TotalSales,
			&row.Figures.SilverSales, &row.Figures.GoldSales,
			&row.Figures.PlatinumSales, &row.Figures.DiamondSales,
			&row.Figures.RubySales, &row.Figures.SapphireSales,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sales row: %w", err)
		}
		row.Figures.UserID = row.UserID
		row.Figures.MonthYear = monthYear
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales rows: %w", err)
	}
	return result, nil
}

// salesColumns はSalesUpdateのフィールドとDBカラムの対応。
var salesColumns = []struct {
	column string
	value  func(u *model.SalesUpdate) *int
}{
	{"today_sales", func(u *model.SalesUpdate) *int { return u.TodaySales }},
	{"total_sales", func(u *model.SalesUpdate) *int { return u.TotalSales }},
	{"silver_sales", func(u *model.SalesUpdate) *int { return u.SilverSales }},
	{"gold_sales", func(u *model.SalesUpdate) *int { return u.GoldSales }},
	{"platinum_sales", func(u *model.SalesUpdate) *int { return u.PlatinumSales }},
	{"diamond_sales", func(u *model.SalesUpdate) *int { return u.DiamondSales }},
	{"ruby_sales", func(u *model.SalesUpdate) *int { return u.RubySales }},
	{"sapphire_sales", func(u *model.SalesUpdate) *int { return u.SapphireSales }},
}

// Upsert は指定ユーザー・指定月の売上を部分更新する。レコードが無ければ作成する。
// nilのフィールドは既存レコードでは変更せず、新規レコードではゼロになる。
func (r *PostgresSalesRepo) Upsert(ctx context.Context, userID, monthYear string, update *model.SalesUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sales_figures (id, user_id, month_year)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, month_year) DO NOTHING`,
		uuid.New().String(), userID, monthYear,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure sales record: %w", err)
	}

	setClauses := []string{}
	args := []any{}
	argPos := 1
	for _, col := range salesColumns {
		if v := col.value(update); v != nil {
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col.column, argPos))
			args = append(args, *v)
			argPos++
		}
	}
	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = now()")
		args = append(args, userID, monthYear)
		query := fmt.Sprintf(
			`UPDATE sales_figures SET %s WHERE user_id = $%d AND month_year = $%d`,
			strings.Join(setClauses, ", "), argPos, argPos+1,
		)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update sales: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ResetMonth は指定月の全売上数値をゼロにリセットする。
func (r *PostgresSalesRepo) ResetMonth(ctx context.Context, monthYear string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sales_figures
		 SET total_sales = 0, silver_sales = 0, gold_sales = 0, platinum_sales = 0,
		     diamond_sales = 0, ruby_sales = 0, sapphire_sales = 0, updated_at = now()
		 WHERE month_year = $1`,
		monthYear,
	)
	if err != nil {
		return fmt.Errorf("failed to reset sales: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SalesRepository = (*PostgresSalesRepo)(nil)
