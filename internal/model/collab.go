package model

import "time"

// ChatMessage はチームチャットの1メッセージを表す。
type ChatMessage struct {
	ID        string
	SenderID  string
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Sender    *MessageSender
}

// MessageSender はメッセージ送信者の表示用情報。
// 一覧取得時にusersテーブルとJOINして埋める。
type MessageSender struct {
	Name  string
	Email string
	Role  Role
}

// ScrapperData はスクレイパーが投入した未配布の1行データを表す。
type ScrapperData struct {
	ID          string
	ScrapperID  string
	DataLine    string
	IsProcessed bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScrapperSettings はスクレイパーごとの配布設定を表す。
// SelectedUsersは配布先ユーザーIDのリスト（DBにはJSONで保存）。
type ScrapperSettings struct {
	ID            string
	ScrapperID    string
	LinesPerUser  int
	SelectedUsers []string
	TimerInterval int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DistributionLog はスクレイパーから受信者への1回の配布記録を表す。
// DataLinesは配布した行のJSON表現。
type DistributionLog struct {
	ID            string
	ScrapperID    string
	RecipientID   string
	DataLines     string
	DistributedAt time.Time
	CreatedAt     time.Time
}

// SalesFigures はユーザー1人の月次売上数値を表す。
// MonthYearは"2026-08"形式。
type SalesFigures struct {
	ID            string
	UserID        string
	MonthYear     string
	TodaySales    int
	TotalSales    int
	SilverSales   int
	GoldSales     int
	PlatinumSales int
	DiamondSales  int
	RubySales     int
	SapphireSales int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SalesRow は売上ボードの1行。全ユーザーと当月売上のLEFT JOIN結果。
// 売上レコードが無いユーザーは数値ゼロで現れる。
type SalesRow struct {
	UserID    string
	UserName  string
	UserEmail string
	UserRole  Role
	Figures   SalesFigures
}

// SalesUpdate は管理者による売上更新の部分指定。nilのフィールドは変更しない。
type SalesUpdate struct {
	TodaySales    *int
	TotalSales    *int
	SilverSales   *int
	GoldSales     *int
	PlatinumSales *int
	DiamondSales  *int
	RubySales     *int
	SapphireSales *int
}
