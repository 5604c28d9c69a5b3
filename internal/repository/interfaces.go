// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/crewdeck/internal/model"
)

// リポジトリ共通のセンチネルエラー。サービス層でAPIErrorに変換する。
var (
	// ErrDuplicateEmail は登録済みメールアドレスに認証情報を重複作成しようとしたことを示す。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrManagerLimit はmanagerロールの上限超過を示す。
	ErrManagerLimit = errors.New("manager limit reached")
	// ErrScrapperLimit はscrapperロールの上限超過を示す。
	ErrScrapperLimit = errors.New("scrapper limit reached")
	// ErrUserNotFound は対象ユーザーが存在しないことを示す。
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
// ロール数の不変条件（manager≦1、scrapper≦3、adminは初回登録のみ）は
// ストアのトランザクション内でアドバイザリロックを取って直列化する。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// CreateSelfRegistered は自己登録を単一トランザクションで処理する。
	// usersテーブルが空なら最初のユーザーとしてroleをadminに、そうでなければuserに確定し、
	// ユーザーと認証情報を同時に作成する。仮発行済みユーザー（認証情報なし）の
	// メールアドレスであれば、既存ユーザーに認証情報のみを追加する。
	// 認証情報が既に存在する場合はErrDuplicateEmailを返す。
	// 確定後のユーザーを返す。
	CreateSelfRegistered(ctx context.Context, user *model.User, cred *model.Credential) (*model.User, error)

	// CreateProvisioned は管理者発行のユーザーを作成する。認証情報は作成しない。
	// ロール上限の確認と挿入を同一トランザクション・同一ロック下で行い、
	// 上限超過時はErrManagerLimit / ErrScrapperLimitを返す。
	// メールアドレス重複時はErrDuplicateEmailを返す。
	CreateProvisioned(ctx context.Context, user *model.User) error

	// UpdateFields はユーザーの部分更新を行う。nilのフィールドは変更しない。
	// roleを変更する場合はロール上限の確認を同一トランザクションで行う。
	// 対象が存在しない場合はErrUserNotFoundを返す。更新後のユーザーを返す。
	UpdateFields(ctx context.Context, id string, name *string, role *model.Role, isActive *bool) (*model.User, error)

	// TouchLastActivity はlast_activity_atを現在時刻に更新する。
	// セッション検証のアクティビティ記録用。順序保証は不要（last-write-wins）。
	TouchLastActivity(ctx context.Context, id string) error

	// DeleteCascade はユーザーと、そのユーザーを参照する全依存レコード
	// （チャット、スクレイパーデータ・設定、配布ログの両当事者、売上、認証情報、セッション）を
	// 単一トランザクションで削除する。対象が存在しない場合はErrUserNotFoundを返す。
	DeleteCascade(ctx context.Context, id string) error
}

// CredentialRepository はパスワード認証情報の永続化インターフェース。
type CredentialRepository interface {
	// FindByEmail は指定メールアドレスの認証情報を取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDの有効なセッションを取得する。
	// 期限切れまたは存在しない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	// 存在しないIDを指定しても冪等にエラーなしで返る。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	// validateの正しさはこの掃除に依存しない（期限切れ行は検索で不可視）。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ChatRepository はチャットメッセージの永続化インターフェース。
type ChatRepository interface {
	// ListWithSender はメッセージを作成日時の昇順で最大limit件、送信者情報付きで返す。
	ListWithSender(ctx context.Context, limit int) ([]*model.ChatMessage, error)

	// Create はメッセージを作成する。
	Create(ctx context.Context, msg *model.ChatMessage) error

	// FindByIDWithSender は指定IDのメッセージを送信者情報付きで取得する。
	// 見つからない場合はnilを返す。
	FindByIDWithSender(ctx context.Context, id string) (*model.ChatMessage, error)
}

// ScrapperRepository はスクレイパーデータと配布設定の永続化インターフェース。
type ScrapperRepository interface {
	// InsertDataLines は行データを単一トランザクションで一括作成する。
	InsertDataLines(ctx context.Context, lines []*model.ScrapperData) error

	// ListUnprocessed は指定スクレイパーの未処理行を作成日時の昇順で返す。
	ListUnprocessed(ctx context.Context, scrapperID string) ([]*model.ScrapperData, error)

	// GetOrCreateSettings は配布設定を取得し、無ければデフォルト値で作成して返す。
	GetOrCreateSettings(ctx context.Context, scrapperID string) (*model.ScrapperSettings, error)

	// UpdateSettings は配布設定を全項目更新し、更新後の設定を返す。
	UpdateSettings(ctx context.Context, settings *model.ScrapperSettings) (*model.ScrapperSettings, error)

	// ListDistributionLogs は指定スクレイパーの配布履歴を配布日時の降順で返す。
	ListDistributionLogs(ctx context.Context, scrapperID string) ([]*model.DistributionLog, error)
}

// SalesRepository は売上データの永続化インターフェース。
type SalesRepository interface {
	// ListMonth は指定月の売上ボードを返す。
	// 全ユーザーを対象とし、売上レコードが無いユーザーは数値ゼロで含める。
	ListMonth(ctx context.Context, monthYear string) ([]*model.SalesRow, error)

	// Upsert は指定ユーザー・指定月の売上を部分更新する。レコードが無ければ作成する。
	Upsert(ctx context.Context, userID, monthYear string, update *model.SalesUpdate) error

	// ResetMonth は指定月の全売上数値をゼロにリセットする。
	ResetMonth(ctx context.Context, monthYear string) error
}
