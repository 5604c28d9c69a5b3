// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

// 定義済みロール。この4種以外の値は受け付けない。
const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleScrapper Role = "scrapper"
	RoleUser     Role = "user"
)

// ロールごとの同時保有上限。adminは初回登録ブートストラップでのみ付与される。
const (
	ManagerLimit  = 1
	ScrapperLimit = 3
)

// Valid はロールが定義済みの4種のいずれかであるかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleScrapper, RoleUser:
		return true
	}
	return false
}

// User はサービス利用ユーザーを表す。
// emailはシステム全体で一意。roleは定義済み4種のいずれか。
type User struct {
	ID             string
	Email          string
	Name           string
	Role           Role
	IsActive       bool
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Credential はユーザーのパスワード認証情報を表す。
// 平文パスワードは保持せず、ソルト付きの一方向ダイジェストのみ保存する。
// ユーザーごとに1件のみ。管理者が仮発行したユーザーにはまだ存在しない。
type Credential struct {
	UserID       string
	Email        string
	PasswordHash []byte
	Salt         []byte
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// IDは推測不能なベアラートークンであり、expires_atが未来である間のみ有効。
// 同一ユーザーの複数同時セッションを許容する。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
