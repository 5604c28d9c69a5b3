// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, policy, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeCannotCreateAdmin    = "CANNOT_CREATE_ADMIN"
	ErrCodeManagerLimitReached  = "MANAGER_LIMIT_REACHED"
	ErrCodeScrapperLimitReached = "SCRAPPER_LIMIT_REACHED"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeSelfModification     = "SELF_MODIFICATION_FORBIDDEN"
	ErrCodeSelfDeletion         = "SELF_DELETION_FORBIDDEN"
	ErrCodeNoFieldsToUpdate     = "NO_FIELDS_TO_UPDATE"
	ErrCodeValidation           = "VALIDATION_ERROR"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウント列挙を防ぐため、メール未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewCannotCreateAdminError は管理者発行禁止エラーを生成する。
// adminロールは初回登録ブートストラップでのみ付与される。
func NewCannotCreateAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeCannotCreateAdmin,
		Message:  "adminロールのユーザーは発行できません。",
		Category: "policy",
		Action:   "admin以外のロールを指定してください。",
	}
}

// NewManagerLimitReachedError はmanager上限超過エラーを生成する。
func NewManagerLimitReachedError() *APIError {
	return &APIError{
		Code:     ErrCodeManagerLimitReached,
		Message:  fmt.Sprintf("managerロールの上限（%d名）に達しています。", ManagerLimit),
		Category: "policy",
		Action:   "既存のmanagerを変更してから再度お試しください。",
	}
}

// NewScrapperLimitReachedError はscrapper上限超過エラーを生成する。
func NewScrapperLimitReachedError() *APIError {
	return &APIError{
		Code:     ErrCodeScrapperLimitReached,
		Message:  fmt.Sprintf("scrapperロールの上限（%d名）に達しています。", ScrapperLimit),
		Category: "policy",
		Action:   "既存のscrapperを変更してから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewSelfModificationError は自分自身の更新禁止エラーを生成する。
func NewSelfModificationError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfModification,
		Message:  "自分自身のアカウントは変更できません。",
		Category: "policy",
		Action:   "他の管理者に変更を依頼してください。",
	}
}

// NewSelfDeletionError は自分自身の削除禁止エラーを生成する。
func NewSelfDeletionError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfDeletion,
		Message:  "自分自身のアカウントは削除できません。",
		Category: "policy",
		Action:   "他の管理者に削除を依頼してください。",
	}
}

// NewNoFieldsToUpdateError は更新フィールド未指定エラーを生成する。
func NewNoFieldsToUpdateError() *APIError {
	return &APIError{
		Code:     ErrCodeNoFieldsToUpdate,
		Message:  "更新するフィールドが指定されていません。",
		Category: "validation",
		Action:   "name、role、is_activeのいずれかを指定してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正して再度お試しください。",
	}
}
