package repository

import (
	"context"
	"testing"
)

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresChatRepoはChatRepositoryインターフェースを満たすことを検証
func TestPostgresChatRepo_ImplementsInterface(t *testing.T) {
	var _ ChatRepository = (*PostgresChatRepo)(nil)
}

// PostgresScrapperRepoはScrapperRepositoryインターフェースを満たすことを検証
func TestPostgresScrapperRepo_ImplementsInterface(t *testing.T) {
	var _ ScrapperRepository = (*PostgresScrapperRepo)(nil)
}

// PostgresSalesRepoはSalesRepositoryインターフェースを満たすことを検証
func TestPostgresSalesRepo_ImplementsInterface(t *testing.T) {
	var _ SalesRepository = (*PostgresSalesRepo)(nil)
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// InsertDataLinesは空スライスでDBに触れず成功することを検証
func TestPostgresScrapperRepo_InsertDataLines_EmptyIsNoop(t *testing.T) {
	repo := NewPostgresScrapperRepo(nil)
	if err := repo.InsertDataLines(context.Background(), nil); err != nil {
		t.Fatalf("InsertDataLines with empty input returned error: %v", err)
	}
}
