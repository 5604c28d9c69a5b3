package database

import (
	"io/fs"
	"strings"
	"testing"
)

// TestMigrationsFS_ContainsPairedFiles は埋め込みマイグレーションが
// up/downのペアで揃っていることを検証する。
func TestMigrationsFS_ContainsPairedFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migration files")
	}

	ups := 0
	downs := 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected migration file: %s", e.Name())
		}
	}
	if ups != downs {
		t.Errorf("up migrations = %d, down migrations = %d, want equal", ups, downs)
	}
}

// TestInitMigration_CreatesCoreTables は初期マイグレーションに
// アイデンティティ/セッション関連テーブルの定義が含まれることを検証する。
func TestInitMigration_CreatesCoreTables(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("failed to read init migration: %v", err)
	}

	sql := string(data)
	for _, table := range []string{"users", "credentials", "sessions", "chat_messages", "scrapper_data", "scrapper_settings", "distribution_logs", "sales_figures"} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Errorf("init migration missing table %q", table)
		}
	}
}
