package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"username", "password", "totp_secret", "active"} {
		if !conn.Migrator().HasColumn("admins", column) {
			t.Fatalf("admins missing column %s", column)
		}
	}
	for _, column := range []string{"title", "price", "stock", "images", "is_featured", "featured_until"} {
		if !conn.Migrator().HasColumn("stock", column) {
			t.Fatalf("stock missing column %s", column)
		}
	}
}

func TestMigrateSQLiteBackfillsFeaturedColumnsOnLegacyStockTable(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errExec := conn.Exec(`
		CREATE TABLE stock (
			id integer primary key autoincrement,
			seller_id integer not null default 1,
			title text not null,
			price integer not null,
			stock integer not null default 0,
			images json not null default '[]',
			is_sold boolean not null default 0,
			created_at datetime,
			updated_at datetime
		)
	`).Error; errExec != nil {
		t.Fatalf("create legacy stock table: %v", errExec)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"is_featured", "featured_until"} {
		if !conn.Migrator().HasColumn("stock", column) {
			t.Fatalf("stock missing column %s after backfill migration", column)
		}
	}
}

func TestMigrateRejectsNilConnection(t *testing.T) {
	if errMigrate := Migrate(nil); errMigrate == nil {
		t.Fatalf("expected error for nil connection")
	}
}
