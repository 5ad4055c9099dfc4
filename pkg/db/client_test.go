package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	if err := conn.Exec("DELETE FROM test_models").Error; err != nil {
		t.Fatalf("failed to reset sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := FromGORM(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	db := newTestDB(t)
	client := FromGORM(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "panicked").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic to roll back, found %d rows", count)
	}
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: buf})
	ql := newQueryLogger(logg, 10*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(context.Background(), time.Now(), stmt, nil)
	ql.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("fast and not-found statements should be quiet, got %s", buf.String())
	}

	ql.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "db.slow_query") {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}
	buf.Reset()
	ql.Trace(context.Background(), time.Now(), stmt, errors.New("relation missing"))
	if !strings.Contains(buf.String(), "db.query_failed") || !strings.Contains(buf.String(), "relation missing") {
		t.Fatalf("expected failed query entry, got %s", buf.String())
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := FromGORM(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewOpensSQLiteWhenSelected(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: "file:client_new?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected sqlite pool capped at 1, got %d", got)
	}
}

func TestNewRejectsMissingDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DriverPostgres}, nil); err == nil {
		t.Fatal("expected error for missing dsn")
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		unique        bool
		serialization bool
	}{
		{"nil", nil, false, false},
		{"pg unique", &pgconn.PgError{Code: "23505", ConstraintName: "ux_reservations_active_user"}, true, false},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, false, true},
		{"pg deadlock wrapped", fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), false, true},
		{"sqlite unique", errors.New("UNIQUE constraint failed: reservation_lines.reservation_id"), true, false},
		{"sqlite busy", errors.New("database is locked"), false, true},
		{"other", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		if got := IsUniqueViolation(tt.err, ""); got != tt.unique {
			t.Fatalf("%s: IsUniqueViolation=%v want %v", tt.name, got, tt.unique)
		}
		if got := IsSerializationFailure(tt.err); got != tt.serialization {
			t.Fatalf("%s: IsSerializationFailure=%v want %v", tt.name, got, tt.serialization)
		}
	}
}
