package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
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
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

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

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
	err := errors.New("UNIQUE constraint failed: payment_issuances.external_message_id")
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected sqlite unique violation to match")
	}
	if !IsUniqueViolation(err, "external_message_id") {
		t.Fatal("expected constraint name to match")
	}
}

func TestIsUniqueViolationPostgresCodes(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "payment_issuances_external_message_id_key"}
	wrapped := fmt.Errorf("create issuance: %w", dup)
	if !IsUniqueViolation(wrapped, "") {
		t.Fatal("expected pgx 23505 to match")
	}
	if !IsUniqueViolation(wrapped, "external_message_id") {
		t.Fatal("expected constraint name to match on pgx error")
	}
	if IsUniqueViolation(wrapped, "some_other_constraint") {
		t.Fatal("unrelated constraint must not match")
	}

	notNull := &pgconn.PgError{Code: "23502", Message: "null value in column external_message_id"}
	if IsUniqueViolation(notNull, "external_message_id") {
		t.Fatal("non-unique-violation SQLSTATE must not match even when the text mentions the constraint")
	}

	pqDup := &pq.Error{Code: "23505", Constraint: "payment_issuances_external_message_id_key"}
	if !IsUniqueViolation(pqDup, "external_message_id") {
		t.Fatal("expected pq 23505 to match")
	}
}
