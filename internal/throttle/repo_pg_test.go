package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var counterColumns = []string{
	"id", "ip_address", "request_count", "first_request_at", "last_request_at", "created_at", "updated_at",
}

func TestPGRepoIncrementUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPGRepo(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO analysis_requests").
		WithArgs("203.0.113.7", now).
		WillReturnRows(sqlmock.NewRows(counterColumns).
			AddRow(int64(1), "203.0.113.7", 3, now.Add(-time.Minute), now, now.Add(-time.Minute), now))

	counter, err := repo.Increment(context.Background(), "203.0.113.7", now)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if counter.RequestCount != 3 {
		t.Fatalf("request count = %d, want 3", counter.RequestCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPGRepo(db)

	mock.ExpectQuery("SELECT id, ip_address, request_count").
		WithArgs("198.51.100.1").
		WillReturnRows(sqlmock.NewRows(counterColumns))

	if _, err := repo.Get(context.Background(), "198.51.100.1"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteLastSeenBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPGRepo(db)
	cutoff := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM analysis_requests").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.DeleteLastSeenBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteLastSeenBefore: %v", err)
	}
	if removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
