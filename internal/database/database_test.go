package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"thumbsweep/internal/metrics"
)

// setupTestDB creates a database in a temp dir.
func setupTestDB(t testing.TB) (db *Database, dbPath string) {
	t.Helper()

	dbPath = filepath.Join(t.TempDir(), "test.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

func TestNewDatabase(t *testing.T) {
	db, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := db.db.PingContext(context.Background()); err != nil {
		t.Errorf("Database ping failed: %v", err)
	}
}

func TestNewDatabaseIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	first, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	first.Close()

	second, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopening existing database failed: %v", err)
	}
	second.Close()
}

func TestNewDatabaseMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "x.db"))
	if err == nil {
		t.Error("New() in a missing directory should fail")
	}
}

func TestRecordQueryMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("unit_test_op", "error"))
	recordQuery("unit_test_op", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("unit_test_op", "error"))

	if after != before+1 {
		t.Errorf("DBQueryTotal{error} = %v, want %v", after, before+1)
	}
}

func TestMetadata(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetMetadata(ctx, "nonexistent"); err == nil {
		t.Error("Expected error for non-existent key")
	}

	if err := db.SetMetadata(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if err := db.SetMetadata(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetMetadata overwrite failed: %v", err)
	}
	if v, err := db.GetMetadata(ctx, "k"); err != nil || v != "v2" {
		t.Errorf("GetMetadata = %q, %v; want v2", v, err)
	}
}

func TestLastSweep(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	got, err := db.GetLastSweep(ctx)
	if err != nil || !got.IsZero() {
		t.Errorf("GetLastSweep() on empty db = %v, %v; want zero, nil", got, err)
	}

	at := time.Date(2025, 3, 4, 5, 6, 7, 890, time.UTC)
	if err := db.SetLastSweep(ctx, at); err != nil {
		t.Fatalf("SetLastSweep failed: %v", err)
	}
	if got, _ := db.GetLastSweep(ctx); !got.Equal(at) {
		t.Errorf("GetLastSweep() = %v, want %v", got, at)
	}

	if err := db.SetLastSweep(ctx, time.Time{}); err != nil {
		t.Fatalf("SetLastSweep(zero) failed: %v", err)
	}
	if got, _ := db.GetLastSweep(ctx); !got.IsZero() {
		t.Errorf("GetLastSweep() after clear = %v, want zero", got)
	}
}
