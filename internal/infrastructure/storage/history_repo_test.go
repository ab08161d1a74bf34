package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codetide/repopack/internal/domain/job"
)

func newTestRepo(t *testing.T) *HistoryRepository {
	t.Helper()

	repo, err := OpenHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestOpenHistory(t *testing.T) {
	t.Run("creates database file and parent directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "history.db")

		repo, err := OpenHistory(path)
		if err != nil {
			t.Fatalf("OpenHistory failed: %v", err)
		}
		defer repo.Close()
	})

	t.Run("empty path is rejected", func(t *testing.T) {
		if _, err := OpenHistory(""); err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "history.db")

		repo, err := OpenHistory(path)
		if err != nil {
			t.Fatalf("first open failed: %v", err)
		}
		repo.Close()

		repo, err = OpenHistory(path)
		if err != nil {
			t.Fatalf("second open failed: %v", err)
		}
		repo.Close()
	})
}

func TestHistoryRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	submitted := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := job.Record{
		ID:          "job-1",
		TargetURL:   "https://example.com",
		Status:      job.StatusProcessing,
		SubmittedAt: submitted,
	}

	if err := repo.SaveSubmission(ctx, rec); err != nil {
		t.Fatalf("SaveSubmission failed: %v", err)
	}

	got, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.TargetURL != "https://example.com" {
		t.Errorf("expected target url https://example.com, got %q", got.TargetURL)
	}
	if got.Status != job.StatusProcessing {
		t.Errorf("expected status processing, got %q", got.Status)
	}
	if !got.SubmittedAt.Equal(submitted) {
		t.Errorf("expected submitted at %v, got %v", submitted, got.SubmittedAt)
	}
	if !got.CompletedAt.IsZero() {
		t.Errorf("expected zero completed at, got %v", got.CompletedAt)
	}
}

func TestHistoryRepository_SaveSubmission_RequiresID(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveSubmission(context.Background(), job.Record{TargetURL: "https://example.com"})
	if err == nil {
		t.Error("expected error for record without id")
	}
}

func TestHistoryRepository_Get_Missing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Get(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing record, got %+v", got)
	}
}

func TestHistoryRepository_UpdateOutcome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	submitted := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	completed := submitted.Add(45 * time.Second)

	if err := repo.SaveSubmission(ctx, job.Record{
		ID:          "job-2",
		TargetURL:   "https://example.com/docs",
		Status:      job.StatusProcessing,
		SubmittedAt: submitted,
	}); err != nil {
		t.Fatalf("SaveSubmission failed: %v", err)
	}

	if err := repo.UpdateOutcome(ctx, job.Record{
		ID:          "job-2",
		Status:      job.StatusFailed,
		Error:       "rate limited",
		CompletedAt: completed,
	}); err != nil {
		t.Fatalf("UpdateOutcome failed: %v", err)
	}

	got, err := repo.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != job.StatusFailed {
		t.Errorf("expected status failed, got %q", got.Status)
	}
	if got.Error != "rate limited" {
		t.Errorf("expected error 'rate limited', got %q", got.Error)
	}
	if !got.CompletedAt.Equal(completed) {
		t.Errorf("expected completed at %v, got %v", completed, got.CompletedAt)
	}
	// Submission fields survive the outcome update
	if got.TargetURL != "https://example.com/docs" {
		t.Errorf("expected target url preserved, got %q", got.TargetURL)
	}
}

func TestHistoryRepository_UpdateOutcome_Missing(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdateOutcome(context.Background(), job.Record{
		ID:     "no-such-job",
		Status: job.StatusCompleted,
	})
	if err == nil {
		t.Error("expected error updating missing record")
	}
}

func TestHistoryRepository_List(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-a", "job-b", "job-c"} {
		if err := repo.SaveSubmission(ctx, job.Record{
			ID:          id,
			TargetURL:   "https://example.com",
			Status:      job.StatusProcessing,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("SaveSubmission failed: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		records, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0].ID != "job-c" || records[2].ID != "job-a" {
			t.Errorf("expected newest first ordering, got %s..%s", records[0].ID, records[2].ID)
		}
	})

	t.Run("limit is applied", func(t *testing.T) {
		records, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ID != "job-c" {
			t.Errorf("expected job-c first, got %s", records[0].ID)
		}
	})
}
