package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func mustNew(t *testing.T, maxEntries int) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "memory_test.db"), maxEntries)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRememberAndRecall(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	if err := s.Remember(ctx, "favorite_editor", "vim", "preferences"); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	e, err := s.Recall(ctx, "favorite_editor")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if e.Value != "vim" {
		t.Errorf("value = %q, want vim", e.Value)
	}
	if e.Category != "preferences" {
		t.Errorf("category = %q, want preferences", e.Category)
	}
	if e.AccessCount != 1 {
		t.Errorf("access count = %d, want 1", e.AccessCount)
	}
}

func TestRecallBumpsAccessCount(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "k", "v", "")
	for i := 0; i < 3; i++ {
		if _, err := s.Recall(ctx, "k"); err != nil {
			t.Fatalf("Recall %d: %v", i, err)
		}
	}

	e, err := s.Recall(ctx, "k")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if e.AccessCount != 4 {
		t.Errorf("access count = %d, want 4", e.AccessCount)
	}
}

func TestRecallMissing(t *testing.T) {
	s := mustNew(t, 0)

	_, err := s.Recall(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRememberOverwrites(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "k", "old", "a")
	if err := s.Remember(ctx, "k", "new", "b"); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	e, err := s.Recall(ctx, "k")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if e.Value != "new" || e.Category != "b" {
		t.Errorf("entry = %+v, want updated value and category", e)
	}
}

func TestRememberEmptyKey(t *testing.T) {
	s := mustNew(t, 0)
	if err := s.Remember(context.Background(), "", "v", ""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestDefaultCategory(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "k", "v", "")
	e, err := s.Recall(ctx, "k")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if e.Category != "general" {
		t.Errorf("category = %q, want general", e.Category)
	}
}

func TestForget(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "k", "v", "")
	if err := s.Forget(ctx, "k"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := s.Recall(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after forget, got %v", err)
	}

	// Forgetting an absent key is fine.
	if err := s.Forget(ctx, "never-stored"); err != nil {
		t.Errorf("Forget absent: %v", err)
	}
}

func TestListByCategory(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "a", "1", "work")
	_ = s.Remember(ctx, "b", "2", "work")
	_ = s.Remember(ctx, "c", "3", "personal")

	work, err := s.List(ctx, "work")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(work) != 2 {
		t.Errorf("work entries = %d, want 2", len(work))
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all entries = %d, want 3", len(all))
	}
}

func TestSearch(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "project_deadline", "March 15", "work")
	_ = s.Remember(ctx, "birthday", "June 2", "personal")

	hits, err := s.Search(ctx, "deadline")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "project_deadline" {
		t.Errorf("hits = %+v, want project_deadline", hits)
	}

	// Match on value too.
	hits, err = s.Search(ctx, "June")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "birthday" {
		t.Errorf("hits = %+v, want birthday", hits)
	}
}

func TestMaxEntriesTrim(t *testing.T) {
	s := mustNew(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Remember(ctx, fmt.Sprintf("key-%d", i), "v", ""); err != nil {
			t.Fatalf("Remember %d: %v", i, err)
		}
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Entries != 3 {
		t.Errorf("entries = %d, want 3 after trim", st.Entries)
	}
}

func TestStats(t *testing.T) {
	s := mustNew(t, 0)
	ctx := context.Background()

	_ = s.Remember(ctx, "a", "1", "work")
	_ = s.Remember(ctx, "b", "2", "personal")

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Entries != 2 {
		t.Errorf("entries = %d, want 2", st.Entries)
	}
	if st.Categories != 2 {
		t.Errorf("categories = %d, want 2", st.Categories)
	}
}
