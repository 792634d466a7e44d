package runstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestLoadMissingFileReturnsEmptyState(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.LastRun != nil {
		t.Fatal("expected nil watermark")
	}
	if len(state.Processed) != 0 || len(state.Pending) != 0 {
		t.Fatal("expected empty state")
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	watermark := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	started := watermark.Add(30 * time.Minute)
	state := NewState()
	state.LastRun = &watermark
	state.MarkProcessed("article-1", watermark)
	state.AddPending(PendingJob{
		ArticleID:  "article-2",
		NotebookID: "nb-1",
		TaskID:     "task-1",
		Title:      "A Title",
		Author:     "An Author",
		Summary:    "Summary text",
		SourceURL:  "https://example.com/a",
		StartedAt:  started,
	})

	if err := store.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LastRun == nil || !loaded.LastRun.Equal(watermark) {
		t.Fatalf("watermark mismatch: %v", loaded.LastRun)
	}
	if got, ok := loaded.Processed["article-1"]; !ok || !got.Equal(watermark) {
		t.Fatalf("processed entry mismatch: %v ok=%v", got, ok)
	}
	if len(loaded.Pending) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(loaded.Pending))
	}
	job := loaded.Pending[0]
	if job.NotebookID != "nb-1" || job.TaskID != "task-1" || !job.StartedAt.Equal(started) {
		t.Fatalf("pending job mismatch: %+v", job)
	}
}

func TestLoadMigratesLegacyProcessedList(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	legacy := `{
  "last_run": "2026-02-01T10:00:00Z",
  "processed_articles": ["a1", "a2"],
  "pending_notebooks": [
    {"article_id": "a3", "notebook_id": "nb-3", "task_id": "t-3", "started_at": "2026-02-01T09:00:00Z"}
  ]
}`
	if err := os.WriteFile(store.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy state: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !state.IsProcessed("a1") || !state.IsProcessed("a2") {
		t.Fatal("legacy ids should be migrated into the processed map")
	}
	for id, ts := range state.Processed {
		if ts.IsZero() {
			t.Fatalf("migrated entry %s has zero timestamp", id)
		}
	}
	if len(state.Pending) != 1 || state.Pending[0].NotebookID != "nb-3" {
		t.Fatalf("legacy pending_notebooks not read: %+v", state.Pending)
	}

	// A save rewrites the document in the current shape.
	if err := store.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if strings.Contains(string(data), "pending_notebooks") {
		t.Fatal("save should use the current pending_jobs key")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("saved state unparseable: %v", err)
	}
	if _, ok := doc["pending_jobs"]; !ok {
		t.Fatal("saved state missing pending_jobs")
	}
}

func TestLoadRejectsMalformedProcessed(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	if err := os.WriteFile(store.Path(), []byte(`{"processed_articles": 42}`), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatal("expected explicit error for malformed processed_articles")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	if err := store.Save(NewState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after save")
	}
}

func TestMarkProcessedIdempotent(t *testing.T) {
	t.Parallel()
	state := NewState()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state.MarkProcessed("a1", first)
	state.MarkProcessed("a1", first.Add(time.Hour))
	if got := state.Processed["a1"]; !got.Equal(first) {
		t.Fatalf("second mark overwrote timestamp: %v", got)
	}
	if len(state.Processed) != 1 {
		t.Fatalf("expected a single entry, got %d", len(state.Processed))
	}
}

func TestRemovePendingKeepsOrder(t *testing.T) {
	t.Parallel()
	state := NewState()
	for _, id := range []string{"nb-1", "nb-2", "nb-3"} {
		state.AddPending(PendingJob{NotebookID: id})
	}
	state.RemovePending("nb-2")
	if len(state.Pending) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(state.Pending))
	}
	if state.Pending[0].NotebookID != "nb-1" || state.Pending[1].NotebookID != "nb-3" {
		t.Fatalf("order not preserved: %+v", state.Pending)
	}
}

func TestPurgeProcessed(t *testing.T) {
	t.Parallel()
	state := NewState()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state.MarkProcessed("old", now.AddDate(0, 0, -200))
	state.MarkProcessed("recent", now.AddDate(0, 0, -10))

	removed := state.PurgeProcessed(now.AddDate(0, 0, -180))
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if state.IsProcessed("old") {
		t.Fatal("old entry should be purged")
	}
	if !state.IsProcessed("recent") {
		t.Fatal("recent entry should remain")
	}
}
