package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "episodes.json"))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	episodes, err := newTestStore(t).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(episodes) != 0 {
		t.Fatalf("expected empty catalog, got %d", len(episodes))
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	want := Episode{
		ArticleID:   "a1",
		Title:       "Title One",
		Author:      "Author",
		Key:         "episodes/a1.mp3",
		Description: "Notes",
		SourceURL:   "https://example.com/one",
		PubDate:     time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		FileSize:    2_400_000,
	}
	if err := store.Save([]Episode{want}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadMigratesLegacyURL(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	legacy := `[
  {"article_id": "a1", "title": "T", "mp3_url": "https://pub-abc.r2.dev/episodes/a1.mp3",
   "pub_date": "2026-01-01T00:00:00Z", "file_size": 1}
]`
	if err := os.WriteFile(store.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy catalog: %v", err)
	}
	episodes, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(episodes))
	}
	if episodes[0].Key != "episodes/a1.mp3" {
		t.Fatalf("legacy url not migrated: %q", episodes[0].Key)
	}
}

func TestLoadDeduplicatesKeepLast(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	doc := `[
  {"article_id": "a1", "title": "Old", "r2_key": "episodes/a1.mp3", "pub_date": "2026-01-01T00:00:00Z"},
  {"article_id": "a2", "title": "Other", "r2_key": "episodes/a2.mp3", "pub_date": "2026-01-02T00:00:00Z"},
  {"article_id": "a1", "title": "New", "r2_key": "episodes/a1-v2.mp3", "pub_date": "2026-01-03T00:00:00Z"}
]`
	if err := os.WriteFile(store.Path(), []byte(doc), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	episodes, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes after dedup, got %d", len(episodes))
	}
	for _, ep := range episodes {
		if ep.ArticleID == "a1" && ep.Title != "New" {
			t.Fatalf("dedup should keep the later entry, got %+v", ep)
		}
	}
}

func TestSortedNewestFirst(t *testing.T) {
	t.Parallel()
	episodes := []Episode{
		{ArticleID: "b", PubDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ArticleID: "c", PubDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ArticleID: "a", PubDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	sorted := Sorted(episodes)
	if sorted[0].ArticleID != "c" || sorted[1].ArticleID != "a" || sorted[2].ArticleID != "b" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if episodes[0].ArticleID != "b" {
		t.Fatal("Sorted must not mutate its input")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after save")
	}
}
