package readwise

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"inkcast/internal/services"
)

func TestFetchNewFollowsPagination(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		switch calls.Add(1) {
		case 1:
			if r.URL.Query().Get("pageCursor") != "" {
				t.Errorf("first page should have no cursor")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"id": "a1", "title": "One", "author": "A", "source_url": "https://e.com/1", "updated_at": "2026-03-01T10:00:00Z"},
				},
				"nextPageCursor": "cursor-2",
			})
		default:
			if r.URL.Query().Get("pageCursor") != "cursor-2" {
				t.Errorf("second page missing cursor, got %q", r.URL.Query().Get("pageCursor"))
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"id": "a2", "title": "", "author": "", "updated_at": "2026-03-01T11:00:00Z"},
				},
			})
		}
	}))
	defer server.Close()

	client, err := New("secret", server.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	articles, err := client.FetchNew(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].ID != "a1" || articles[1].ID != "a2" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
	if articles[1].Title != "Untitled" || articles[1].Author != "Unknown" {
		t.Fatalf("empty fields should default: %+v", articles[1])
	}
}

func TestFetchNewSendsWatermark(t *testing.T) {
	t.Parallel()
	watermark := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("updatedAfter"); got != "2026-02-01T09:30:00Z" {
			t.Errorf("unexpected updatedAfter %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	client, err := New("secret", server.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.FetchNew(context.Background(), &watermark); err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}
}

func TestFetchNewRetriesRateLimit(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"id": "a1", "updated_at": "2026-03-01T10:00:00Z"}},
		})
	}))
	defer server.Close()

	client, err := New("secret", server.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	articles, err := client.FetchNew(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article after retry, got %d", len(articles))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetchNewGivesUpAfterPersistentRateLimit(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := New("secret", server.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.FetchNew(context.Background(), nil)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New("", "https://readwise.io/api/v3"); err == nil {
		t.Fatal("expected error for empty token")
	}
}
