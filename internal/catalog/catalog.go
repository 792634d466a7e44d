package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Episode is one published unit of output. Key is the storage-relative
// object key, not a full URL, so the catalog survives storage endpoint
// changes.
type Episode struct {
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Key         string    `json:"r2_key"`
	Description string    `json:"description"`
	SourceURL   string    `json:"source_url"`
	PubDate     time.Time `json:"pub_date"`
	FileSize    int64     `json:"file_size"`
}

// Store reads and writes the episode catalog document.
type Store struct {
	path string
}

// NewStore creates a catalog store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// episodeDocument tolerates the legacy shape that stored a full public URL
// under "mp3_url" instead of a storage-relative key.
type episodeDocument struct {
	Episode
	LegacyURL string `json:"mp3_url,omitempty"`
}

// Load returns all episodes, deduplicated on article id (later entries win)
// and normalized from legacy shapes. A missing file yields an empty list.
func (s *Store) Load() ([]Episode, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read episodes file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var docs []episodeDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse episodes file %s: %w", s.path, err)
	}

	seen := make(map[string]int, len(docs))
	episodes := make([]Episode, 0, len(docs))
	for _, doc := range docs {
		ep := doc.Episode
		if ep.Key == "" && doc.LegacyURL != "" {
			ep.Key = relativeKey(doc.LegacyURL)
		}
		if idx, ok := seen[ep.ArticleID]; ok {
			episodes[idx] = ep
			continue
		}
		seen[ep.ArticleID] = len(episodes)
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

// Save atomically replaces the catalog document.
func (s *Store) Save(episodes []Episode) error {
	data, err := json.MarshalIndent(episodes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal episodes: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create episodes directory: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Sorted returns the episodes ordered by publication time, newest first.
// Ties break on article id so output stays deterministic.
func Sorted(episodes []Episode) []Episode {
	out := make([]Episode, len(episodes))
	copy(out, episodes)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PubDate.Equal(out[j].PubDate) {
			return out[i].PubDate.After(out[j].PubDate)
		}
		return out[i].ArticleID < out[j].ArticleID
	})
	return out
}

// relativeKey strips the scheme and host from a legacy public URL:
// "https://pub-xxx.r2.dev/episodes/a.mp3" becomes "episodes/a.mp3".
func relativeKey(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}
