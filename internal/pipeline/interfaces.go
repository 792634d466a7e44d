package pipeline

import (
	"context"
	"io"
	"time"

	"inkcast/internal/services/notebooklm"
	"inkcast/internal/services/readwise"
)

// ArticleSource lists saved articles newer than a watermark.
type ArticleSource interface {
	FetchNew(ctx context.Context, updatedAfter *time.Time) ([]readwise.Article, error)
}

// Generator drives the asynchronous audio generation service.
type Generator interface {
	CreateNotebook(ctx context.Context, title string) (string, error)
	AddTextSource(ctx context.Context, notebookID, title, text string) error
	AddURLSource(ctx context.Context, notebookID, sourceURL string) error
	GenerateAudio(ctx context.Context, notebookID, language string) (string, error)
	PollAudio(ctx context.Context, notebookID, taskID string) (notebooklm.AudioStatus, error)
	DownloadAudio(ctx context.Context, downloadURL, destPath string) error
	DeleteNotebook(ctx context.Context, notebookID string) error
}

// Transcoder converts downloaded audio into the distribution format.
type Transcoder interface {
	ToMP3(ctx context.Context, inputPath, outputPath string) error
}

// BlobStore is the object storage bucket episodes and the feed live in.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PutFile(ctx context.Context, key, localPath, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}
