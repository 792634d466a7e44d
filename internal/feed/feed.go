// Package feed renders the podcast RSS document from the episode catalog.
package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/eduncan911/podcast"

	"inkcast/internal/catalog"
	"inkcast/internal/config"
)

// Builder renders RSS for a configured feed.
type Builder struct {
	cfg    config.Feed
	urlFor func(key string) string
}

// NewBuilder constructs a feed builder. urlFor maps an object key to its
// public URL.
func NewBuilder(cfg config.Feed, urlFor func(key string) string) *Builder {
	return &Builder{cfg: cfg, urlFor: urlFor}
}

// Render produces the RSS document for the given episodes. Episodes are
// expected newest first; withArtwork controls whether the channel image is
// emitted.
func (b *Builder) Render(episodes []catalog.Episode, now time.Time, withArtwork bool) ([]byte, error) {
	feedURL := b.urlFor(b.cfg.FeedKey)

	oldest := now
	if len(episodes) > 0 {
		oldest = episodes[len(episodes)-1].PubDate
	}

	p := podcast.New(b.cfg.Title, feedURL, b.cfg.Description, &oldest, &now)
	p.Language = b.cfg.Language
	p.IAuthor = b.cfg.Author
	p.AddSummary(b.cfg.Description)
	if b.cfg.Category != "" {
		p.AddCategory(b.cfg.Category, nil)
	}
	if b.cfg.Author != "" && b.cfg.Email != "" {
		p.AddAuthor(b.cfg.Author, b.cfg.Email)
	}
	if b.cfg.Explicit {
		p.IExplicit = "yes"
	} else {
		p.IExplicit = "no"
	}
	if withArtwork && b.cfg.ArtworkKey != "" {
		p.AddImage(b.urlFor(b.cfg.ArtworkKey))
	}

	for _, ep := range episodes {
		description := strings.TrimSpace(ep.Description)
		if description == "" {
			description = ep.Title
		}
		item := podcast.Item{
			Title:       ep.Title,
			Description: description,
			Link:        ep.SourceURL,
			IAuthor:     ep.Author,
		}
		pubDate := ep.PubDate
		item.AddPubDate(&pubDate)
		item.AddSummary(description)
		item.AddEnclosure(b.urlFor(ep.Key), podcast.MP3, ep.FileSize)
		if _, err := p.AddItem(item); err != nil {
			return nil, fmt.Errorf("add episode %s: %w", ep.ArticleID, err)
		}
	}

	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	return buf.Bytes(), nil
}
