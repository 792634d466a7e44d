package readwise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inkcast/internal/services"
)

const maxRateLimitRetries = 3

// Article is one saved document from the Reader list endpoint.
type Article struct {
	ID        string
	Title     string
	Author    string
	SourceURL string
	Summary   string
	Content   string
	UpdatedAt time.Time
}

// Client provides access to the Reader API v3.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Reader API client.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("readwise token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("readwise base url required")
	}
	client := &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type listResponse struct {
	Results []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Author      string `json:"author"`
		SourceURL   string `json:"source_url"`
		Summary     string `json:"summary"`
		HTMLContent string `json:"html_content"`
		UpdatedAt   string `json:"updated_at"`
	} `json:"results"`
	NextPageCursor string `json:"nextPageCursor"`
}

// FetchNew lists articles updated after the given watermark, following
// pagination until exhausted. A nil watermark lists everything. Rate limits
// are retried per request up to a small bound, honoring Retry-After.
func (c *Client) FetchNew(ctx context.Context, updatedAfter *time.Time) ([]Article, error) {
	var articles []Article
	cursor := ""

	for {
		page, err := c.listPage(ctx, updatedAfter, cursor)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Results {
			articles = append(articles, Article{
				ID:        item.ID,
				Title:     orDefault(item.Title, "Untitled"),
				Author:    orDefault(item.Author, "Unknown"),
				SourceURL: item.SourceURL,
				Summary:   item.Summary,
				Content:   item.HTMLContent,
				UpdatedAt: parseTimestamp(item.UpdatedAt),
			})
		}
		if page.NextPageCursor == "" {
			return articles, nil
		}
		cursor = page.NextPageCursor
	}
}

func (c *Client) listPage(ctx context.Context, updatedAfter *time.Time, cursor string) (*listResponse, error) {
	endpoint, err := url.Parse(c.baseURL + "/list/")
	if err != nil {
		return nil, fmt.Errorf("parse readwise url: %w", err)
	}
	params := url.Values{}
	params.Set("category", "article")
	params.Set("withHtmlContent", "true")
	if updatedAfter != nil {
		params.Set("updatedAfter", updatedAfter.UTC().Format(time.RFC3339))
	}
	if cursor != "" {
		params.Set("pageCursor", cursor)
	}
	endpoint.RawQuery = params.Encode()

	for attempt := 0; attempt < maxRateLimitRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "readwise", "list", "execute request", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfter(resp)
			resp.Body.Close()
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, services.Wrap(services.ErrTransient, "readwise", "list",
				fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
		}

		var payload listResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode readwise response: %w", decodeErr)
		}
		return &payload, nil
	}

	return nil, services.Wrap(services.ErrRateLimited, "readwise", "list", "rate limit persisted after retries", nil)
}

func retryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Minute
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
