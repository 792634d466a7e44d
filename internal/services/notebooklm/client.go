package notebooklm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"inkcast/internal/services"
)

// JobState describes the outcome of a status poll.
type JobState string

const (
	StateNotReady JobState = "not_ready"
	StateReady    JobState = "ready"
	StateFailed   JobState = "failed"
)

// AudioStatus is the result of polling a generation task.
type AudioStatus struct {
	State       JobState
	DownloadURL string
	Reason      string
}

// Client provides access to the generation service API.
type Client struct {
	baseURL    string
	authToken  string
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

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a generation service client.
func New(baseURL, authToken string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("notebooklm base url required")
	}
	authToken = strings.TrimSpace(authToken)
	if authToken == "" {
		return nil, errors.New("notebooklm auth token required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CreateNotebook creates a notebook for one article and returns its id.
func (c *Client) CreateNotebook(ctx context.Context, title string) (string, error) {
	var payload struct {
		ID string `json:"id"`
	}
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/notebooks", body, &payload); err != nil {
		return "", services.Wrap(classify(err), "notebooklm", "create notebook", "", err)
	}
	if payload.ID == "" {
		return "", services.Wrap(services.ErrTransient, "notebooklm", "create notebook", "response missing notebook id", nil)
	}
	return payload.ID, nil
}

// AddTextSource attaches plain text as the notebook's source document.
func (c *Client) AddTextSource(ctx context.Context, notebookID, title, text string) error {
	body := map[string]string{"title": title, "text": text}
	if err := c.do(ctx, http.MethodPost, "/notebooks/"+notebookID+"/sources", body, nil); err != nil {
		return services.Wrap(classify(err), "notebooklm", "add text source", "", err)
	}
	return nil
}

// AddURLSource attaches a URL as the notebook's source document.
func (c *Client) AddURLSource(ctx context.Context, notebookID, sourceURL string) error {
	body := map[string]string{"url": sourceURL}
	if err := c.do(ctx, http.MethodPost, "/notebooks/"+notebookID+"/sources", body, nil); err != nil {
		return services.Wrap(classify(err), "notebooklm", "add url source", "", err)
	}
	return nil
}

// GenerateAudio starts asynchronous audio generation and returns the task id.
// It does not wait for completion.
func (c *Client) GenerateAudio(ctx context.Context, notebookID, language string) (string, error) {
	var payload struct {
		TaskID string `json:"task_id"`
	}
	body := map[string]string{"language": language}
	if err := c.do(ctx, http.MethodPost, "/notebooks/"+notebookID+"/audio", body, &payload); err != nil {
		return "", services.Wrap(classify(err), "notebooklm", "generate audio", "", err)
	}
	if payload.TaskID == "" {
		return "", services.Wrap(services.ErrTransient, "notebooklm", "generate audio", "response missing task id", nil)
	}
	return payload.TaskID, nil
}

// PollAudio checks a generation task once.
func (c *Client) PollAudio(ctx context.Context, notebookID, taskID string) (AudioStatus, error) {
	var payload struct {
		Status      string `json:"status"`
		DownloadURL string `json:"download_url"`
		Error       string `json:"error"`
	}
	path := "/notebooks/" + notebookID + "/audio/" + taskID
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return AudioStatus{}, services.Wrap(classify(err), "notebooklm", "poll audio", "", err)
	}

	switch payload.Status {
	case "ready", "complete", "completed":
		if payload.DownloadURL == "" {
			return AudioStatus{State: StateFailed, Reason: "ready without download url"}, nil
		}
		return AudioStatus{State: StateReady, DownloadURL: payload.DownloadURL}, nil
	case "failed", "error":
		reason := payload.Error
		if reason == "" {
			reason = "unknown error"
		}
		return AudioStatus{State: StateFailed, Reason: reason}, nil
	default:
		return AudioStatus{State: StateNotReady}, nil
	}
}

// DownloadAudio streams the finished artifact to destPath.
func (c *Client) DownloadAudio(ctx context.Context, downloadURL, destPath string) error {
	target := downloadURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notebooklm", "download audio", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError{code: resp.StatusCode}
		return services.Wrap(classify(err), "notebooklm", "download audio", "", err)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(destPath)
		return fmt.Errorf("write download file: %w", err)
	}
	return file.Close()
}

// DeleteNotebook removes the notebook and its generated artifacts.
func (c *Client) DeleteNotebook(ctx context.Context, notebookID string) error {
	if err := c.do(ctx, http.MethodDelete, "/notebooks/"+notebookID, nil, nil); err != nil {
		return services.Wrap(classify(err), "notebooklm", "delete notebook", "", err)
	}
	return nil
}

// statusError carries the HTTP status for classification.
type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
	}
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify maps transport errors onto the service taxonomy: expired sessions
// and exhausted quota end the run early, everything else is transient.
func classify(err error) error {
	var status statusError
	if errors.As(err, &status) {
		switch status.code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.ErrAuthExpired
		case http.StatusTooManyRequests, http.StatusPaymentRequired:
			return services.ErrQuotaExceeded
		}
	}
	return services.ErrTransient
}
