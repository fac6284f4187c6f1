// Package taskmanager provides an HTTP client for the task manager's
// timestamp lookup endpoint.
package taskmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/corevalid-adapter/task"
	"github.com/c360studio/semstreams/pkg/retry"
)

// maxResponseSize caps the body read from the task manager.
const maxResponseSize = 10 << 20 // 10 MB

// DefaultTimeout bounds a single lookup attempt.
const DefaultTimeout = 10 * time.Second

// Client looks tasks up by timestamp.
type Client struct {
	timestampURL string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a client. timestampURL is the endpoint prefix the raw
// timestamp is appended to, e.g. http://task-manager:8080/tasks/.
func NewClient(timestampURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if timestampURL == "" {
		return nil, fmt.Errorf("task manager timestamp url is required")
	}
	if _, err := url.Parse(timestampURL); err != nil {
		return nil, fmt.Errorf("parse task manager url: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		timestampURL: timestampURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// GetTaskByTimestamp fetches the task for ts.
// Returns (nil, nil) when the task manager answers without a task,
// and task.ErrTaskNotFound on 404. Transient failures are retried.
func (c *Client) GetTaskByTimestamp(ctx context.Context, ts string) (*task.Snapshot, error) {
	endpoint := c.timestampURL + url.PathEscape(ts)

	var snapshot *task.Snapshot
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		s, err := c.fetchOnce(ctx, endpoint)
		if err != nil {
			return err // retry.NonRetryable errors won't be retried
		}
		snapshot = s
		return nil
	})
	if err != nil {
		c.logger.Warn("Task lookup failed",
			"url", endpoint,
			"error", err,
			"retryable", !retry.IsNonRetryable(err))
		return nil, err
	}
	return snapshot, nil
}

// fetchOnce performs a single lookup attempt.
func (c *Client) fetchOnce(ctx context.Context, endpoint string) (*task.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.NonRetryable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.NonRetryable(task.ErrTaskNotFound)
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("task manager returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.NonRetryable(fmt.Errorf("task manager returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body))))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var snapshot task.Snapshot
	if err := json.Unmarshal(trimmed, &snapshot); err != nil {
		return nil, retry.NonRetryable(fmt.Errorf("decode task: %w", err))
	}
	return &snapshot, nil
}
