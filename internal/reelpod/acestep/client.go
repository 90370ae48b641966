// Package acestep talks to an ACE-Step music generation service over
// its task API: submit a task, poll for completion, fetch the audio.
package acestep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when no service URL is configured.
	DefaultBaseURL = "http://localhost:8001"

	releaseTaskPath = "/release_task"
	queryResultPath = "/query_result"

	defaultPollInterval    = 500 * time.Millisecond
	defaultMaxPollAttempts = 1200
	requestTimeout         = 30 * time.Second
)

// Task status values reported by the query endpoint.
const (
	taskStatusDone   = 1
	taskStatusFailed = 2
)

// Client is an ACE-Step API client. It implements queue.Generator.
type Client struct {
	baseURL    string
	httpClient *http.Client

	pollInterval    time.Duration
	maxPollAttempts int
}

// NewClient creates a client for the service at baseURL. An empty
// baseURL falls back to [DefaultBaseURL].
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: requestTimeout},
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

// SetPolling overrides the poll cadence. Intended for tests.
func (c *Client) SetPolling(interval time.Duration, maxAttempts int) {
	c.pollInterval = interval
	c.maxPollAttempts = maxAttempts
}

// Generate runs a full generation cycle and returns the WAV bytes.
func (c *Client) Generate(ctx context.Context, prompt string, tempo, duration int) ([]byte, error) {
	taskID, err := c.submitTask(ctx, prompt, tempo, duration)
	if err != nil {
		return nil, err
	}

	task, err := c.pollUntilComplete(ctx, taskID)
	if err != nil {
		return nil, err
	}

	filePath, err := extractFilePath(task)
	if err != nil {
		return nil, err
	}
	return c.fetchBytes(ctx, c.absoluteURL(filePath))
}

type releaseResponse struct {
	TaskID string `json:"task_id"`
	Data   struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

func (c *Client) submitTask(ctx context.Context, prompt string, tempo, duration int) (string, error) {
	payload := map[string]any{
		"prompt":          prompt,
		"lyrics":          "",
		"bpm":             tempo,
		"audio_duration":  duration,
		"inference_steps": 20,
		"audio_format":    "wav",
		"thinking":        true,
	}

	var resp releaseResponse
	if err := c.postJSON(ctx, c.baseURL+releaseTaskPath, payload, &resp); err != nil {
		return "", fmt.Errorf("submitting task: %w", err)
	}

	// Some deployments nest the id under "data".
	taskID := resp.Data.TaskID
	if taskID == "" {
		taskID = resp.TaskID
	}
	if taskID == "" {
		return "", fmt.Errorf("missing task_id in release response")
	}
	return taskID, nil
}

// taskResult is one entry of the query_result data. Result is a JSON
// string, not an object.
type taskResult struct {
	Status int    `json:"status"`
	Result string `json:"result"`
}

type queryResponse struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) pollUntilComplete(ctx context.Context, taskID string) (*taskResult, error) {
	payload := map[string]any{"task_id_list": []string{taskID}}

	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		var resp queryResponse
		if err := c.postJSON(ctx, c.baseURL+queryResultPath, payload, &resp); err != nil {
			return nil, fmt.Errorf("querying task %s: %w", taskID, err)
		}

		task, ok := decodeTaskResult(resp.Data)
		if ok {
			switch task.Status {
			case taskStatusDone:
				return task, nil
			case taskStatusFailed:
				return nil, fmt.Errorf("task %s failed", taskID)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil, fmt.Errorf("task %s polling timed out", taskID)
}

// decodeTaskResult accepts the data field as either a list of tasks or
// a single task object.
func decodeTaskResult(data json.RawMessage) (*taskResult, bool) {
	if len(data) == 0 {
		return nil, false
	}

	var list []taskResult
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return nil, false
		}
		return &list[0], true
	}

	var single taskResult
	if err := json.Unmarshal(data, &single); err == nil {
		return &single, true
	}
	return nil, false
}

// resultFile matches the payload embedded in the result JSON string.
type resultFile struct {
	File string `json:"file"`
}

func extractFilePath(task *taskResult) (string, error) {
	if task.Result == "" {
		return "", fmt.Errorf("missing result payload")
	}

	var list []resultFile
	if err := json.Unmarshal([]byte(task.Result), &list); err == nil {
		for _, entry := range list {
			if entry.File != "" {
				return entry.File, nil
			}
		}
		return "", fmt.Errorf("no file path in result list")
	}

	var single resultFile
	if err := json.Unmarshal([]byte(task.Result), &single); err == nil && single.File != "" {
		return single.File, nil
	}
	return "", fmt.Errorf("no file path in result: %s", task.Result)
}

// absoluteURL resolves a file path from the service against its base
// URL. Already-absolute URLs pass through unchanged.
func (c *Client) absoluteURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
