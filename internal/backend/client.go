package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"file-monitor-dashboard/internal/model"
)

const maxJSONBody = 32 << 20

type endpoint struct {
	method string
	path   string
}

// allowedEndpoints maps every backend call this client may make to the schema of its payload.
// Export endpoints carry no schema: their body is binary.
var allowedEndpoints = map[endpoint]string{
	{http.MethodGet, "/health"}:             "health.json",
	{http.MethodPost, "/watch/start"}:       "start_watch.json",
	{http.MethodGet, "/watch/status"}:       "watch_status.json",
	{http.MethodPost, "/watch/stop"}:        "stop_watch.json",
	{http.MethodGet, "/events"}:             "events.json",
	{http.MethodDelete, "/events"}:          "clear_events.json",
	{http.MethodGet, "/report"}:             "report.json",
	{http.MethodGet, "/report/pdf"}:         "",
	{http.MethodGet, "/report/excel"}:       "",
	{http.MethodGet, "/honeypot/status"}:    "honeypot_status.json",
	{http.MethodGet, "/system/pick-folder"}: "pick_folder.json",
}

// Client is a typed client for the file-monitor backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (model.HealthResponse, error) {
	var out model.HealthResponse
	if _, err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return model.HealthResponse{}, err
	}
	return out, nil
}

func (c *Client) StartWatch(ctx context.Context, directory string) (model.StartWatchResponse, error) {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return model.StartWatchResponse{}, &ValidationError{Message: "Directory path is required."}
	}

	var out model.StartWatchResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/watch/start", model.StartWatchRequest{Directory: directory}, &out); err != nil {
		return model.StartWatchResponse{}, err
	}
	return out, nil
}

func (c *Client) WatchStatus(ctx context.Context) (model.WatchStatus, error) {
	var out model.WatchStatus
	if _, err := c.doJSON(ctx, http.MethodGet, "/watch/status", nil, &out); err != nil {
		return model.WatchStatus{}, err
	}
	return out, nil
}

func (c *Client) StopWatch(ctx context.Context) (model.StopWatchResponse, error) {
	var out model.StopWatchResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/watch/stop", nil, &out); err != nil {
		return model.StopWatchResponse{}, err
	}
	return out, nil
}

func (c *Client) Events(ctx context.Context) ([]model.FileEvent, error) {
	var out []model.FileEvent
	if _, err := c.doJSON(ctx, http.MethodGet, "/events", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.FileEvent{}
	}
	return out, nil
}

func (c *Client) ClearEvents(ctx context.Context) (model.ClearEventsResponse, error) {
	var out model.ClearEventsResponse
	if _, err := c.doJSON(ctx, http.MethodDelete, "/events", nil, &out); err != nil {
		return model.ClearEventsResponse{}, err
	}
	return out, nil
}

func (c *Client) Report(ctx context.Context) (model.ReportSummary, error) {
	var out model.ReportSummary
	if _, err := c.doJSON(ctx, http.MethodGet, "/report", nil, &out); err != nil {
		return model.ReportSummary{}, err
	}
	return out, nil
}

func (c *Client) HoneypotStatus(ctx context.Context) (model.HoneypotStatus, error) {
	var out model.HoneypotStatus
	if _, err := c.doJSON(ctx, http.MethodGet, "/honeypot/status", nil, &out); err != nil {
		return model.HoneypotStatus{}, err
	}
	return out, nil
}

// PickFolder asks the backend host for a directory. ok is false when the backend
// answers 204 or the operator picked nothing.
func (c *Client) PickFolder(ctx context.Context) (path string, ok bool, err error) {
	var out model.PickFolderResponse
	hasPayload, err := c.doJSON(ctx, http.MethodGet, "/system/pick-folder", nil, &out)
	if err != nil {
		return "", false, err
	}
	if !hasPayload || strings.TrimSpace(out.Path) == "" {
		return "", false, nil
	}
	return out.Path, true, nil
}

// doJSON performs a request and decodes the payload into out. It reports false
// without touching out when the backend answers 204 No Content.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) (bool, error) {
	schemaName, ok := allowedEndpoints[endpoint{method, path}]
	if !ok || schemaName == "" {
		return false, fmt.Errorf("%s %s is not an allowed JSON endpoint", method, path)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request %s: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorEnvelopeMessage(resp),
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return false, &DecodeError{Path: path, Err: err}
	}
	if err := validatePayload(schemaName, payload); err != nil {
		return false, &DecodeError{Path: path, Err: err}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, &DecodeError{Path: path, Err: err}
	}

	return true, nil
}

func errorEnvelopeMessage(resp *http.Response) string {
	message := fmt.Sprintf("request failed with status %d", resp.StatusCode)

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(snippet) == 0 {
		return message
	}

	var envelope map[string]any
	if err := json.Unmarshal(snippet, &envelope); err != nil {
		return message
	}
	if text, ok := envelope["error"].(string); ok && strings.TrimSpace(text) != "" {
		return text
	}

	return message
}
