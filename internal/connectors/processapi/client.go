package processapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	ProcessesPath  = "/get_processes_data"
	InputDataPath  = "/get_input_data"
	GeneratePath   = "/generate"
	maxPayloadSize = 4 << 20
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("network error")
	// ErrGenerationFailed is returned when the backend did not report a
	// successful generation.
	ErrGenerationFailed = errors.New("generation failed")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }

// GenerationError carries the backend's reason for a failed generation.
// Message is empty when the backend did not supply one.
type GenerationError struct {
	Status  int
	Message string
}

func (e *GenerationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation failed (status %d)", e.Status)
	}
	return e.Message
}

func (e *GenerationError) Unwrap() error { return ErrGenerationFailed }

// Probe is a single reachability check of the backend.
type Probe struct {
	BaseURL   string    `json:"base_url"`
	OK        bool      `json:"ok"`
	Status    int       `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	PingMS    int64     `json:"ping_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

// Client talks to the process backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchProcesses returns the raw process table. Every call issues its own
// request, so a fetch started after a generation never sees an older table.
func (c *Client) FetchProcesses(ctx context.Context) (string, error) {
	return c.getText(ctx, ProcessesPath)
}

// FetchInputParams returns the raw generator parameter summary.
func (c *Client) FetchInputParams(ctx context.Context) (string, error) {
	return c.getText(ctx, InputDataPath)
}

// TriggerGeneration asks the backend to regenerate the process table.
func (c *Client) TriggerGeneration(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader([]byte("{}")))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w: %w", GeneratePath, ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", GeneratePath, ErrNetwork, err)
	}

	if !gjson.ValidBytes(body) {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &GenerationError{Status: resp.StatusCode}
		}
		return fmt.Errorf("decode %s: %w", GeneratePath, ErrGenerationFailed)
	}

	status := gjson.GetBytes(body, "status").String()
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 && status == "success" {
		return nil
	}
	return &GenerationError{
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(gjson.GetBytes(body, "message").String()),
	}
}

// Probe checks that the backend answers the processes endpoint.
func (c *Client) Probe(ctx context.Context) Probe {
	out := Probe{BaseURL: c.baseURL, CheckedAt: time.Now().UTC()}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ProcessesPath, nil)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	resp, err := c.http.Do(req)
	out.PingMS = time.Since(start).Milliseconds()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	out.Status = resp.StatusCode
	// 404 means reachable with nothing generated yet.
	out.OK = resp.StatusCode < 500
	return out
}

func (c *Client) getText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w: %w", path, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Path: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", path, ErrNetwork, err)
	}
	return string(body), nil
}
