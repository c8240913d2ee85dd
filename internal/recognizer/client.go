package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jwulff/livenotes/internal/apperr"
)

// Client talks to the transcription backend.
type Client struct {
	baseURL    *url.URL
	streamPath string
	http       *http.Client
	dialer     *websocket.Dialer
}

// New creates a client for baseURL. timeout bounds every HTTP call and the
// WebSocket handshake.
func New(baseURL, streamPath string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme %q not supported", u.Scheme)
	}
	if streamPath == "" {
		streamPath = DefaultStreamPath
	}

	return &Client{
		baseURL:    u,
		streamPath: streamPath,
		http:       &http.Client{Timeout: timeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: timeout},
	}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	return u.String()
}

// StreamURL returns the ws:// or wss:// address of the transcript stream.
func (c *Client) StreamURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.baseURL.Path + c.streamPath
	return u.String()
}

// Reset tells the backend to discard its accumulated transcript.
func (c *Client) Reset(ctx context.Context) error {
	var resp ControlResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(PathReset), nil, "", &resp); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("reset: %w: %s", apperr.ErrRejected, resp.Error)
	}
	return nil
}

// Devices returns the capture device labels in index order.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	var resp DevicesResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(PathDevices), nil, "", &resp); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return resp.Devices, nil
}

// SelectDevice switches the backend's capture device by zero-based index.
func (c *Client) SelectDevice(ctx context.Context, index int) error {
	form := url.Values{"device_index": {strconv.Itoa(index)}}
	var resp ControlResponse
	err := c.do(ctx, http.MethodPost, c.endpoint(PathSelectDevice),
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &resp)
	if err != nil {
		return fmt.Errorf("select device %d: %w", index, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("select device %d: %w: %s", index, apperr.ErrRejected, resp.Error)
	}
	return nil
}

// Define looks up word. It returns apperr.ErrNotFound when the backend has
// no definition.
func (c *Client) Define(ctx context.Context, word string) (string, error) {
	u := c.endpoint(PathDefine) + "?" + url.Values{"word": {word}}.Encode()
	var resp DefineResponse
	if err := c.do(ctx, http.MethodGet, u, nil, "", &resp); err != nil {
		return "", fmt.Errorf("define %q: %w", word, err)
	}
	def := strings.TrimSpace(resp.Definition)
	if def == "" {
		return "", fmt.Errorf("define %q: %w", word, apperr.ErrNotFound)
	}
	return def, nil
}

// Notes asks the backend to summarize transcript. An empty result with a
// nil error means the backend returned no notes.
func (c *Client) Notes(ctx context.Context, transcript string) (string, error) {
	body, err := json.Marshal(NotesRequest{Transcription: transcript})
	if err != nil {
		return "", fmt.Errorf("marshal notes request: %w", err)
	}
	var resp NotesResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(PathNotes), bytes.NewReader(body), "application/json", &resp); err != nil {
		return "", fmt.Errorf("notes: %w", err)
	}
	if resp.Notes == nil {
		return "", nil
	}
	return *resp.Notes, nil
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
