package recognizer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Stream is an open transcript connection. Every message is the full
// transcript to date; the client never writes application data.
type Stream struct {
	conn    *websocket.Conn
	closed  atomic.Bool
	writeMu sync.Mutex
}

// Open dials the transcript stream.
func (c *Client) Open(ctx context.Context) (*Stream, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.StreamURL(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks until the next transcript message arrives. It returns io.EOF
// when the stream was closed cleanly, by either side.
func (s *Stream) Next() (string, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return "", io.EOF
		}
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

// Close sends a close frame and releases the connection. Safe to call more
// than once and concurrently with Next.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}
