// Package session owns the lifecycle of one transcription session.
//
// The Controller is a value that is advanced by Update, the same way a
// bubbletea model is. Connection events, lookup results and teardown
// completion all arrive as messages on that single queue, so every
// transition can be driven directly from tests.
package session

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jwulff/livenotes/internal/apperr"
	"github.com/jwulff/livenotes/internal/lookup"
	"github.com/jwulff/livenotes/internal/teardown"
	"github.com/jwulff/livenotes/internal/transcript"
)

// Status of the session state machine.
type Status int

const (
	Idle Status = iota
	Connecting
	Listening
	Stopping
	Ended
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Listening:
		return "listening"
	case Stopping:
		return "stopping"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stream is an open transcription stream. Next blocks until the next full
// transcript arrives and returns io.EOF once the stream is closed cleanly.
type Stream interface {
	Next() (string, error)
	Close() error
}

// Recognizer is the remote speech recognizer.
type Recognizer interface {
	Reset(ctx context.Context) error
	Open(ctx context.Context) (Stream, error)
}

// Teardown runs the end-of-session steps for a transcript.
type Teardown interface {
	Run(ctx context.Context, id, buffer string) teardown.Report
}

// Controller is the session state machine.
type Controller struct {
	recognizer Recognizer
	teardown   Teardown
	lookup     *lookup.Lookup
	log        *log.Logger
	now        func() time.Time

	status     Status
	id         string
	buffer     string
	segments   []transcript.Segment
	startedAt  time.Time
	endedAt    time.Time
	stream     Stream
	highlights transcript.Highlights
	selection  lookup.Selection
	report     *teardown.Report
	err        error
}

func New(rec Recognizer, td Teardown, lk *lookup.Lookup, logger *log.Logger) Controller {
	return Controller{
		recognizer: rec,
		teardown:   td,
		lookup:     lk,
		log:        logger,
		now:        time.Now,
		status:     Idle,
		highlights: transcript.NewHighlights(),
	}
}

func (c Controller) Status() Status { return c.status }
func (c Controller) ID() string { return c.id }
func (c Controller) Buffer() string { return c.buffer }
func (c Controller) Segments() []transcript.Segment { return c.segments }
func (c Controller) Selection() lookup.Selection { return c.selection }
func (c Controller) StartedAt() time.Time { return c.startedAt }
func (c Controller) EndedAt() time.Time { return c.endedAt }
func (c Controller) IsHighlighted(key string) bool { return c.highlights.Has(key) }
func (c Controller) HighlightCount() int { return c.highlights.Len() }

// Report returns the last teardown report, if any.
func (c Controller) Report() *teardown.Report { return c.report }

// Err returns the error that failed the last session, if any.
func (c Controller) Err() error { return c.err }

// Active reports whether a session is connecting, listening or stopping.
func (c Controller) Active() bool {
	return c.status == Connecting || c.status == Listening || c.status == Stopping
}

// Start begins a new session. It is a no-op unless the controller is Idle,
// Ended or Failed.
func (c Controller) Start() (Controller, tea.Cmd) {
	switch c.status {
	case Idle, Ended, Failed:
	default:
		c.log.Debug("start ignored", "status", c.status)
		return c, nil
	}

	c.id = uuid.NewString()
	c.status = Connecting
	c.buffer = ""
	c.segments = nil
	c.startedAt = time.Time{}
	c.endedAt = time.Time{}
	c.stream = nil
	c.highlights = transcript.NewHighlights()
	c.selection = lookup.Selection{}
	c.report = nil
	c.err = nil

	c.log.Info("session starting", "session", c.id)
	return c, connectCmd(c.id, c.recognizer, c.log)
}

// Stop ends the session and runs teardown on the transcript as it is now.
// It is a no-op unless the controller is Connecting or Listening.
func (c Controller) Stop() (Controller, tea.Cmd) {
	if c.status != Connecting && c.status != Listening {
		c.log.Debug("stop ignored", "status", c.status)
		return c, nil
	}

	snapshot := c.buffer
	c.status = Stopping
	c.closeStream()

	c.log.Info("session stopping", "session", c.id, "chars", len(snapshot))
	return c, teardownCmd(c.id, snapshot, c.teardown)
}

// Toggle flips the highlight for key and looks up its definition.
func (c Controller) Toggle(key string) (Controller, tea.Cmd) {
	if key == "" {
		return c, nil
	}
	c.highlights.Toggle(key)
	var cmd tea.Cmd
	c.selection, cmd = c.lookup.Begin(key)
	return c, cmd
}

// Close releases the stream without running teardown. Used on exit.
func (c Controller) Close() {
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			c.log.Warn("closing stream", "session", c.id, "err", err)
		}
	}
}

// Update applies a message to the state machine.
func (c Controller) Update(msg tea.Msg) (Controller, tea.Cmd) {
	switch msg := msg.(type) {
	case ConnOpenedMsg:
		if msg.SessionID != c.id || c.status != Connecting {
			c.log.Debug("dropping stale stream", "session", msg.SessionID, "status", c.status)
			if msg.Stream != nil {
				msg.Stream.Close()
			}
			return c, nil
		}
		c.stream = msg.Stream
		c.status = Listening
		c.startedAt = c.now()
		c.log.Info("session listening", "session", c.id)
		return c, readCmd(c.id, c.stream)

	case TranscriptMsg:
		if msg.SessionID != c.id || c.status != Listening {
			return c, nil
		}
		c.buffer = msg.Text
		c.segments = transcript.Tokenize(msg.Text)
		return c, readCmd(c.id, c.stream)

	case ConnClosedMsg:
		if msg.SessionID != c.id || (c.status != Connecting && c.status != Listening) {
			return c, nil
		}
		c.stream = nil
		c.endedAt = c.now()
		if msg.Err != nil {
			c.status = Failed
			c.err = msg.Err
			c.log.Error("session failed", "session", c.id, "err", msg.Err)
			return c, nil
		}
		c.status = Ended
		c.clearBuffer()
		c.log.Info("session ended by server", "session", c.id)
		return c, nil

	case TeardownDoneMsg:
		if msg.SessionID != c.id || c.status != Stopping {
			return c, nil
		}
		c.status = Ended
		c.endedAt = c.now()
		c.clearBuffer()
		c.highlights = transcript.NewHighlights()
		c.selection = lookup.Selection{}
		report := msg.Report
		c.report = &report
		c.log.Info("session ended", "session", c.id, "errors", len(report.Errors))
		return c, nil

	case lookup.ResultMsg:
		c.lookup.Remember(msg)
		if sel, ok := c.selection.Resolve(msg); ok {
			c.selection = sel
		} else {
			c.log.Debug("discarding stale definition", "word", msg.Word)
		}
		return c, nil
	}
	return c, nil
}

func (c *Controller) clearBuffer() {
	c.buffer = ""
	c.segments = nil
}

func (c *Controller) closeStream() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Close(); err != nil {
		c.log.Warn("closing stream", "session", c.id, "err", err)
	}
	c.stream = nil
}

func connectCmd(id string, rec Recognizer, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := rec.Reset(ctx); err != nil {
			logger.Warn("recognizer reset failed", "session", id,
				"err", apperr.E(apperr.ControlCall, "session.Reset", err))
		}
		stream, err := rec.Open(ctx)
		if err != nil {
			return ConnClosedMsg{SessionID: id, Err: apperr.E(apperr.Connection, "session.Open", err)}
		}
		return ConnOpenedMsg{SessionID: id, Stream: stream}
	}
}

func readCmd(id string, stream Stream) tea.Cmd {
	return func() tea.Msg {
		text, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return ConnClosedMsg{SessionID: id}
		}
		if err != nil {
			return ConnClosedMsg{SessionID: id, Err: apperr.E(apperr.Connection, "session.Read", err)}
		}
		return TranscriptMsg{SessionID: id, Text: text}
	}
}

func teardownCmd(id, buffer string, td Teardown) tea.Cmd {
	return func() tea.Msg {
		return TeardownDoneMsg{SessionID: id, Report: td.Run(context.Background(), id, buffer)}
	}
}
