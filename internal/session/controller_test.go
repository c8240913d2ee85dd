package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/livenotes/internal/apperr"
	"github.com/jwulff/livenotes/internal/logger"
	"github.com/jwulff/livenotes/internal/lookup"
	"github.com/jwulff/livenotes/internal/teardown"
	"github.com/jwulff/livenotes/internal/transcript"
)

type frame struct {
	text string
	err  error
}

// fakeStream replays queued frames. Next returns io.EOF once the queue is
// closed or the stream itself is closed.
type fakeStream struct {
	frames chan frame
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	closes int
}

func newStream(frames ...frame) *fakeStream {
	s := &fakeStream{frames: make(chan frame, 16), done: make(chan struct{})}
	for _, f := range frames {
		s.frames <- f
	}
	return s
}

func (s *fakeStream) Next() (string, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return "", io.EOF
		}
		return f.text, f.err
	case <-s.done:
		return "", io.EOF
	}
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeRecognizer struct {
	resetErr error
	openErr  error
	streams  []*fakeStream
	resets   int
	opens    int
}

func (r *fakeRecognizer) Reset(ctx context.Context) error {
	r.resets++
	return r.resetErr
}

func (r *fakeRecognizer) Open(ctx context.Context) (Stream, error) {
	r.opens++
	if r.openErr != nil {
		return nil, r.openErr
	}
	if len(r.streams) == 0 {
		return newStream(), nil
	}
	s := r.streams[0]
	r.streams = r.streams[1:]
	return s, nil
}

type fakeTeardown struct {
	runs []string
}

func (f *fakeTeardown) Run(ctx context.Context, id, buffer string) teardown.Report {
	f.runs = append(f.runs, buffer)
	return teardown.Report{SessionID: id}
}

type fakeDefiner struct {
	defs map[string]string
}

func (f fakeDefiner) Define(ctx context.Context, word string) (string, error) {
	if d, ok := f.defs[word]; ok {
		return d, nil
	}
	return "", apperr.ErrNotFound
}

func newController(rec *fakeRecognizer, td Teardown) Controller {
	lk := lookup.New(fakeDefiner{defs: map[string]string{
		"cat": "a small domesticated feline",
		"sat": "past tense of sit",
	}}, nil, logger.Discard())
	return New(rec, td, lk, logger.Discard())
}

// step runs cmd and feeds its message back into c.
func step(t *testing.T, c Controller, cmd tea.Cmd) (Controller, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return c.Update(cmd())
}

// listening starts c and opens its stream.
func listening(t *testing.T, c Controller) (Controller, tea.Cmd) {
	t.Helper()
	c, cmd := c.Start()
	if c.Status() != Connecting {
		t.Fatalf("status = %v, want connecting", c.Status())
	}
	c, cmd = step(t, c, cmd)
	if c.Status() != Listening {
		t.Fatalf("status = %v, want listening", c.Status())
	}
	return c, cmd
}

func TestListenThenStop(t *testing.T) {
	stream := newStream(frame{text: "Listening..."}, frame{text: "The cat sat"})
	rec := &fakeRecognizer{streams: []*fakeStream{stream}}

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(s string) {
		mu.Lock()
		calls = append(calls, s)
		mu.Unlock()
	}
	exporter := exporterFunc(func(title, text, filename string) (string, error) {
		record("export:" + text)
		return "/tmp/" + filename, nil
	})
	summarizer := summarizerFunc(func(ctx context.Context, tr string) (string, error) {
		record("notes:" + tr)
		return "", nil
	})
	td := teardown.New(exporter, summarizer, logger.Discard())
	c := newController(rec, td)

	c, cmd := listening(t, c)
	if rec.resets != 1 {
		t.Errorf("resets = %d, want 1", rec.resets)
	}
	if c.StartedAt().IsZero() {
		t.Error("startedAt not recorded")
	}

	c, cmd = step(t, c, cmd)
	if c.Buffer() != "Listening..." {
		t.Fatalf("buffer = %q", c.Buffer())
	}
	c, _ = step(t, c, cmd)
	if c.Buffer() != "The cat sat" {
		t.Fatalf("buffer = %q, want full replacement", c.Buffer())
	}

	var texts []string
	var kinds []transcript.Kind
	for _, s := range c.Segments() {
		texts = append(texts, s.Text)
		kinds = append(kinds, s.Kind)
	}
	wantKinds := []transcript.Kind{transcript.Word, transcript.Separator, transcript.Word, transcript.Separator, transcript.Word}
	if len(texts) != 5 || texts[0] != "The" || texts[1] != " " || texts[4] != "sat" {
		t.Errorf("segments = %q", texts)
	}
	for i := range wantKinds {
		if i < len(kinds) && kinds[i] != wantKinds[i] {
			t.Errorf("kind[%d] = %v, want %v", i, kinds[i], wantKinds[i])
		}
	}

	c, cmd = c.Stop()
	if c.Status() != Stopping {
		t.Fatalf("status = %v, want stopping", c.Status())
	}
	if c.Buffer() != "The cat sat" {
		t.Errorf("buffer cleared before teardown finished")
	}
	if stream.closeCount() != 1 {
		t.Errorf("stream closes = %d, want 1", stream.closeCount())
	}

	c, _ = step(t, c, cmd)
	if c.Status() != Ended {
		t.Fatalf("status = %v, want ended", c.Status())
	}
	if c.Buffer() != "" || c.Segments() != nil {
		t.Error("buffer not cleared after teardown")
	}
	if c.Report() == nil || c.Report().SessionID != c.ID() {
		t.Errorf("report = %+v", c.Report())
	}
	if c.EndedAt().IsZero() {
		t.Error("endedAt not recorded")
	}

	want := []string{"export:The cat sat", "notes:The cat sat"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("teardown calls = %q, want %q", calls, want)
	}
}

type exporterFunc func(title, text, filename string) (string, error)

func (f exporterFunc) Export(title, text, filename string) (string, error) {
	return f(title, text, filename)
}

type summarizerFunc func(ctx context.Context, transcript string) (string, error)

func (f summarizerFunc) Notes(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

func TestStopInIdleIsNoop(t *testing.T) {
	td := &fakeTeardown{}
	c := newController(&fakeRecognizer{}, td)

	c, cmd := c.Stop()
	if cmd != nil {
		t.Error("stop in idle should not return a command")
	}
	if c.Status() != Idle {
		t.Errorf("status = %v, want idle", c.Status())
	}
	if len(td.runs) != 0 {
		t.Errorf("teardown ran %d times", len(td.runs))
	}
}

func TestDoubleStop(t *testing.T) {
	td := &fakeTeardown{}
	c := newController(&fakeRecognizer{}, td)
	c, _ = listening(t, c)

	c, first := c.Stop()
	c, second := c.Stop()
	if second != nil {
		t.Error("second stop should be a no-op")
	}
	c, _ = step(t, c, first)
	if _, cmd := c.Stop(); cmd != nil {
		t.Error("stop after ended should be a no-op")
	}
	if len(td.runs) != 1 {
		t.Errorf("teardown ran %d times, want 1", len(td.runs))
	}
}

func TestStartIgnoredWhileActive(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newController(rec, &fakeTeardown{})
	c, _ = listening(t, c)
	id := c.ID()

	c, cmd := c.Start()
	if cmd != nil || c.ID() != id || c.Status() != Listening {
		t.Errorf("start while listening changed state: %v %s", c.Status(), c.ID())
	}
	if rec.opens != 1 {
		t.Errorf("opens = %d, want 1", rec.opens)
	}
}

func TestDroppedConnectionSkipsTeardown(t *testing.T) {
	stream := newStream(frame{text: "partial"})
	close(stream.frames)
	td := &fakeTeardown{}
	c := newController(&fakeRecognizer{streams: []*fakeStream{stream}}, td)

	c, cmd := listening(t, c)
	c, cmd = step(t, c, cmd)
	c, cmd = step(t, c, cmd)

	if cmd != nil {
		t.Error("no command expected after close")
	}
	if c.Status() != Ended {
		t.Errorf("status = %v, want ended", c.Status())
	}
	if c.Buffer() != "" {
		t.Errorf("buffer = %q, want cleared", c.Buffer())
	}
	if len(td.runs) != 0 {
		t.Error("teardown must not run on a dropped connection")
	}
}

func TestStreamErrorFails(t *testing.T) {
	stream := newStream(frame{err: errors.New("connection reset by peer")})
	rec := &fakeRecognizer{streams: []*fakeStream{stream}}
	td := &fakeTeardown{}
	c := newController(rec, td)

	c, cmd := listening(t, c)
	c, _ = step(t, c, cmd)

	if c.Status() != Failed {
		t.Fatalf("status = %v, want failed", c.Status())
	}
	if !apperr.IsKind(c.Err(), apperr.Connection) {
		t.Errorf("err = %v, want connection error", c.Err())
	}
	if len(td.runs) != 0 {
		t.Error("teardown must not run on failure")
	}

	first := c.ID()
	c, _ = listening(t, c)
	if c.ID() == first {
		t.Error("restart should create a new session ID")
	}
	if c.Err() != nil {
		t.Error("restart should clear the previous error")
	}
}

func TestOpenFailure(t *testing.T) {
	rec := &fakeRecognizer{openErr: errors.New("dial tcp: connection refused")}
	c := newController(rec, &fakeTeardown{})

	c, cmd := c.Start()
	c, _ = step(t, c, cmd)
	if c.Status() != Failed {
		t.Errorf("status = %v, want failed", c.Status())
	}
	if _, cmd := c.Stop(); cmd != nil {
		t.Error("stop after failure should be a no-op")
	}
}

func TestResetFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecognizer{resetErr: errors.New("backend error 500")}
	c := newController(rec, &fakeTeardown{})

	c, _ = listening(t, c)
	if rec.opens != 1 {
		t.Errorf("opens = %d, want 1", rec.opens)
	}
}

func TestStopWhileConnecting(t *testing.T) {
	stream := newStream()
	td := &fakeTeardown{}
	c := newController(&fakeRecognizer{streams: []*fakeStream{stream}}, td)

	c, connect := c.Start()
	c, done := c.Stop()
	if c.Status() != Stopping {
		t.Fatalf("status = %v, want stopping", c.Status())
	}

	// The connection completes after the stop.
	c, cmd := c.Update(connect())
	if cmd != nil || c.Status() != Stopping {
		t.Errorf("late open changed state: %v", c.Status())
	}
	if stream.closeCount() != 1 {
		t.Error("late stream should be closed")
	}

	c, _ = step(t, c, done)
	if c.Status() != Ended {
		t.Errorf("status = %v, want ended", c.Status())
	}
	if len(td.runs) != 1 || td.runs[0] != "" {
		t.Errorf("teardown runs = %q", td.runs)
	}
}

func TestStaleSessionMessagesIgnored(t *testing.T) {
	c := newController(&fakeRecognizer{}, &fakeTeardown{})
	c, _ = listening(t, c)

	c, _ = c.Update(TranscriptMsg{SessionID: "old", Text: "stale"})
	if c.Buffer() != "" {
		t.Errorf("buffer = %q, stale transcript applied", c.Buffer())
	}
	c, _ = c.Update(ConnClosedMsg{SessionID: "old", Err: errors.New("boom")})
	if c.Status() != Listening {
		t.Errorf("status = %v, stale close applied", c.Status())
	}

	stale := newStream()
	c, _ = c.Update(ConnOpenedMsg{SessionID: "old", Stream: stale})
	if stale.closeCount() != 1 {
		t.Error("stale stream should be closed")
	}
}

func TestClosedAfterStopIgnored(t *testing.T) {
	c := newController(&fakeRecognizer{}, &fakeTeardown{})
	c, read := listening(t, c)
	c, done := c.Stop()

	// The read loop observes the local close.
	c, _ = step(t, c, read)
	if c.Status() != Stopping {
		t.Errorf("status = %v, want stopping", c.Status())
	}
	c, _ = step(t, c, done)
	if c.Status() != Ended {
		t.Errorf("status = %v, want ended", c.Status())
	}
}

func TestHighlightsSurviveUpdatesAndClearOnStop(t *testing.T) {
	stream := newStream(frame{text: "The cat"}, frame{text: "The cat sat"})
	c := newController(&fakeRecognizer{streams: []*fakeStream{stream}}, &fakeTeardown{})

	c, read := listening(t, c)
	c, read = step(t, c, read)

	c, lookupCmd := c.Toggle("cat")
	if !c.IsHighlighted("cat") {
		t.Fatal("cat should be highlighted")
	}
	if sel := c.Selection(); sel.Word != "cat" || sel.State != lookup.Pending {
		t.Errorf("selection = %+v", sel)
	}
	c, _ = step(t, c, lookupCmd)
	if c.Selection().Definition != "a small domesticated feline" {
		t.Errorf("definition = %q", c.Selection().Definition)
	}

	c, _ = step(t, c, read)
	if !c.IsHighlighted("cat") {
		t.Error("highlight lost on buffer update")
	}

	c, done := c.Stop()
	c, _ = step(t, c, done)
	if c.HighlightCount() != 0 || c.Selection().Active() {
		t.Errorf("highlights = %d selection = %+v, want cleared", c.HighlightCount(), c.Selection())
	}
}

func TestToggleTwiceRemovesHighlight(t *testing.T) {
	c := newController(&fakeRecognizer{}, &fakeTeardown{})
	c, _ = c.Toggle("cat")
	c, _ = c.Toggle("cat")
	if c.IsHighlighted("cat") {
		t.Error("double toggle should remove the highlight")
	}
	if _, cmd := c.Toggle(""); cmd != nil {
		t.Error("empty key should be ignored")
	}
}

func TestLastSelectionWins(t *testing.T) {
	c := newController(&fakeRecognizer{}, &fakeTeardown{})

	c, catCmd := c.Toggle("cat")
	c, satCmd := c.Toggle("sat")

	c, _ = step(t, c, satCmd)
	c, _ = step(t, c, catCmd)

	sel := c.Selection()
	if sel.Word != "sat" || sel.Definition != "past tense of sit" {
		t.Errorf("selection = %+v, want sat with its definition", sel)
	}
}

func TestStartClearsPreviousSession(t *testing.T) {
	c := newController(&fakeRecognizer{}, &fakeTeardown{})
	c, _ = listening(t, c)
	c, done := c.Stop()
	c, _ = step(t, c, done)
	if c.Report() == nil {
		t.Fatal("expected a report")
	}

	c, _ = c.Toggle("cat")
	c, _ = c.Start()
	if c.Report() != nil || c.HighlightCount() != 0 || c.Selection().Active() {
		t.Error("start should clear the previous session")
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		Idle: "idle", Connecting: "connecting", Listening: "listening",
		Stopping: "stopping", Ended: "ended", Failed: "failed", Status(42): "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
