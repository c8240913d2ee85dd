package session

import "github.com/jwulff/livenotes/internal/teardown"

// Every message carries the session ID it belongs to. Messages for any
// other session are dropped.

// ConnOpenedMsg is sent when the stream connects.
type ConnOpenedMsg struct {
	SessionID string
	Stream    Stream
}

// TranscriptMsg carries the full transcript so far.
type TranscriptMsg struct {
	SessionID string
	Text      string
}

// ConnClosedMsg is sent when the stream ends. Err is nil for a clean close.
type ConnClosedMsg struct {
	SessionID string
	Err       error
}

// TeardownDoneMsg is sent when the teardown pipeline finishes.
type TeardownDoneMsg struct {
	SessionID string
	Report    teardown.Report
}
