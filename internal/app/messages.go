package app

// Session, device and lookup messages are defined by their packages and
// routed through Model.Update.

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
