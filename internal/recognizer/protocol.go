// Package recognizer provides the client and wire types for the live
// transcription backend: HTTP control calls plus a WebSocket transcript stream.
package recognizer

// Endpoint paths relative to the backend base URL.
const (
	PathReset         = "/reset"
	PathDevices       = "/list_microphones"
	PathSelectDevice  = "/set_microphone"
	PathDefine        = "/define"
	PathNotes         = "/notes"
	DefaultStreamPath = "/ws"
)

// ControlResponse is returned by reset and device selection. The backend
// reports failures in Error even with a 200 status.
type ControlResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DevicesResponse lists capture devices in backend index order.
type DevicesResponse struct {
	Devices []string `json:"devices"`
}

// DefineResponse carries a definition; empty means not found.
type DefineResponse struct {
	Definition string `json:"definition"`
}

// NotesRequest is posted to the notes endpoint.
type NotesRequest struct {
	Transcription string `json:"transcription"`
}

// NotesResponse carries generated notes. A nil Notes is an explicit absence.
type NotesResponse struct {
	Notes *string `json:"notes"`
}
