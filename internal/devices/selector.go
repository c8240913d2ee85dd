// Package devices enumerates capture devices and tracks the selected one.
// Selection is independent of transcription sessions.
package devices

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/jwulff/livenotes/internal/apperr"
)

// Source is the external device enumeration and configuration service.
type Source interface {
	Devices(ctx context.Context) ([]string, error)
	SelectDevice(ctx context.Context, index int) error
}

// ListedMsg carries the device enumeration.
type ListedMsg struct {
	Devices []string
	Err     error
}

// SelectedMsg carries the outcome of a selection request.
type SelectedMsg struct {
	Index int
	Err   error
}

// Selector holds the device list and the selected index (-1 when none).
type Selector struct {
	source    Source
	log       *log.Logger
	devices   []string
	selected  int
	requested bool
}

func New(source Source, logger *log.Logger) Selector {
	return Selector{source: source, log: logger, selected: -1}
}

// Devices returns the enumerated labels.
func (s Selector) Devices() []string { return s.devices }

// Selected returns the selected index, or -1.
func (s Selector) Selected() int { return s.selected }

// SelectedLabel returns the selected device label, or "".
func (s Selector) SelectedLabel() string {
	if s.selected < 0 || s.selected >= len(s.devices) {
		return ""
	}
	return s.devices[s.selected]
}

// Fetch requests the enumeration. Only the first call issues a request.
func (s Selector) Fetch() (Selector, tea.Cmd) {
	if s.requested {
		return s, nil
	}
	s.requested = true
	source := s.source
	return s, func() tea.Msg {
		devices, err := source.Devices(context.Background())
		if err != nil {
			return ListedMsg{Err: apperr.E(apperr.ControlCall, "devices.List", err)}
		}
		return ListedMsg{Devices: devices}
	}
}

// Select asks the backend to switch to index. The selected index changes
// only when the request succeeds.
func (s Selector) Select(index int) tea.Cmd {
	if index < 0 || index >= len(s.devices) {
		s.log.Warn("device index out of range", "index", index, "devices", len(s.devices))
		return nil
	}
	source := s.source
	return func() tea.Msg {
		err := source.SelectDevice(context.Background(), index)
		return SelectedMsg{Index: index, Err: apperr.E(apperr.ControlCall, "devices.Select", err)}
	}
}

// Next returns the command selecting the device after the current one.
func (s Selector) Next() tea.Cmd {
	if len(s.devices) == 0 {
		return nil
	}
	return s.Select((s.selected + 1) % len(s.devices))
}

// Update applies device messages.
func (s Selector) Update(msg tea.Msg) Selector {
	switch msg := msg.(type) {
	case ListedMsg:
		if msg.Err != nil {
			s.log.Error("device enumeration failed", "err", msg.Err)
			return s
		}
		s.devices = msg.Devices
		if len(s.devices) > 0 {
			s.selected = 0
		} else {
			s.selected = -1
		}
		s.log.Info("devices listed", "count", len(s.devices))

	case SelectedMsg:
		if msg.Err != nil {
			s.log.Error("device selection failed", "index", msg.Index, "err", msg.Err)
			return s
		}
		if msg.Index >= 0 && msg.Index < len(s.devices) {
			s.selected = msg.Index
			s.log.Info("device selected", "index", msg.Index, "device", s.devices[msg.Index])
		}
	}
	return s
}
