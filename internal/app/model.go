package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/jwulff/livenotes/internal/devices"
	"github.com/jwulff/livenotes/internal/lookup"
	"github.com/jwulff/livenotes/internal/session"
	"github.com/jwulff/livenotes/internal/transcript"
	"github.com/jwulff/livenotes/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the root bubbletea model for the livenotes TUI.
type Model struct {
	session session.Controller
	devices devices.Selector
	keys    keyMap
	spinner spinner.Model
	log     *log.Logger

	// Word cursor, as an index into the word segments of the transcript.
	// follow keeps it on the newest word as text streams in.
	cursor int
	follow bool

	width  int
	height int

	errorMessage   string
	errorTransient bool

	// quitting is set when quit is pressed while teardown is running.
	quitting bool

	fetchCmd tea.Cmd
}

// New creates a Model around the session controller and device selector.
func New(ctrl session.Controller, sel devices.Selector, logger *log.Logger) Model {
	m := Model{
		session: ctrl,
		keys:    defaultKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(ui.SpinnerStyle),
		),
		log:    logger,
		follow: true,
	}
	m.devices, m.fetchCmd = sel.Fetch()
	return m
}

// Init fetches the device list and starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd, m.spinner.Tick)
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case devices.ListedMsg, devices.SelectedMsg:
		m.devices = m.devices.Update(msg)
		return m, nil

	case session.ConnOpenedMsg, session.TranscriptMsg, session.ConnClosedMsg,
		session.TeardownDoneMsg, lookup.ResultMsg:
		return m.updateSession(msg)

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// updateSession forwards msg to the controller and reacts to the outcome.
func (m Model) updateSession(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.session.Status()
	var cmd tea.Cmd
	m.session, cmd = m.session.Update(msg)
	m.syncCursor()

	after := m.session.Status()
	if m.quitting && after != session.Stopping {
		return m, tea.Quit
	}
	switch {
	case after == session.Failed && before != session.Failed:
		m.errorMessage = fmt.Sprintf("Connection failed: %v", m.session.Err())
		m.errorTransient = true
		return m, tea.Batch(cmd, clearTransientErrorCmd())

	case after == session.Ended && before == session.Stopping:
		if r := m.session.Report(); r != nil && !r.OK() {
			m.errorMessage = fmt.Sprintf("%d teardown step(s) failed, see log", len(r.Errors))
			m.errorTransient = true
			return m, tea.Batch(cmd, clearTransientErrorCmd())
		}
	}
	return m, cmd
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// Teardown is still exporting; quit once it reports back.
		// A second press quits without waiting.
		if m.session.Status() == session.Stopping && !m.quitting {
			m.quitting = true
			return m, nil
		}
		m.session.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.StartStop):
		var cmd tea.Cmd
		switch m.session.Status() {
		case session.Connecting, session.Listening:
			m.session, cmd = m.session.Stop()
		default:
			m.session, cmd = m.session.Start()
			m.cursor = 0
			m.follow = true
		}
		return m, cmd

	case key.Matches(msg, m.keys.Left):
		if m.cursor > 0 {
			m.cursor--
			m.follow = false
		}
		return m, nil

	case key.Matches(msg, m.keys.Right):
		words := m.wordCount()
		if m.cursor < words-1 {
			m.cursor++
		}
		m.follow = m.cursor >= words-1
		return m, nil

	case key.Matches(msg, m.keys.Highlight):
		word, ok := m.cursorWord()
		if !ok {
			return m, nil
		}
		var cmd tea.Cmd
		m.session, cmd = m.session.Toggle(word.Key)
		return m, cmd

	case key.Matches(msg, m.keys.Device):
		return m, m.devices.Next()
	}

	return m, nil
}

func (m Model) wordCount() int {
	return len(transcript.WordIndexes(m.session.Segments()))
}

// cursorWord returns the word segment under the cursor.
func (m Model) cursorWord() (transcript.Segment, bool) {
	segs := m.session.Segments()
	words := transcript.WordIndexes(segs)
	if m.cursor < 0 || m.cursor >= len(words) {
		return transcript.Segment{}, false
	}
	return segs[words[m.cursor]], true
}

// syncCursor keeps the cursor inside the current word list.
func (m *Model) syncCursor() {
	words := m.wordCount()
	switch {
	case words == 0:
		m.cursor = 0
	case m.follow || m.cursor >= words:
		m.cursor = words - 1
	}
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var top, bottom []string
	top = append(top, m.renderHeader())
	top = append(top, m.renderStatusBar())
	top = append(top, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	bottom = append(bottom, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if box := m.renderDefinition(); box != "" {
		bottom = append(bottom, box)
	}
	if report := m.renderReport(); report != "" {
		bottom = append(bottom, report)
	}
	if m.errorMessage != "" {
		bottom = append(bottom, m.renderErrorBar())
	}
	bottom = append(bottom, m.renderFooter())

	used := len(top)
	for _, b := range bottom {
		used += lipgloss.Height(b)
	}
	height := m.height - used
	if m.height == 0 {
		height = 20
	}
	height = max(3, height)

	sections := append(top, m.renderTranscriptPanel(m.width, height))
	sections = append(sections, bottom...)
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("LIVENOTES")

	var deviceInfo string
	if label := m.devices.SelectedLabel(); label != "" {
		deviceInfo = ui.DimStyle.Render(" - " + label)
	}
	return title + deviceInfo
}

func (m Model) renderStatusBar() string {
	switch m.session.Status() {
	case session.Connecting:
		return m.spinner.View() + ui.StatusStyle.Render(" CONNECTING")
	case session.Listening:
		elapsed := time.Since(m.session.StartedAt()).Truncate(time.Second)
		return ui.ListeningDotStyle.Render("● LISTENING") + ui.StatusStyle.Render("  "+formatElapsed(elapsed))
	case session.Stopping:
		if m.quitting {
			return m.spinner.View() + ui.StatusStyle.Render(" SAVING, will quit when done (q to quit now)")
		}
		return m.spinner.View() + ui.StatusStyle.Render(" SAVING")
	case session.Failed:
		return ui.FailedDotStyle.Render("✕ FAILED")
	case session.Ended:
		return ui.IdleDotStyle.Render("○ ENDED")
	default:
		return ui.IdleDotStyle.Render("○ IDLE")
	}
}

func formatElapsed(d time.Duration) string {
	d = max(0, d)
	mins := int(d / time.Minute)
	secs := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", mins, secs)
}

func (m Model) renderTranscriptPanel(width, height int) string {
	lines := []string{ui.PanelTitleStyle.Render("TRANSCRIPT")}
	contentHeight := height - 1

	if len(m.session.Segments()) == 0 {
		lines = append(lines, "")
		switch m.session.Status() {
		case session.Connecting:
			lines = append(lines, ui.DimStyle.Render("  Connecting to recognizer..."))
		case session.Listening:
			lines = append(lines, ui.DimStyle.Render("  Waiting for speech..."))
		default:
			lines = append(lines, ui.DimStyle.Render("  Press Space to start listening"))
		}
	} else {
		body, cursorLine := m.layoutTranscript(max(10, width-2))

		start := 0
		if len(body) > contentHeight {
			start = len(body) - contentHeight
		}
		if !m.follow && cursorLine < start {
			start = cursorLine
		}
		end := min(len(body), start+contentHeight)
		for _, l := range body[start:end] {
			lines = append(lines, "  "+l)
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// layoutTranscript wraps the segments to width, styling highlighted words
// and the cursor. It returns the lines and the index of the cursor's line.
func (m Model) layoutTranscript(width int) ([]string, int) {
	segs := m.session.Segments()
	cursorSeg := -1
	if words := transcript.WordIndexes(segs); m.cursor < len(words) {
		cursorSeg = words[m.cursor]
	}

	var (
		lines      []string
		cur        strings.Builder
		curWidth   int
		cursorLine int
	)
	flush := func() {
		lines = append(lines, strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curWidth = 0
	}

	for i, seg := range segs {
		if seg.Kind == transcript.Separator {
			text := seg.Text
			if strings.TrimSpace(text) == "" {
				if strings.Contains(text, "\n") {
					flush()
					continue
				}
				text = " "
			}
			if curWidth == 0 && text == " " {
				continue
			}
			w := lipgloss.Width(text)
			if curWidth+w > width {
				flush()
				if text == " " {
					continue
				}
			}
			cur.WriteString(text)
			curWidth += w
			continue
		}

		w := lipgloss.Width(seg.Text)
		if curWidth > 0 && curWidth+w > width {
			flush()
		}
		styled := seg.Text
		highlighted := m.session.IsHighlighted(seg.Key)
		switch {
		case i == cursorSeg && highlighted:
			styled = ui.CursorStyle.Inherit(ui.HighlightStyle).Render(seg.Text)
		case i == cursorSeg:
			styled = ui.CursorStyle.Render(seg.Text)
		case highlighted:
			styled = ui.HighlightStyle.Render(seg.Text)
		}
		if i == cursorSeg {
			cursorLine = len(lines)
		}
		cur.WriteString(styled)
		curWidth += w
	}
	if curWidth > 0 {
		flush()
	}
	return lines, cursorLine
}

func (m Model) renderDefinition() string {
	sel := m.session.Selection()
	if !sel.Active() {
		return ""
	}
	var body string
	if sel.State == lookup.Pending {
		body = m.spinner.View() + ui.DimStyle.Render(" looking up...")
	} else {
		body = sel.Definition
	}
	inner := max(10, m.width-4)
	text := ui.DefinitionWordStyle.Render(sel.Word) + ": " + body
	return ui.DefinitionBoxStyle.Width(inner).Render(text)
}

func (m Model) renderReport() string {
	r := m.session.Report()
	if r == nil {
		return ""
	}
	var parts []string
	if r.TranscriptPath != "" {
		parts = append(parts, ui.SavedStyle.Render("Transcript: ")+truncateToWidth(r.TranscriptPath, m.width/2))
	}
	switch {
	case r.NotesPath != "":
		parts = append(parts, ui.SavedStyle.Render("Notes: ")+truncateToWidth(r.NotesPath, m.width/2))
	case r.NotesSkipped:
		parts = append(parts, ui.DimStyle.Render("No notes returned"))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string
	startStop := "Start"
	switch m.session.Status() {
	case session.Connecting, session.Listening:
		startStop = "Stop"
	}
	parts = append(parts, ui.FooterKeyStyle.Render(m.keys.StartStop.Help().Key)+ui.FooterDescStyle.Render(" "+startStop))
	for _, b := range m.keys.footer() {
		h := b.Help()
		parts = append(parts, ui.FooterKeyStyle.Render(h.Key)+ui.FooterDescStyle.Render(" "+h.Desc))
	}
	return padRight(strings.Join(parts, "  "), m.width)
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width || width < 2 {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return "…" + string(runes[len(runes)-(width-1):])
	}
	return s
}
