// Package lookup resolves definitions for the most recently selected word.
package lookup

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/jwulff/livenotes/internal/apperr"
)

// NoDefinition is shown when a lookup fails or finds nothing.
const NoDefinition = "no definition available"

// State of a Selection.
type State int

const (
	Absent State = iota
	Pending
	Resolved
)

// Selection is the active word and its definition.
type Selection struct {
	Word       string
	Definition string
	State      State
}

// Active reports whether a word is selected.
func (s Selection) Active() bool {
	return s.State != Absent
}

// Resolve applies a lookup result. It returns the selection unchanged and
// false when the result is for a word other than the selected one.
func (s Selection) Resolve(msg ResultMsg) (Selection, bool) {
	if s.State == Absent || msg.Word != s.Word {
		return s, false
	}
	if msg.Err != nil || strings.TrimSpace(msg.Definition) == "" {
		return Selection{Word: s.Word, Definition: NoDefinition, State: Resolved}, true
	}
	return Selection{Word: s.Word, Definition: msg.Definition, State: Resolved}, true
}

// ResultMsg carries the outcome of a lookup request.
type ResultMsg struct {
	Word       string
	Definition string
	Err        error
}

// Definer is the external definition service.
type Definer interface {
	Define(ctx context.Context, word string) (string, error)
}

// Store persists definitions between runs.
type Store interface {
	CachedDefinition(word string) (string, bool, error)
	SaveDefinition(word, text string) error
}

// Lookup issues definition requests and remembers successful answers.
// Begin and Remember must be called from the update loop only.
type Lookup struct {
	definer Definer
	store   Store
	log     *log.Logger
	mem     map[string]string
}

// New creates a Lookup. store may be nil.
func New(definer Definer, store Store, logger *log.Logger) *Lookup {
	return &Lookup{
		definer: definer,
		store:   store,
		log:     logger,
		mem:     make(map[string]string),
	}
}

// Begin selects word. A cached definition resolves immediately; otherwise
// the selection is pending and the returned command performs the request.
func (l *Lookup) Begin(word string) (Selection, tea.Cmd) {
	if def, ok := l.mem[cacheKey(word)]; ok {
		return Selection{Word: word, Definition: def, State: Resolved}, nil
	}
	return Selection{Word: word, State: Pending}, l.requestCmd(word)
}

func (l *Lookup) requestCmd(word string) tea.Cmd {
	definer, store, logger := l.definer, l.store, l.log
	return func() tea.Msg {
		if store != nil {
			def, ok, err := store.CachedDefinition(cacheKey(word))
			if err != nil {
				logger.Warn("definition cache read failed", "word", word, "err", err)
			} else if ok {
				return ResultMsg{Word: word, Definition: def}
			}
		}

		def, err := definer.Define(context.Background(), word)
		if err != nil {
			err = apperr.E(apperr.ControlCall, "lookup.Define", err)
			if errors.Is(err, apperr.ErrNotFound) {
				logger.Debug("no definition", "word", word)
			} else {
				logger.Error("definition lookup failed", "word", word, "err", err)
			}
			return ResultMsg{Word: word, Err: err}
		}

		if strings.TrimSpace(def) == "" {
			logger.Debug("empty definition", "word", word)
			return ResultMsg{Word: word}
		}
		if store != nil {
			if err := store.SaveDefinition(cacheKey(word), def); err != nil {
				logger.Warn("definition cache write failed", "word", word, "err", err)
			}
		}
		return ResultMsg{Word: word, Definition: def}
	}
}

// Remember caches a successful result in memory. Failures are not cached so
// a later click retries.
func (l *Lookup) Remember(msg ResultMsg) {
	if msg.Err != nil || strings.TrimSpace(msg.Definition) == "" {
		return
	}
	l.mem[cacheKey(msg.Word)] = msg.Definition
}

func cacheKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
