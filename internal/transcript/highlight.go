package transcript

// Highlights is the set of word keys the user has marked. Keys are compared
// by text, so every occurrence of a word shares one highlight.
//
// A fresh set is created at each session boundary; callers must not keep a
// set across sessions.
type Highlights struct {
	keys map[string]struct{}
}

// NewHighlights returns an empty set.
func NewHighlights() Highlights {
	return Highlights{keys: make(map[string]struct{})}
}

// Toggle flips membership of key.
func (h *Highlights) Toggle(key string) {
	if h.keys == nil {
		h.keys = make(map[string]struct{})
	}
	if _, ok := h.keys[key]; ok {
		delete(h.keys, key)
		return
	}
	h.keys[key] = struct{}{}
}

// Has reports whether key is highlighted.
func (h Highlights) Has(key string) bool {
	_, ok := h.keys[key]
	return ok
}

// Len returns the number of highlighted keys.
func (h Highlights) Len() int {
	return len(h.keys)
}
