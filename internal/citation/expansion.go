package citation

// Key identifies a citation within a rendered transcript.
type Key struct {
	MessageID string
	Position  int
}

// Expansion tracks which citations are shown in full.
// It is view state only: the zero value is ready to use and a transcript
// reload starts from a fresh Expansion.
type Expansion struct {
	open map[Key]bool
}

// Toggle flips the expansion state of a citation and returns the new state.
func (e *Expansion) Toggle(k Key) bool {
	if e.open == nil {
		e.open = make(map[Key]bool)
	}
	e.open[k] = !e.open[k]
	return e.open[k]
}

// Expanded reports whether a citation is shown in full.
func (e *Expansion) Expanded(k Key) bool {
	return e.open[k]
}

// Reset collapses every citation.
func (e *Expansion) Reset() {
	e.open = nil
}
