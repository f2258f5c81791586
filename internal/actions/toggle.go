package actions

import "sync"

const (
	numChannels    = 16
	numControllers = 128
)

// ToggleTable remembers the on/off state of every (channel, controller) pair.
// It is shared by both engines.
type ToggleTable struct {
	mu   sync.Mutex
	bits [numChannels * numControllers]bool
}

func NewToggleTable() *ToggleTable {
	return &ToggleTable{}
}

func toggleIndex(ch, cc uint8) int {
	if ch < 1 {
		ch = 1
	} else if ch > numChannels {
		ch = numChannels
	}
	return int(ch-1)*numControllers + int(cc&0x7F)
}

// Flip inverts the state of (ch, cc) and returns the new state
func (t *ToggleTable) Flip(ch, cc uint8) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := toggleIndex(ch, cc)
	t.bits[i] = !t.bits[i]
	return t.bits[i]
}

func (t *ToggleTable) State(ch, cc uint8) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bits[toggleIndex(ch, cc)]
}

// Reset clears every pair
func (t *ToggleTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bits = [numChannels * numControllers]bool{}
}
