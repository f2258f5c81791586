// Package actions turns button transitions into MIDI sends.
package actions

import "fmt"

// Event is the transition an action list is fired for
type Event uint8

const (
	// Trigger is a one-shot firing not tied to press/release symmetry
	Trigger Event = iota
	// Down and Up are the paired momentary events at press and release
	Down
	Up
)

func (e Event) String() string {
	switch e {
	case Trigger:
		return "trigger"
	case Down:
		return "down"
	case Up:
		return "up"
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

// Transport is one MIDI output. Channels are 1-based.
type Transport interface {
	Name() string
	Ready() bool
	SendCC(ch, cc, val uint8) error
	SendPC(ch, prog uint8) error
}

// offValue is sent for toggle-off and momentary release
const offValue = 0
