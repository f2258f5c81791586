// Package midi provides the MIDI OUT transports: OS ports, UART and USB-MIDI class devices.
package midi

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

// Manager handles OS MIDI port discovery
type Manager struct {
	mu sync.RWMutex
}

// NewManager creates a new MIDI manager
func NewManager() *Manager {
	return &Manager{}
}

// Close cleans up the MIDI driver
func (m *Manager) Close() {
	midi.CloseDriver()
}

// ListOutPorts returns the names of available MIDI output ports
func (m *Manager) ListOutPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// Open returns a transport on the named output port.
// An exact name wins, otherwise the first port whose name contains name, ignoring case.
func (m *Manager) Open(name string) (*Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.findOutPort(name)
	if out == nil {
		return nil, fmt.Errorf("output port not found: %s", name)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	t := newTransport("port:"+out.String(), send, out)
	t.log.Info().Str("port", out.String()).Msg("MIDI port opened")
	return t, nil
}

func (m *Manager) findOutPort(name string) drivers.Out {
	outs := midi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	if i := matchPort(names, name); i >= 0 {
		return outs[i]
	}
	return nil
}

// matchPort returns the index of the port name to use for want, or -1
func matchPort(names []string, want string) int {
	if want == "" {
		return -1
	}
	for i, n := range names {
		if n == want {
			return i
		}
	}
	lw := strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lw) {
			return i
		}
	}
	return -1
}
