package actions

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

// Dispatcher fires action lists on every ready transport
type Dispatcher struct {
	transports []Transport
	toggles    *ToggleTable
	handlers   map[config.ActionType]ActionHandler
	log        zerolog.Logger
}

// NewDispatcher creates a dispatcher. A nil table makes CC toggles behave like Normal.
func NewDispatcher(table *ToggleTable, transports ...Transport) *Dispatcher {
	d := &Dispatcher{
		transports: transports,
		toggles:    table,
		log:        log.With().Str("component", "dispatch").Logger(),
	}
	d.handlers = map[config.ActionType]ActionHandler{
		config.ActionCC: &ccHandler{d: d},
		config.ActionPC: &pcHandler{d: d},
	}
	if table == nil {
		d.log.Warn().Msg("no toggle table, cc toggle degrades to normal")
	}
	return d
}

// Toggles returns the table shared with the engines, possibly nil
func (d *Dispatcher) Toggles() *ToggleTable {
	return d.toggles
}

// Ready reports whether at least one transport can send
func (d *Dispatcher) Ready() bool {
	for _, t := range d.transports {
		if t.Ready() {
			return true
		}
	}
	return false
}

// Run fires every non-empty entry of list for the event
func (d *Dispatcher) Run(list *config.ActionList, beh config.CCBehavior, ev Event) {
	if list == nil {
		return
	}
	if !d.Ready() {
		d.log.Debug().Stringer("event", ev).Msg("no transport ready, dropping")
		return
	}
	for _, a := range list {
		if a.Type == config.ActionNone {
			continue
		}
		handler, ok := d.handlers[a.Type]
		if !ok {
			continue
		}
		handler.Execute(a, beh, ev)
	}
}

// SendCC sends a control change to every ready transport and returns how many accepted it
func (d *Dispatcher) SendCC(ch, cc, val uint8) int {
	ch, cc, val = channel(ch), data7(cc), data7(val)
	sent := 0
	for _, t := range d.transports {
		if !t.Ready() {
			continue
		}
		if err := t.SendCC(ch, cc, val); err != nil {
			d.log.Debug().Err(err).Str("transport", t.Name()).Msg("cc send failed")
			continue
		}
		sent++
	}
	return sent
}

// SendPC sends a program change to every ready transport and returns how many accepted it
func (d *Dispatcher) SendPC(ch, prog uint8) int {
	ch, prog = channel(ch), data7(prog)
	sent := 0
	for _, t := range d.transports {
		if !t.Ready() {
			continue
		}
		if err := t.SendPC(ch, prog); err != nil {
			d.log.Debug().Err(err).Str("transport", t.Name()).Msg("pc send failed")
			continue
		}
		sent++
	}
	return sent
}

func channel(ch uint8) uint8 {
	return uint8(config.Clamp(int(ch), 1, 16))
}

func data7(v uint8) uint8 {
	if v > 127 {
		return 127
	}
	return v
}
