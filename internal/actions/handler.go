package actions

import "github.com/PixPMusic/gopher-footswitch/internal/config"

// ActionHandler sends the MIDI output of one action type
type ActionHandler interface {
	// Execute sends whatever a decides for the behavior and event, possibly nothing
	Execute(a config.Action, beh config.CCBehavior, ev Event)
}

// ccHandler applies the CC behaviors
type ccHandler struct {
	d *Dispatcher
}

func (h *ccHandler) Execute(a config.Action, beh config.CCBehavior, ev Event) {
	switch beh {
	case config.CCToggle:
		if ev != Trigger {
			return
		}
		if h.d.toggles == nil {
			// no table: behave like Normal
			h.d.SendCC(a.Channel, a.A, a.B)
			return
		}
		if h.d.toggles.Flip(a.Channel, a.A) {
			h.d.SendCC(a.Channel, a.A, a.B)
		} else {
			h.d.SendCC(a.Channel, a.A, offValue)
		}
	case config.CCMomentary:
		switch ev {
		case Down:
			h.d.SendCC(a.Channel, a.A, a.B)
		case Up:
			h.d.SendCC(a.Channel, a.A, offValue)
		}
	default:
		if ev == Trigger {
			h.d.SendCC(a.Channel, a.A, a.B)
		}
	}
}

// pcHandler ignores the behavior, program changes only fire on Trigger
type pcHandler struct {
	d *Dispatcher
}

func (h *pcHandler) Execute(a config.Action, _ config.CCBehavior, ev Event) {
	if ev == Trigger {
		h.d.SendPC(a.Channel, a.A)
	}
}
