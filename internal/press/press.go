// Package press implements the per-contact press modes shared by the footswitch and jack engines.
package press

import (
	"github.com/PixPMusic/gopher-footswitch/internal/actions"
	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

// TickMs is the polling period both engines run at
const TickMs = 10

// Runner fires an action list, actions.Dispatcher implements it
type Runner interface {
	Run(list *config.ActionList, beh config.CCBehavior, ev actions.Event)
}

// Edge is the level transition seen by a Step
type Edge uint8

const (
	NoEdge Edge = iota
	Pressed
	Released
)

// AB is the A/B toggle bit of a contact. A nil AB always selects A and never flips.
type AB interface {
	Get() bool
	Set(b bool)
}

// Bit is a standalone AB
type Bit bool

func (b *Bit) Get() bool  { return bool(*b) }
func (b *Bit) Set(v bool) { *b = Bit(v) }

func get(ab AB) bool {
	return ab != nil && ab.Get()
}

func set(ab AB, v bool) {
	if ab != nil {
		ab.Set(v)
	}
}

// selected returns the list a toggle fires for the given A/B bit
func selected(m *config.ButtonMapping, b bool) *config.ActionList {
	if b {
		return &m.Long
	}
	return &m.Short
}

// Contact tracks one switch contact across ticks
type Contact struct {
	down       bool
	holdMs     int
	longFired  bool
	pressedSel bool
	ignored    bool
}

// Down reports the last level seen
func (c *Contact) Down() bool { return c.down }

// HoldMs is the time the contact has been held, in ms
func (c *Contact) HoldMs() int { return c.holdMs }

// Sync records the level without running any edge logic
func (c *Contact) Sync(down bool) {
	c.down = down
	c.holdMs = 0
	c.longFired = false
}

// Ignore records the level like Sync. If the contact is held it stays inert until released.
func (c *Contact) Ignore(down bool) {
	c.Sync(down)
	c.ignored = down
}

// Track only measures the press without firing anything. It reports the edge.
func (c *Contact) Track(down bool) Edge {
	edge := edgeOf(c.down, down)
	switch {
	case edge == Pressed:
		c.holdMs = 0
		c.longFired = false
	case down:
		c.holdMs += TickMs
	}
	c.down = down
	return edge
}

func edgeOf(was, now bool) Edge {
	switch {
	case !was && now:
		return Pressed
	case was && !now:
		return Released
	}
	return NoEdge
}

// Step advances the contact by one tick and fires whatever m asks for.
// GroupLed fires its short list on press, the caller owns the group selection.
func (c *Contact) Step(down bool, m *config.ButtonMapping, ab AB, run Runner) Edge {
	if c.ignored {
		c.down = down
		c.ignored = down
		return NoEdge
	}
	edge := edgeOf(c.down, down)
	c.down = down

	if edge == Pressed {
		c.holdMs = 0
		c.longFired = false

		if m.CCBehavior == config.CCMomentary {
			list := &m.Short
			if m.PressMode == config.PressToggle {
				c.pressedSel = get(ab)
				list = selected(m, c.pressedSel)
			}
			run.Run(list, m.CCBehavior, actions.Down)
		}

		switch m.PressMode {
		case config.PressShortGroupLED:
			run.Run(&m.Short, m.CCBehavior, actions.Trigger)
		case config.PressToggle:
			st := get(ab)
			run.Run(selected(m, st), m.CCBehavior, actions.Trigger)
			set(ab, !st)
		}
	}

	if down {
		c.holdMs += TickMs
		if m.PressMode == config.PressShortLong && !c.longFired && c.holdMs >= config.LongPressMs {
			run.Run(&m.Long, m.CCBehavior, actions.Trigger)
			c.longFired = true
		}
	}

	if edge == Released {
		if m.CCBehavior == config.CCMomentary {
			list := &m.Short
			if m.PressMode == config.PressToggle {
				list = selected(m, c.pressedSel)
			}
			run.Run(list, m.CCBehavior, actions.Up)
		}

		switch m.PressMode {
		case config.PressShort:
			run.Run(&m.Short, m.CCBehavior, actions.Trigger)
		case config.PressShortLong:
			if !c.longFired && c.holdMs < config.LongPressMs {
				run.Run(&m.Short, m.CCBehavior, actions.Trigger)
			}
		}

		c.holdMs = 0
		c.longFired = false
	}
	return edge
}

// Cancel ends a held press without its release actions. A momentary Down that
// was already sent still gets its Up, so no controller is left on.
func (c *Contact) Cancel(m *config.ButtonMapping, run Runner) {
	if c.down && m.CCBehavior == config.CCMomentary {
		list := &m.Short
		if m.PressMode == config.PressToggle {
			list = selected(m, c.pressedSel)
		}
		run.Run(list, m.CCBehavior, actions.Up)
	}
	c.holdMs = 0
	c.longFired = false
}

// FireDeferred fires a press that was held back until release, deciding short or long from holdMs.
// A momentary mapping gets its Down and Up back to back around the trigger.
func FireDeferred(m *config.ButtonMapping, holdMs int, ab AB, run Runner) {
	momentary := m.CCBehavior == config.CCMomentary
	st := get(ab)

	pulse := &m.Short
	if m.PressMode == config.PressToggle {
		pulse = selected(m, st)
	}
	if momentary {
		run.Run(pulse, m.CCBehavior, actions.Down)
	}

	switch m.PressMode {
	case config.PressToggle:
		run.Run(selected(m, st), m.CCBehavior, actions.Trigger)
		set(ab, !st)
	case config.PressShortLong:
		if holdMs >= config.LongPressMs {
			run.Run(&m.Long, m.CCBehavior, actions.Trigger)
		} else {
			run.Run(&m.Short, m.CCBehavior, actions.Trigger)
		}
	default:
		run.Run(&m.Short, m.CCBehavior, actions.Trigger)
	}

	if momentary {
		run.Run(pulse, m.CCBehavior, actions.Up)
	}
}
