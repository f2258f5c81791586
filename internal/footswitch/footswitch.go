// Package footswitch runs the eight main footswitches of the active bank.
package footswitch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/hw"
	"github.com/PixPMusic/gopher-footswitch/internal/press"
)

// Config is the part of the config store the engine reads
type Config interface {
	Button(bank, btn int) config.ButtonMapping
	CurrentBank() int
	SetCurrentBank(n int) int
	LEDBrightness() uint8
	ABLedSelect(bank, btn int) uint8
}

const noGroup = -1

// dynamic holds the runtime A/B bits and group selection of every bank
type dynamic struct {
	ab    [config.MaxBanks][config.NumButtons]press.Bit
	group [config.MaxBanks]int
}

func newDynamic() *dynamic {
	d := &dynamic{}
	for b := range d.group {
		d.group[b] = noGroup
	}
	return d
}

type Option func(*Engine)

// WithoutDynamicState runs the engine with no A/B or group memory.
// Toggles always select A and group buttons never light.
func WithoutDynamicState() Option {
	return func(e *Engine) { e.dyn = nil }
}

// Engine polls the footswitches and fires their mappings
type Engine struct {
	mu   sync.Mutex
	cfg  Config
	run  press.Runner
	sw   hw.Switches
	leds hw.LEDs
	log  zerolog.Logger

	dyn      *dynamic
	contacts [config.NumButtons]press.Contact

	pending    mask
	locked     bool
	holdMask   mask
	suppressed mask

	ledOn      [config.NumButtons]bool
	ledsKnown  bool
	lastBright int
}

func New(cfg Config, run press.Runner, sw hw.Switches, leds hw.LEDs, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		run:        run,
		sw:         sw,
		leds:       leds,
		log:        log.With().Str("component", "footsw").Logger(),
		dyn:        newDynamic(),
		lastBright: -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.dyn == nil {
		e.log.Error().Msg("no dynamic state, toggle and group state won't persist")
	}
	return e
}

// Run polls every press.TickMs until ctx is done
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(press.TickMs * time.Millisecond)
	defer ticker.Stop()
	e.log.Info().Int("bank", e.cfg.CurrentBank()).Msg("footswitch engine started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// ab returns the toggle bit of a button, nil without dynamic state
func (e *Engine) ab(bank, btn int) press.AB {
	if e.dyn == nil {
		return nil
	}
	return &e.dyn.ab[bank][btn]
}

func (e *Engine) group(bank int) int {
	if e.dyn == nil {
		return noGroup
	}
	return e.dyn.group[bank]
}

func (e *Engine) setGroup(bank, btn int) {
	if e.dyn != nil {
		e.dyn.group[bank] = btn
	}
}

// ABState reports the runtime toggle bit of a button, true is B
func (e *Engine) ABState(bank, btn int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dyn == nil {
		return false
	}
	return bool(e.dyn.ab[config.Wrap(bank, config.MaxBanks)][config.Wrap(btn, config.NumButtons)])
}

// Group returns the selected group button of a bank, or -1
func (e *Engine) Group(bank int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.group(config.Wrap(bank, config.MaxBanks))
}

// Locked reports whether a navigation chord is still held
func (e *Engine) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

// SetBank switches to bank n (wrapped), persists it and returns the new bank.
// Buttons held across the switch are ignored until released.
func (e *Engine) SetBank(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var l levels
	e.read(&l)
	e.cancelHeld(e.cfg.CurrentBank(), &l)
	bank := e.cfg.SetCurrentBank(n)
	e.pending = 0
	e.suppressed |= l.held()
	e.log.Info().Int("bank", bank).Msg("bank selected")
	return bank
}

func (e *Engine) read(l *levels) {
	for i := range l {
		l[i] = e.sw.Pressed(i)
	}
}

// cancelHeld ends the presses of held buttons that already acted on press
func (e *Engine) cancelHeld(bank int, l *levels) {
	for i := range l {
		if l[i] && e.contacts[i].Down() && !navCandidates.has(i) && !e.suppressed.has(i) {
			m := e.cfg.Button(bank, i)
			e.contacts[i].Cancel(&m, e.run)
		}
	}
}

// Tick reads every switch once, runs the combo protocol and the per-button state
// machines, then renders the LEDs
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	var l levels
	e.read(&l)

	bank := e.combo(&l)
	e.pushBrightness()

	var maps [config.NumButtons]config.ButtonMapping
	for i := range maps {
		maps[i] = e.cfg.Button(bank, i)
	}

	for i := range l {
		down := l[i]
		c := &e.contacts[i]
		m := &maps[i]

		if e.locked {
			c.Sync(down)
			continue
		}
		if e.suppressed.has(i) {
			if !down {
				e.suppressed = e.suppressed.without(i)
			}
			c.Sync(down)
			continue
		}

		if navCandidates.has(i) {
			switch c.Track(down) {
			case press.Pressed:
				e.pending |= bit(i)
			case press.Released:
				if e.pending.has(i) {
					e.pending = e.pending.without(i)
					press.FireDeferred(m, c.HoldMs(), e.ab(bank, i), e.run)
					if m.PressMode == config.PressShortGroupLED {
						e.setGroup(bank, i)
					}
				}
			}
			continue
		}

		if c.Step(down, m, e.ab(bank, i), e.run) == press.Pressed && m.PressMode == config.PressShortGroupLED {
			e.setGroup(bank, i)
		}
	}

	e.render(bank, &l, &maps)
}

// combo runs the navigation chord protocol and returns the bank to process
func (e *Engine) combo(l *levels) int {
	bank := e.cfg.CurrentBank()

	if e.locked {
		if !e.holdMask.anyDown(l) {
			e.locked = false
			e.holdMask = 0
			// held buttons stay inert until released, pending candidates still fire on release
			e.suppressed |= l.held() &^ e.pending
			e.log.Debug().Msg("nav lock released")
		}
		return bank
	}

	for _, ch := range chords {
		if !ch.pair.allDown(l) {
			continue
		}
		e.cancelHeld(bank, l)
		bank = e.cfg.SetCurrentBank(bank + ch.step)
		e.locked = true
		e.holdMask = ch.pair
		e.pending &^= ch.pair
		e.log.Info().Int("bank", bank).Int("step", ch.step).Msg("bank combo")
		return bank
	}
	return bank
}

func (e *Engine) pushBrightness() {
	b := e.cfg.LEDBrightness()
	if b > 100 {
		b = 100
	}
	if int(b) != e.lastBright {
		e.lastBright = int(b)
		e.leds.SetBrightness(b)
	}
}

// render lights each button by its mode and writes only the pixels that changed
func (e *Engine) render(bank int, l *levels, maps *[config.NumButtons]config.ButtonMapping) {
	for i := range maps {
		down := l[i]
		var on bool
		switch maps[i].PressMode {
		case config.PressShortGroupLED:
			on = e.group(bank) == i && !down
		case config.PressToggle:
			st := e.ab(bank, i) != nil && e.ab(bank, i).Get()
			if e.cfg.ABLedSelect(bank, i) != 0 {
				on = st
			} else {
				on = !st
			}
			on = on && !down
		default:
			on = !down
		}

		if !e.ledsKnown || e.ledOn[i] != on {
			e.ledOn[i] = on
			e.leds.SetPixelOn(i, on)
		}
	}
	e.ledsKnown = true
}
