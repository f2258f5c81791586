// Package expfs runs the two exp/fs jacks as expression pedals or extra footswitches.
package expfs

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

// Config is the part of the config store the engine uses
type Config interface {
	ExpFs(port int) config.ExpFsPort
	SetExpFsCalibration(port int, which config.CalPoint, raw int) config.ExpFsPort
}

// Output fires switch mappings and sends raw exp values, actions.Dispatcher implements it
type Output interface {
	press.Runner
	SendCC(ch, cc, val uint8) int
	SendPC(ch, prog uint8) int
}

type portState struct {
	kind       config.PortKind
	configured bool

	filter   filter
	gate     gate
	lastRaw  int
	filtered int

	tip, ring     press.Contact
	tipAB, ringAB press.Bit
}

type Engine struct {
	mu    sync.Mutex
	cfg   Config
	out   Output
	ports hw.Ports
	log   zerolog.Logger

	nowMs int64
	state [config.PortCount]portState
}

func New(cfg Config, out Output, ports hw.Ports) *Engine {
	return &Engine{
		cfg:   cfg,
		out:   out,
		ports: ports,
		log:   log.With().Str("component", "expfs").Logger(),
	}
}

// Run polls every press.TickMs until ctx is done
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(press.TickMs * time.Millisecond)
	defer ticker.Stop()
	e.log.Info().Int("ports", config.PortCount).Msg("exp/fs engine started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick advances engine time by one period and services both jacks
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nowMs += press.TickMs
	for port := range e.state {
		p := e.cfg.ExpFs(port)
		e.configure(port, p.Kind)
		if p.Kind == config.PortExp {
			e.tickExp(port, &p)
		} else {
			e.tickSwitches(port, &p)
		}
	}
}

// configure switches a jack's pin personality when its kind changed, starting it from scratch
func (e *Engine) configure(port int, kind config.PortKind) {
	st := &e.state[port]
	if st.configured && st.kind == kind {
		return
	}
	e.ports.Configure(port, kind)
	*st = portState{kind: kind, configured: true, gate: newGate()}
	if kind != config.PortExp {
		st.tip.Ignore(e.ports.TipPressed(port))
		st.ring.Ignore(e.ports.RingPressed(port))
	}
	e.log.Info().Int("port", port).Stringer("kind", kind).Msg("port configured")
}

func (e *Engine) tickExp(port int, p *config.ExpFsPort) {
	st := &e.state[port]
	if raw, err := e.ports.ReadADC(port); err == nil {
		st.lastRaw = config.Clamp(raw, 0, config.ADCMax)
	}
	st.filtered = st.filter.add(st.lastRaw)
	mapped := MapValue(p, st.filtered)

	if !st.gate.offer(int(mapped), e.nowMs) {
		return
	}
	a := p.ExpAction
	switch a.Type {
	case config.ActionCC:
		e.out.SendCC(a.Channel, a.A, mapped)
	case config.ActionPC:
		e.out.SendPC(a.Channel, mapped)
	}
}

func (e *Engine) tickSwitches(port int, p *config.ExpFsPort) {
	st := &e.state[port]
	st.tip.Step(e.ports.TipPressed(port), &p.Tip, &st.tipAB, e.out)
	if p.Kind == config.PortDualSwitch {
		st.ring.Step(e.ports.RingPressed(port), &p.Ring, &st.ringAB, e.out)
	}
}

func clampPort(port int) int {
	return config.Clamp(port, 0, config.PortCount-1)
}

// Filtered returns the current filtered reading of a jack
func (e *Engine) Filtered(port int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state[clampPort(port)].filtered
}

// LastRaw returns the last successful converter reading of a jack
func (e *Engine) LastRaw(port int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state[clampPort(port)].lastRaw
}

// SaveCalibration stores the current filtered reading as one end of a jack's calibration.
// It returns the stored reading and the updated port.
func (e *Engine) SaveCalibration(port int, which config.CalPoint) (int, config.ExpFsPort) {
	port = clampPort(port)
	raw := e.Filtered(port)
	p := e.cfg.SetExpFsCalibration(port, which, raw)
	e.log.Info().Int("port", port).Int("raw", raw).Msg("calibration saved")
	return raw, p
}
