package hw

import (
	"sync"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

type simPort struct {
	kind config.PortKind
	tip  bool
	ring bool
	adc  int
	// adcErr makes ReadADC fail
	adcErr bool
}

// Sim is an in-memory control surface. It is safe for use from the HTTP handlers
// and the engine goroutines at the same time.
type Sim struct {
	mu       sync.RWMutex
	switches [config.NumButtons]bool
	ports    [config.PortCount]simPort
	leds     [config.NumButtons]bool
	bright   uint8

	configured int
}

func NewSim() *Sim {
	s := &Sim{bright: 100}
	for i := range s.ports {
		s.ports[i].kind = config.PortSingleSwitch
	}
	return s
}

// SetSwitch presses or releases footswitch i
func (s *Sim) SetSwitch(i int, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switches[config.Wrap(i, config.NumButtons)] = pressed
}

func (s *Sim) Pressed(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= config.NumButtons {
		return false
	}
	return s.switches[i]
}

func port(p int) int {
	return config.Clamp(p, 0, config.PortCount-1)
}

// SetTip sets the tip contact of a jack
func (s *Sim) SetTip(p int, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port(p)].tip = pressed
}

// SetRing sets the ring contact of a jack
func (s *Sim) SetRing(p int, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port(p)].ring = pressed
}

// SetADC sets the converter reading of a jack, clamped to 0..4095
func (s *Sim) SetADC(p int, raw int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port(p)].adc = config.Clamp(raw, 0, config.ADCMax)
}

// FailADC makes reads of a jack fail until called with false
func (s *Sim) FailADC(p int, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port(p)].adcErr = fail
}

func (s *Sim) Configure(p int, kind config.PortKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port(p)].kind = kind
	s.configured++
}

// Kind returns the personality a jack was last configured for
func (s *Sim) Kind(p int) config.PortKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ports[port(p)].kind
}

// Configured counts Configure calls
func (s *Sim) Configured() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configured
}

func (s *Sim) TipPressed(p int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ports[port(p)].tip
}

func (s *Sim) RingPressed(p int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ports[port(p)].ring
}

func (s *Sim) ReadADC(p int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp := s.ports[port(p)]
	if sp.adcErr {
		return 0, ErrNoADC
	}
	return sp.adc, nil
}

func (s *Sim) SetPixelOn(i int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= 0 && i < config.NumButtons {
		s.leds[i] = on
	}
}

func (s *Sim) SetBrightness(percent uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if percent > 100 {
		percent = 100
	}
	s.bright = percent
}

// LEDs returns the indicator states
func (s *Sim) LEDs() [config.NumButtons]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leds
}

func (s *Sim) Brightness() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bright
}

// Fanout drives several LED drivers as one
type Fanout []LEDs

func (f Fanout) SetPixelOn(i int, on bool) {
	for _, l := range f {
		l.SetPixelOn(i, on)
	}
}

func (f Fanout) SetBrightness(percent uint8) {
	for _, l := range f {
		l.SetBrightness(percent)
	}
}
