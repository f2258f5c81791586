package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Wrap maps v into [0, max). A non-positive max yields 0.
func Wrap(v, max int) int {
	if max <= 0 {
		return 0
	}
	r := v % max
	if r < 0 {
		r += max
	}
	return r
}

// DefaultAction is the empty slot value: no message, channel 1
func DefaultAction() Action {
	return Action{Type: ActionNone, Channel: 1}
}

// DefaultExpAction is the expression output used until a port is configured
func DefaultExpAction() Action {
	return Action{Type: ActionCC, Channel: 1, A: 0, B: 0, C: 100}
}

func defaultMapping() ButtonMapping {
	m := ButtonMapping{PressMode: PressShort, CCBehavior: CCNormal}
	for i := range m.Short {
		m.Short[i] = DefaultAction()
		m.Long[i] = DefaultAction()
	}
	return m
}

// Defaults returns the first-boot configuration
func Defaults() *Config {
	cfg := &Config{BankCount: 1}
	for b := range cfg.Banks {
		bank := &cfg.Banks[b]
		bank.Name = fmt.Sprintf("Bank %d", b+1)
		for k := range bank.Buttons {
			bank.SwitchNames[k] = fmt.Sprintf("SW %d", k+1)
			bank.Buttons[k] = defaultMapping()
		}
	}
	return cfg
}

// DefaultExpFsPort returns the factory setup of one jack
func DefaultExpFsPort() ExpFsPort {
	return ExpFsPort{
		Kind:      PortSingleSwitch,
		ExpAction: DefaultExpAction(),
		CalMin:    0,
		CalMax:    ADCMax,
		Tip:       defaultMapping(),
		Ring:      defaultMapping(),
	}
}

// Sanitize normalizes every field into its valid range. It is idempotent.
func Sanitize(cfg *Config) {
	for b := range cfg.Banks {
		bank := &cfg.Banks[b]
		bank.Name = truncateName(bank.Name)
		for k := range bank.Buttons {
			bank.SwitchNames[k] = truncateName(bank.SwitchNames[k])
			sanitizeMapping(&bank.Buttons[k], PressShortGroupLED)
		}
	}
	cfg.BankCount = Clamp(cfg.BankCount, 1, MaxBanks)
}

// SanitizeExpFsPort normalizes a jack configuration. GroupLed is not available on jacks.
func SanitizeExpFsPort(p *ExpFsPort) {
	if p.Kind > PortDualSwitch {
		p.Kind = PortDualSwitch
	}
	p.CalMin = uint16(Clamp(int(p.CalMin), 0, ADCMax))
	p.CalMax = uint16(Clamp(int(p.CalMax), 0, ADCMax))

	switch p.ExpAction.Type {
	case ActionCC:
		sanitizeAction(&p.ExpAction)
	case ActionPC:
		sanitizeAction(&p.ExpAction)
		p.ExpAction.C = 0
	default:
		p.ExpAction = DefaultExpAction()
	}

	for _, m := range []*ButtonMapping{&p.Tip, &p.Ring} {
		if m.PressMode == PressShortGroupLED {
			m.PressMode = PressShort
		}
		sanitizeMapping(m, PressToggle)
	}
}

func sanitizeMapping(m *ButtonMapping, maxMode PressMode) {
	for i := 0; i < MaxActions; i++ {
		sanitizeButtonAction(&m.Short[i])
		sanitizeButtonAction(&m.Long[i])
	}
	if m.PressMode == pressTapTempo {
		m.PressMode = PressShort
	}
	if m.PressMode > maxMode {
		m.PressMode = maxMode
	}
	if m.CCBehavior > CCMomentary {
		m.CCBehavior = CCMomentary
	}
}

// sanitizeButtonAction resets non CC/PC slots and drops the unused third parameter
func sanitizeButtonAction(a *Action) {
	if a.Type != ActionCC && a.Type != ActionPC {
		*a = DefaultAction()
	}
	sanitizeAction(a)
	a.C = 0
}

func sanitizeAction(a *Action) {
	a.Channel = uint8(Clamp(int(a.Channel), 1, 16))
	a.A = uint8(Clamp(int(a.A), 0, 127))
	a.B = uint8(Clamp(int(a.B), 0, 127))
	a.C = uint8(Clamp(int(a.C), 0, 127))
}

// truncateName cuts at the first NUL and keeps at most NameLen-1 bytes on a rune boundary
func truncateName(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) <= NameLen-1 {
		return s
	}
	s = s[:NameLen-1]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// setName stores src, or keeps fallback when src is empty
func setName(src, fallback string) string {
	if src == "" {
		src = fallback
	}
	return truncateName(src)
}
