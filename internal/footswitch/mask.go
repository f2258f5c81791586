package footswitch

import "github.com/PixPMusic/gopher-footswitch/internal/config"

// mask is a set of footswitch indices
type mask uint8

func bit(i int) mask { return 1 << uint(i) }

func (m mask) has(i int) bool { return m&bit(i) != 0 }

func (m mask) without(i int) mask { return m &^ bit(i) }

// levels holds the switch levels read once per tick
type levels [config.NumButtons]bool

// anyDown reports whether a button of m is held
func (m mask) anyDown(l *levels) bool {
	for i := range l {
		if m.has(i) && l[i] {
			return true
		}
	}
	return false
}

// allDown reports whether every button of m is held
func (m mask) allDown(l *levels) bool {
	for i := range l {
		if m.has(i) && !l[i] {
			return false
		}
	}
	return m != 0
}

// held returns the set of held buttons
func (l *levels) held() mask {
	var m mask
	for i, down := range l {
		if down {
			m |= bit(i)
		}
	}
	return m
}

// chord is a two-button bank navigation combo
type chord struct {
	pair mask
	step int
}

var chords = [...]chord{
	{bit(4) | bit(5), -1},
	{bit(6) | bit(7), +1},
}

// navCandidates are the buttons whose press is deferred until it is clear no chord follows
const navCandidates = mask(0xF0)
