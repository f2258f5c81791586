package expfs

const (
	throttleMs = 20
	stableMs   = 10
	forceDelta = 1
)

// gate decides when a changed exp value goes out
type gate struct {
	lastSent     int // -1 until the first send
	lastSendMs   int64
	pending      int
	pendingSince int64
}

func newGate() gate {
	return gate{lastSent: -1, pending: -1}
}

// offer reports whether mapped should be sent at now and records the send
func (g *gate) offer(mapped int, now int64) bool {
	if mapped != g.pending {
		g.pending = mapped
		g.pendingSince = now
	}
	if mapped == g.lastSent {
		return false
	}

	diff := mapped - g.lastSent
	if diff < 0 {
		diff = -diff
	}
	stable := now-g.pendingSince >= stableMs
	throttled := now-g.lastSendMs >= throttleMs && diff >= forceDelta
	if g.lastSent >= 0 && !stable && !throttled {
		return false
	}

	g.lastSent = mapped
	g.lastSendMs = now
	return true
}
