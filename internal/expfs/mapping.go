package expfs

import (
	"math"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

const (
	curveGamma = 1.0
	// minSpan is the smallest calibration span treated as calibrated
	minSpan = 8
)

var curve = buildCurve(curveGamma)

func buildCurve(gamma float64) [128]uint8 {
	var lut [128]uint8
	for i := range lut {
		y := math.Pow(float64(i)/127, gamma)
		lut[i] = uint8(config.Clamp(int(math.Round(y*127)), 0, 127))
	}
	lut[0], lut[127] = 0, 127
	return lut
}

// outputRange returns the value range an exp action sends: b..c for CC, a..b for PC
func outputRange(a config.Action) (v1, v2 int) {
	switch a.Type {
	case config.ActionCC:
		return int(a.B), int(a.C)
	case config.ActionPC:
		return int(a.A), int(a.B)
	}
	return 0, 127
}

// MapValue converts a filtered reading into the value the port sends.
// A raw equal to CalMin maps to the end of the output range and CalMax to its start.
func MapValue(p *config.ExpFsPort, raw int) uint8 {
	lo, hi := int(p.CalMin), int(p.CalMax)
	span := hi - lo
	if span > -minSpan && span < minSpan {
		return 0
	}

	r := config.Clamp(raw, min(lo, hi), max(lo, hi))
	norm := config.Clamp((r-lo)*127/span, 0, 127)
	norm = 127 - int(curve[norm])

	v1, v2 := outputRange(p.ExpAction)
	var out int
	if v2 >= v1 {
		out = v1 + norm*(v2-v1)/127
	} else {
		out = v1 - norm*(v1-v2)/127
	}
	return uint8(config.Clamp(out, 0, 127))
}
