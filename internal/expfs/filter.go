package expfs

import "github.com/PixPMusic/gopher-footswitch/internal/config"

// iirShift sets the smoothing of the exponential filter, each sample moves it 1/2^iirShift of the way
const iirShift = 1

// filter is a median-of-3 followed by a first-order IIR
type filter struct {
	hist   [3]int
	idx    int
	value  int
	primed bool
}

func median3(a, b, c int) int {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return b
}

// add feeds one raw sample and returns the filtered value
func (f *filter) add(raw int) int {
	if !f.primed {
		f.hist = [3]int{raw, raw, raw}
		f.value = raw
		f.primed = true
		return f.value
	}
	f.hist[f.idx] = raw
	f.idx = (f.idx + 1) % len(f.hist)

	med := median3(f.hist[0], f.hist[1], f.hist[2])
	f.value += (med - f.value) >> iirShift
	f.value = config.Clamp(f.value, 0, config.ADCMax)
	return f.value
}
