// Package hw declares the peripheral contracts the engines poll and drive.
package hw

import (
	"errors"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

// ErrNoADC is returned by ReadADC when a port has no converter
var ErrNoADC = errors.New("hw: adc not available")

// Switches reads the main footswitch levels
type Switches interface {
	// Pressed reports whether footswitch i (0..7) is held down
	Pressed(i int) bool
}

// Ports drives the two exp/fs jacks
type Ports interface {
	// Configure sets the pin personality of a jack.
	// Exp drives tip as reference and samples ring. Switch kinds pull both pins up.
	Configure(port int, kind config.PortKind)
	TipPressed(port int) bool
	RingPressed(port int) bool
	// ReadADC samples the ring pin, 0..4095
	ReadADC(port int) (int, error)
}

// LEDs is the footswitch indicator driver
type LEDs interface {
	SetPixelOn(i int, on bool)
	// SetBrightness takes a UI percentage, 0..100
	SetBrightness(percent uint8)
}
