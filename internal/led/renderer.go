// Package led renders the footswitch indicator states onto the RGB strip.
package led

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

const (
	// RefreshPeriod is how often the whole frame is re-sent
	RefreshPeriod = time.Second
	maxOutPercent = 90
)

// Pixel is one strip pixel in wire order
type Pixel struct {
	G, R, B uint8
}

// Frame is a full strip, one pixel per footswitch
type Frame [config.NumButtons]Pixel

// FrameSink pushes a frame to the strip
type FrameSink interface {
	WriteFrame(f Frame) error
}

var gamma = buildGamma(2.2)

func buildGamma(g float64) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		v := math.Round(math.Pow(float64(i)/255, g) * 255)
		lut[i] = uint8(config.Clamp(int(v), 0, 255))
	}
	return lut
}

// outPercent maps the UI brightness onto the output cap
func outPercent(ui uint8) uint8 {
	return uint8((int(ui)*maxOutPercent + 50) / 100)
}

func scale(c uint32, out uint8) uint8 {
	return uint8(int(gamma[c&0xFF]) * int(out) / 100)
}

// Renderer implements hw.LEDs on a FrameSink, colouring each lit pixel from the palette
type Renderer struct {
	mu   sync.Mutex
	sink FrameSink
	pal  *Palette
	log  zerolog.Logger

	on  [config.NumButtons]bool
	ui  uint8
	out uint8
}

// NewRenderer clears the strip and returns a renderer at full UI brightness
func NewRenderer(sink FrameSink, pal *Palette) *Renderer {
	r := &Renderer{
		sink: sink,
		pal:  pal,
		log:  log.With().Str("component", "rgbled").Logger(),
		ui:   100,
		out:  maxOutPercent,
	}
	r.mu.Lock()
	r.flush()
	r.mu.Unlock()
	return r
}

// Render computes the frame for the current state
func (r *Renderer) Render() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render()
}

func (r *Renderer) render() Frame {
	var f Frame
	colors := r.pal.Colors()
	for i, lit := range r.on {
		if !lit {
			continue
		}
		c := colors[i]
		f[i] = Pixel{R: scale(c>>16, r.out), G: scale(c>>8, r.out), B: scale(c, r.out)}
	}
	return f
}

func (r *Renderer) flush() {
	if err := r.sink.WriteFrame(r.render()); err != nil {
		r.log.Warn().Err(err).Msg("strip refresh failed")
	}
}

func (r *Renderer) SetPixelOn(i int, on bool) {
	if i < 0 || i >= len(r.on) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.on[i] == on {
		return
	}
	r.on[i] = on
	r.flush()
}

func (r *Renderer) SetBrightness(percent uint8) {
	percent = min(percent, 100)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ui == percent {
		return
	}
	r.ui = percent
	r.out = outPercent(percent)
	r.flush()
}

// Brightness returns the UI brightness last set
func (r *Renderer) Brightness() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ui
}

// Colors returns the palette
func (r *Renderer) Colors() [config.NumButtons]uint32 {
	return r.pal.Colors()
}

// SetColor stores one palette entry and re-renders
func (r *Renderer) SetColor(i int, rgb uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pal.Set(i, rgb)
	r.flush()
}

// SetColors stores the leading palette entries and re-renders
func (r *Renderer) SetColors(colors []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pal.SetAll(colors)
	r.flush()
}

// Refresh re-sends the frame unless another update holds the strip
func (r *Renderer) Refresh() bool {
	if !r.mu.TryLock() {
		return false
	}
	defer r.mu.Unlock()
	r.flush()
	return true
}

// Run refreshes every RefreshPeriod until ctx is done
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(RefreshPeriod)
	defer ticker.Stop()
	r.log.Info().Int("leds", len(r.on)).Dur("refresh", RefreshPeriod).Msg("ws2812 renderer started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh()
		}
	}
}

// FrameRecorder is a FrameSink that keeps the last frame, used by the simulator and tests
type FrameRecorder struct {
	mu     sync.Mutex
	last   Frame
	writes int
	err    error
}

func (s *FrameRecorder) WriteFrame(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.last = f
	s.writes++
	return nil
}

// Fail makes later writes return err, nil restores them
func (s *FrameRecorder) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *FrameRecorder) Last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *FrameRecorder) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
