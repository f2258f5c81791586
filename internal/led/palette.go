package led

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

const (
	// Namespace is the blob namespace the palette lives in
	Namespace = "cfg"
	keyPixels = "rgb_px"

	colorMask    = 0xFFFFFF
	defaultColor = 0xFFFFFF
)

// Palette holds the persisted per-pixel colours, 24-bit RGB
type Palette struct {
	mu    sync.RWMutex
	blobs config.BlobStore
	log   zerolog.Logger
	px    [config.NumButtons]uint32
}

// OpenPalette loads the palette from blobs. A missing or wrong-sized blob gives all white.
// A nil blobs keeps the palette in memory.
func OpenPalette(blobs config.BlobStore) *Palette {
	p := &Palette{blobs: blobs, log: log.With().Str("component", "rgb").Logger()}
	for i := range p.px {
		p.px[i] = defaultColor
	}
	if blobs == nil {
		return p
	}

	data, err := blobs.GetBlob(keyPixels)
	if err != nil || len(data) != len(p.px)*4 {
		p.log.Info().Msg("no saved per-pixel colors, defaults")
		return p
	}
	for i := range p.px {
		p.px[i] = binary.LittleEndian.Uint32(data[i*4:]) & colorMask
	}
	p.log.Info().Int("n", len(p.px)).Msg("loaded per-pixel colors")
	return p
}

// Colors returns a copy of every pixel colour
func (p *Palette) Colors() [config.NumButtons]uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.px
}

// Set changes one pixel, the index is clamped
func (p *Palette) Set(i int, rgb uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.px[config.Clamp(i, 0, len(p.px)-1)] = rgb & colorMask
	p.save()
}

// SetAll replaces the leading pixels with colors. Extra entries are ignored.
func (p *Palette) SetAll(colors []uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < len(colors) && i < len(p.px); i++ {
		p.px[i] = colors[i] & colorMask
	}
	p.save()
}

func (p *Palette) save() {
	if p.blobs == nil {
		return
	}
	data := make([]byte, len(p.px)*4)
	for i, c := range p.px {
		binary.LittleEndian.PutUint32(data[i*4:], c)
	}
	err := p.blobs.SetBlob(keyPixels, data)
	if err == nil {
		err = p.blobs.Commit()
	}
	if err != nil {
		p.log.Error().Err(err).Msg("save per-pixel colors failed")
	}
}

// FormatHex renders a colour as #rrggbb
func FormatHex(rgb uint32) string {
	return fmt.Sprintf("#%06x", rgb&colorMask)
}

// ParseHex accepts #rrggbb or rrggbb
func ParseHex(s string) (uint32, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return 0, fmt.Errorf("%w: color %q is not #rrggbb", config.ErrValidation, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: color %q is not #rrggbb", config.ErrValidation, s)
	}
	return uint32(v), nil
}
