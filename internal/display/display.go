// Package display drives the serial status display with a one-line update protocol.
//
// Each update is "@U,<bank>,<bank name>,<sw1>,...,<sw8>\r\n" with the 0-based current bank.
package display

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

// Baud is the display link rate
const Baud = 115200

const (
	debounce = 60 * time.Millisecond
	settle   = 20 * time.Millisecond
)

// Source is the part of the config store a status line is built from
type Source interface {
	BankCount() int
	CurrentBank() int
	BankNames(bank int) (string, [config.NumButtons]string)
}

var fieldCleaner = strings.NewReplacer(",", " ", "\r", " ", "\n", " ")

// Message builds the status line for src. A nil src gives the placeholder line.
func Message(src Source) string {
	if src == nil {
		return "@U,0" + strings.Repeat(",NA", config.NumButtons) + "\r\n"
	}
	bank := src.CurrentBank()
	if bank < 0 || bank >= src.BankCount() {
		bank = 0
	}
	name, switches := src.BankNames(bank)

	var b strings.Builder
	b.WriteString("@U,")
	b.WriteString(strconv.Itoa(bank))
	b.WriteByte(',')
	b.WriteString(fieldCleaner.Replace(name))
	for _, sw := range switches {
		b.WriteByte(',')
		b.WriteString(fieldCleaner.Replace(sw))
	}
	b.WriteString("\r\n")
	return b.String()
}

// Refresher coalesces refresh requests into status line writes
type Refresher struct {
	w      io.Writer
	src    Source
	reqs   chan struct{}
	wait   time.Duration
	settle time.Duration
	log    zerolog.Logger
}

// NewRefresher returns a refresher with one refresh already requested
func NewRefresher(w io.Writer, src Source) *Refresher {
	r := &Refresher{
		w:      w,
		src:    src,
		reqs:   make(chan struct{}, 1),
		wait:   debounce,
		settle: settle,
		log:    log.With().Str("component", "display").Logger(),
	}
	r.Request()
	return r
}

// Request asks for a refresh without blocking
func (r *Refresher) Request() {
	select {
	case r.reqs <- struct{}{}:
	default:
	}
}

// Watch requests a refresh for the changes the display shows. Pass it to config.Store.Subscribe.
func (r *Refresher) Watch(c config.Change) {
	switch c {
	case config.ChangeLayout, config.ChangeBank, config.ChangeState, config.ChangeButton:
		r.Request()
	}
}

// Run writes one status line per burst of requests until ctx is done
func (r *Refresher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.reqs:
		}
		if !sleep(ctx, r.wait) {
			return
		}
		for r.more() {
			if !sleep(ctx, r.settle) {
				return
			}
		}
		r.flush()
	}
}

func (r *Refresher) more() bool {
	select {
	case <-r.reqs:
		return true
	default:
		return false
	}
}

func (r *Refresher) flush() {
	msg := Message(r.src)
	n, err := io.WriteString(r.w, msg)
	if err != nil {
		r.log.Warn().Err(err).Msg("display write failed")
		return
	}
	r.log.Debug().Int("bytes", n).Msg("tx")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Open opens the display serial link at 115200 8N1
func Open(device string) (io.WriteCloser, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: Baud})
	if err != nil {
		return nil, fmt.Errorf("open display %s: %w", device, err)
	}
	log.Info().Str("component", "display").Str("device", device).Int("baud", Baud).Msg("display uart ready")
	return port, nil
}
