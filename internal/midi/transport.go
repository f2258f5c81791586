package midi

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
)

// ErrNotReady is returned by a transport that was closed or lost its device
var ErrNotReady = errors.New("midi: transport not ready")

// Transport sends channel messages to one MIDI destination.
// The first failed send marks it not ready until it is opened again.
type Transport struct {
	name   string
	mu     sync.Mutex
	send   func(midi.Message) error
	closer io.Closer
	ready  bool
	log    zerolog.Logger
}

func newTransport(name string, send func(midi.Message) error, closer io.Closer) *Transport {
	return &Transport{
		name:   name,
		send:   send,
		closer: closer,
		ready:  true,
		log:    log.With().Str("component", "midi").Str("transport", name).Logger(),
	}
}

// Framer turns a message into the bytes a stream expects
type Framer func(msg midi.Message) []byte

// RawBytes frames a message as plain MIDI bytes, as sent on a DIN/UART link
func RawBytes(msg midi.Message) []byte {
	return msg.Bytes()
}

// NewWriterTransport sends framed messages to w, one Write per message
func NewWriterTransport(name string, w io.WriteCloser, frame Framer) *Transport {
	send := func(msg midi.Message) error {
		_, err := w.Write(frame(msg))
		return err
	}
	return newTransport(name, send, w)
}

func (t *Transport) Name() string { return t.name }

func (t *Transport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func channelIndex(ch uint8) uint8 {
	switch {
	case ch < 1:
		return 0
	case ch > 16:
		return 15
	}
	return ch - 1
}

// SendCC sends a control change, ch is 1..16
func (t *Transport) SendCC(ch, cc, val uint8) error {
	return t.write(midi.ControlChange(channelIndex(ch), cc&0x7F, val&0x7F))
}

// SendPC sends a program change, ch is 1..16
func (t *Transport) SendPC(ch, prog uint8) error {
	return t.write(midi.ProgramChange(channelIndex(ch), prog&0x7F))
}

func (t *Transport) write(msg midi.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return ErrNotReady
	}
	if err := t.send(msg); err != nil {
		t.ready = false
		t.log.Warn().Err(err).Msg("send failed, transport down")
		return fmt.Errorf("%s: %w", t.name, err)
	}
	t.log.Debug().Stringer("msg", msg).Msg("sent")
	return nil
}

// Close releases the destination. Later sends return ErrNotReady.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = false
	c := t.closer
	t.closer = nil
	if c == nil {
		return nil
	}
	return c.Close()
}
