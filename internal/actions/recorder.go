package actions

import (
	"fmt"
	"sync"
)

// Message is one send seen by a Recorder
type Message struct {
	PC      bool
	Channel uint8
	Data1   uint8
	Data2   uint8
}

func (m Message) String() string {
	if m.PC {
		return fmt.Sprintf("PC ch%d %d", m.Channel, m.Data1)
	}
	return fmt.Sprintf("CC ch%d %d=%d", m.Channel, m.Data1, m.Data2)
}

// Recorder is an always-ready Transport that keeps what it was sent.
// The simulator uses it as its MIDI output.
type Recorder struct {
	mu       sync.Mutex
	name     string
	msgs     []Message
	limit    int
	onSend   func(Message)
	notReady bool
}

// NewRecorder keeps at most limit messages, 0 keeps all
func NewRecorder(name string, limit int) *Recorder {
	return &Recorder{name: name, limit: limit}
}

// OnSend registers fn to observe every message
func (r *Recorder) OnSend(fn func(Message)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSend = fn
}

// SetReady switches the transport on or off
func (r *Recorder) SetReady(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notReady = !ready
}

func (r *Recorder) Name() string { return r.name }

func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.notReady
}

func (r *Recorder) SendCC(ch, cc, val uint8) error {
	r.record(Message{Channel: ch, Data1: cc, Data2: val})
	return nil
}

func (r *Recorder) SendPC(ch, prog uint8) error {
	r.record(Message{PC: true, Channel: ch, Data1: prog})
	return nil
}

func (r *Recorder) record(m Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	if r.limit > 0 && len(r.msgs) > r.limit {
		r.msgs = r.msgs[len(r.msgs)-r.limit:]
	}
	fn := r.onSend
	r.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Take returns the recorded messages and forgets them
func (r *Recorder) Take() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}
