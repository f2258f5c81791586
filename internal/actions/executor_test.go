package actions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

func cc(ch, a, b uint8) config.Action {
	return config.Action{Type: config.ActionCC, Channel: ch, A: a, B: b, C: 99}
}

func list(as ...config.Action) *config.ActionList {
	var l config.ActionList
	for i := range l {
		l[i] = config.DefaultAction()
	}
	copy(l[:], as)
	return &l
}

func ccMsg(ch, a, b uint8) Message { return Message{Channel: ch, Data1: a, Data2: b} }

type failingTransport struct{ calls int }

func (f *failingTransport) Name() string { return "broken" }
func (f *failingTransport) Ready() bool { return true }
func (f *failingTransport) SendCC(ch, cc, val uint8) error {
	f.calls++
	return errors.New("tx overflow")
}
func (f *failingTransport) SendPC(ch, prog uint8) error {
	f.calls++
	return errors.New("tx overflow")
}

func TestNormalCCFiresOnTriggerOnly(t *testing.T) {
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(NewToggleTable(), rec)
	l := list(cc(1, 20, 127))

	d.Run(l, config.CCNormal, Down)
	d.Run(l, config.CCNormal, Up)
	assert.Empty(t, rec.Take())

	d.Run(l, config.CCNormal, Trigger)
	assert.Equal(t, []Message{ccMsg(1, 20, 127)}, rec.Take())
}

func TestToggleCCAlternatesPerPair(t *testing.T) {
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(NewToggleTable(), rec)
	seven := list(cc(1, 7, 100))
	other := list(cc(2, 7, 90))

	d.Run(seven, config.CCToggle, Trigger)
	d.Run(other, config.CCToggle, Trigger)
	d.Run(seven, config.CCToggle, Trigger)
	d.Run(seven, config.CCToggle, Down)

	assert.Equal(t, []Message{
		ccMsg(1, 7, 100),
		ccMsg(2, 7, 90),
		ccMsg(1, 7, 0),
	}, rec.Take())
	assert.True(t, d.Toggles().State(2, 7))
	assert.False(t, d.Toggles().State(1, 7))
}

func TestToggleWithoutTableBehavesNormal(t *testing.T) {
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(nil, rec)
	l := list(cc(1, 7, 100))

	d.Run(l, config.CCToggle, Trigger)
	d.Run(l, config.CCToggle, Trigger)
	assert.Equal(t, []Message{ccMsg(1, 7, 100), ccMsg(1, 7, 100)}, rec.Take())
}

func TestMomentaryCC(t *testing.T) {
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(NewToggleTable(), rec)
	l := list(cc(3, 64, 127))

	d.Run(l, config.CCMomentary, Trigger)
	d.Run(l, config.CCMomentary, Down)
	d.Run(l, config.CCMomentary, Up)
	assert.Equal(t, []Message{ccMsg(3, 64, 127), ccMsg(3, 64, 0)}, rec.Take())
}

func TestProgramChangeIgnoresBehavior(t *testing.T) {
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(NewToggleTable(), rec)
	l := list(config.Action{Type: config.ActionPC, Channel: 5, A: 12, B: 40})

	for _, beh := range []config.CCBehavior{config.CCNormal, config.CCToggle, config.CCMomentary} {
		d.Run(l, beh, Trigger)
		d.Run(l, beh, Down)
		d.Run(l, beh, Up)
	}
	pc := Message{PC: true, Channel: 5, Data1: 12}
	assert.Equal(t, []Message{pc, pc, pc}, rec.Take())
}

func TestRunSkipsNoneAndKeepsOrder(t *testing.T) {
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(NewToggleTable(), rec)
	var l config.ActionList
	l[0] = cc(1, 1, 1)
	l[3] = config.Action{Type: config.ActionPC, Channel: 1, A: 2}
	l[19] = cc(1, 3, 3)

	d.Run(&l, config.CCNormal, Trigger)
	assert.Equal(t, []Message{
		ccMsg(1, 1, 1),
		{PC: true, Channel: 1, Data1: 2},
		ccMsg(1, 3, 3),
	}, rec.Take())
}

func TestNoReadyTransportDropsSilently(t *testing.T) {
	rec := NewRecorder("rec", 0)
	rec.SetReady(false)
	table := NewToggleTable()
	d := NewDispatcher(table, rec)

	d.Run(list(cc(1, 7, 100)), config.CCToggle, Trigger)
	assert.Empty(t, rec.Messages())
	assert.False(t, table.State(1, 7), "dropped toggles do not flip")

	assert.Equal(t, 0, NewDispatcher(table).SendPC(1, 1))
}

func TestFanOutIgnoresFailures(t *testing.T) {
	bad := &failingTransport{}
	rec := NewRecorder("rec", 0)
	d := NewDispatcher(NewToggleTable(), bad, rec)

	assert.Equal(t, 1, d.SendCC(0, 200, 255))
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, []Message{ccMsg(1, 127, 127)}, rec.Take())

	assert.Equal(t, 1, d.SendPC(40, 5))
	assert.Equal(t, []Message{{PC: true, Channel: 16, Data1: 5}}, rec.Take())
}

func TestRecorderLimit(t *testing.T) {
	rec := NewRecorder("rec", 2)
	var seen int
	rec.OnSend(func(Message) { seen++ })
	for i := uint8(0); i < 5; i++ {
		_ = rec.SendCC(1, i, 0)
	}
	assert.Equal(t, 5, seen)
	assert.Equal(t, []Message{ccMsg(1, 3, 0), ccMsg(1, 4, 0)}, rec.Messages())
	assert.Equal(t, "CC ch1 3=0", rec.Messages()[0].String())
}
