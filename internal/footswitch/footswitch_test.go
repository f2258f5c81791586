package footswitch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/gopher-footswitch/internal/actions"
	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/hw"
)

type countingLEDs struct {
	pixels     int
	brightness []uint8
}

func (c *countingLEDs) SetPixelOn(int, bool) { c.pixels++ }
func (c *countingLEDs) SetBrightness(p uint8) { c.brightness = append(c.brightness, p) }

func (c *countingLEDs) take() int {
	n := c.pixels
	c.pixels = 0
	return n
}

func (c *countingLEDs) lastBrightness() uint8 { return c.brightness[len(c.brightness)-1] }

type rig struct {
	t     *testing.T
	store *config.Store
	sim   *hw.Sim
	rec   *actions.Recorder
	leds  *countingLEDs
	eng   *Engine
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	store := config.Open(nil)
	require.NoError(t, store.SetLayout([]byte(`{"bankCount":3,"banks":[{},{},{}]}`)))
	sim := hw.NewSim()
	rec := actions.NewRecorder("rec", 0)
	leds := &countingLEDs{}
	d := actions.NewDispatcher(actions.NewToggleTable(), rec)
	return &rig{
		t:     t,
		store: store,
		sim:   sim,
		rec:   rec,
		leds:  leds,
		eng:   New(store, d, sim, hw.Fanout{sim, leds}, opts...),
	}
}

// button maps bank/btn with a single CC per list: short sends cc, long sends cc+1
func (r *rig) button(bank, btn int, mode config.PressMode, beh config.CCBehavior, cc int, extra string) {
	r.t.Helper()
	doc := fmt.Sprintf(`{"pressMode":%d,"ccBehavior":%d%s,"short":[{"type":"cc","ch":1,"a":%d,"b":127}],"long":[{"type":"cc","ch":1,"a":%d,"b":100}]}`,
		mode, beh, extra, cc, cc+1)
	require.NoError(r.t, r.store.SetButton(bank, btn, []byte(doc)))
}

func (r *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		r.eng.Tick()
	}
}

func (r *rig) set(pressed bool, btns ...int) {
	for _, b := range btns {
		r.sim.SetSwitch(b, pressed)
	}
	r.eng.Tick()
}

func (r *rig) press(btns ...int)   { r.set(true, btns...) }
func (r *rig) release(btns ...int) { r.set(false, btns...) }

func (r *rig) sent() []actions.Message { return r.rec.Take() }

func cc(a, v uint8) actions.Message { return actions.Message{Channel: 1, Data1: a, Data2: v} }

func TestShortFiresAtRelease(t *testing.T) {
	r := newRig(t)
	r.button(0, 0, config.PressShort, config.CCNormal, 10, "")

	r.press(0)
	r.ticks(29)
	assert.Empty(t, r.sent())
	r.release(0)
	assert.Equal(t, []actions.Message{cc(10, 127)}, r.sent())
	r.ticks(5)
	assert.Empty(t, r.sent())
}

func TestShortLongFiresLongWhileHeld(t *testing.T) {
	r := newRig(t)
	r.button(0, 1, config.PressShortLong, config.CCNormal, 20, "")

	r.press(1)
	r.ticks(38)
	assert.Empty(t, r.sent())
	r.ticks(1)
	assert.Equal(t, []actions.Message{cc(21, 100)}, r.sent(), "long at 400ms")
	r.ticks(10)
	r.release(1)
	assert.Empty(t, r.sent())

	r.press(1)
	r.ticks(19)
	r.release(1)
	assert.Equal(t, []actions.Message{cc(20, 127)}, r.sent())
}

func TestToggleCyclesRestoreState(t *testing.T) {
	r := newRig(t)
	r.button(0, 2, config.PressToggle, config.CCNormal, 30, "")

	r.press(2)
	r.release(2)
	assert.True(t, r.eng.ABState(0, 2))
	r.press(2)
	r.release(2)
	assert.False(t, r.eng.ABState(0, 2))
	assert.Equal(t, []actions.Message{cc(30, 127), cc(31, 100)}, r.sent())
}

func TestComboChangesBankOnceAndLocks(t *testing.T) {
	r := newRig(t)
	r.store.SetCurrentBank(2)
	for b := 0; b < 3; b++ {
		r.button(b, 4, config.PressShort, config.CCNormal, 40+b, "")
		r.button(b, 5, config.PressShort, config.CCNormal, 50+b, "")
	}

	r.press(4, 5)
	assert.Equal(t, 1, r.store.CurrentBank())
	assert.True(t, r.eng.Locked())

	r.ticks(60)
	r.release(4)
	r.press(4)
	r.ticks(5)
	assert.Equal(t, 1, r.store.CurrentBank(), "the chord fires once")
	assert.True(t, r.eng.Locked())

	r.release(4, 5)
	assert.False(t, r.eng.Locked())
	assert.Empty(t, r.sent(), "no mapped action fires for a chord")

	r.press(4)
	r.release(4)
	assert.Equal(t, []actions.Message{cc(41, 127)}, r.sent(), "bank 1 mapping after the lock")
}

func TestComboWithStaggeredPress(t *testing.T) {
	r := newRig(t)
	r.button(0, 6, config.PressShort, config.CCNormal, 60, "")
	r.button(0, 7, config.PressShort, config.CCNormal, 70, "")

	r.press(6)
	r.ticks(10)
	r.press(7)
	assert.Equal(t, 1, r.store.CurrentBank())
	r.release(6)
	r.release(7)
	assert.Empty(t, r.sent())

	// bank 1 to 2 to 0 wraps
	r.press(6, 7)
	r.release(6, 7)
	r.press(6, 7)
	r.release(6, 7)
	assert.Equal(t, 0, r.store.CurrentBank())
}

func TestLockFreezesOtherButtons(t *testing.T) {
	r := newRig(t)
	r.button(1, 0, config.PressShort, config.CCNormal, 1, "")
	r.button(1, 3, config.PressShort, config.CCNormal, 3, "")

	r.press(6, 7)
	r.press(3)
	r.release(3)
	r.release(6, 7)
	assert.Empty(t, r.sent(), "presses during the lock are inert")

	r.press(3)
	r.release(3)
	assert.Equal(t, []actions.Message{cc(3, 127)}, r.sent())
}

func TestButtonHeldThroughLockStaysSuppressed(t *testing.T) {
	r := newRig(t)
	r.button(0, 0, config.PressShort, config.CCNormal, 1, "")
	r.button(1, 0, config.PressShort, config.CCNormal, 2, "")
	r.button(0, 5, config.PressShort, config.CCNormal, 5, "")
	r.button(1, 5, config.PressShort, config.CCNormal, 6, "")

	r.press(0)
	r.press(5)
	r.press(6, 7)
	r.release(6, 7)
	r.ticks(3)
	r.release(0)
	assert.Empty(t, r.sent(), "the held normal button stays inert")
	r.release(5)
	assert.Equal(t, []actions.Message{cc(6, 127)}, r.sent(), "the pending candidate fires the new bank's mapping")

	r.press(0)
	r.release(0)
	assert.Equal(t, []actions.Message{cc(2, 127)}, r.sent())
}

func TestNavCandidateDefersToRelease(t *testing.T) {
	r := newRig(t)
	r.button(0, 6, config.PressShortGroupLED, config.CCNormal, 60, "")
	r.button(0, 7, config.PressShortLong, config.CCNormal, 70, "")

	r.press(6)
	r.ticks(3)
	assert.Empty(t, r.sent(), "group on a candidate waits for release")
	r.release(6)
	assert.Equal(t, []actions.Message{cc(60, 127)}, r.sent())
	assert.Equal(t, 6, r.eng.Group(0))

	r.press(7)
	r.ticks(45)
	assert.Empty(t, r.sent(), "no long while held")
	r.release(7)
	assert.Equal(t, []actions.Message{cc(71, 100)}, r.sent())

	r.press(7)
	r.ticks(5)
	r.release(7)
	assert.Equal(t, []actions.Message{cc(70, 127)}, r.sent())
}

func TestDeferredMomentaryPulses(t *testing.T) {
	r := newRig(t)
	r.button(0, 4, config.PressShort, config.CCMomentary, 44, "")

	r.press(4)
	r.ticks(10)
	assert.Empty(t, r.sent())
	r.release(4)
	assert.Equal(t, []actions.Message{cc(44, 127), cc(44, 0)}, r.sent())
}

func TestMomentaryOnNormalButton(t *testing.T) {
	r := newRig(t)
	r.button(0, 0, config.PressShort, config.CCMomentary, 9, "")

	r.press(0)
	assert.Equal(t, []actions.Message{cc(9, 127)}, r.sent())
	r.release(0)
	assert.Equal(t, []actions.Message{cc(9, 0)}, r.sent())
}

func TestGroupLedSelection(t *testing.T) {
	r := newRig(t)
	r.button(0, 0, config.PressShortGroupLED, config.CCNormal, 1, "")
	r.button(0, 1, config.PressShortGroupLED, config.CCNormal, 2, "")

	r.ticks(1)
	leds := r.sim.LEDs()
	assert.False(t, leds[0])
	assert.False(t, leds[1])
	assert.True(t, leds[2], "guide light")

	r.press(0)
	assert.Equal(t, []actions.Message{cc(1, 127)}, r.sent(), "group fires on press")
	assert.False(t, r.sim.LEDs()[0], "dark while pressed")
	r.release(0)
	assert.True(t, r.sim.LEDs()[0])

	r.press(1)
	r.release(1)
	leds = r.sim.LEDs()
	assert.False(t, leds[0])
	assert.True(t, leds[1])
	assert.Equal(t, 1, r.eng.Group(0))
}

func TestToggleLedFollowsSelector(t *testing.T) {
	r := newRig(t)
	r.button(0, 2, config.PressToggle, config.CCNormal, 1, `,"abLed":1`)
	r.button(0, 3, config.PressToggle, config.CCNormal, 2, `,"abLed":0`)

	r.ticks(1)
	assert.False(t, r.sim.LEDs()[2], "A state, B lights")
	assert.True(t, r.sim.LEDs()[3], "A state, A lights")

	r.press(2, 3)
	assert.False(t, r.sim.LEDs()[2])
	assert.False(t, r.sim.LEDs()[3])
	r.release(2, 3)
	assert.True(t, r.sim.LEDs()[2])
	assert.False(t, r.sim.LEDs()[3])
}

func TestLedWritesOnlyChanges(t *testing.T) {
	r := newRig(t)
	r.ticks(1)
	assert.Equal(t, config.NumButtons, r.leds.take())
	r.ticks(10)
	assert.Equal(t, 0, r.leds.take())
	r.press(0)
	assert.Equal(t, 1, r.leds.take())
	assert.False(t, r.sim.LEDs()[0])
}

func TestBrightnessPushedOnChange(t *testing.T) {
	r := newRig(t)
	r.ticks(3)
	assert.Equal(t, []uint8{100}, r.leds.brightness)

	r.store.SetLEDBrightness(40)
	r.ticks(3)
	assert.Equal(t, uint8(40), r.leds.lastBrightness())
	assert.Equal(t, uint8(40), r.sim.Brightness())
	assert.Len(t, r.leds.brightness, 2)
}

func TestWithoutDynamicState(t *testing.T) {
	r := newRig(t, WithoutDynamicState())
	r.button(0, 0, config.PressToggle, config.CCNormal, 10, "")
	r.button(0, 1, config.PressShortGroupLED, config.CCNormal, 20, "")

	for i := 0; i < 2; i++ {
		r.press(0)
		r.release(0)
	}
	assert.Equal(t, []actions.Message{cc(10, 127), cc(10, 127)}, r.sent())

	r.press(1)
	r.release(1)
	assert.Equal(t, -1, r.eng.Group(0))
	assert.False(t, r.sim.LEDs()[1])
}

func TestSetBankSuppressesHeldButtons(t *testing.T) {
	r := newRig(t)
	r.button(0, 0, config.PressShort, config.CCMomentary, 10, "")
	r.button(0, 1, config.PressShort, config.CCNormal, 11, "")

	r.press(0, 1)
	assert.Equal(t, []actions.Message{cc(10, 127)}, r.sent())

	assert.Equal(t, 2, r.eng.SetBank(5))
	assert.Equal(t, []actions.Message{cc(10, 0)}, r.sent(), "held momentary is released")
	r.release(0, 1)
	assert.Empty(t, r.sent())
	assert.Equal(t, 2, r.store.CurrentBank())
}

func TestRunStopsWithContext(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.eng.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.True(t, r.sim.LEDs()[0], "ticks ran")
}
