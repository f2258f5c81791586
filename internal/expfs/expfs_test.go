package expfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/gopher-footswitch/internal/actions"
	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/hw"
)

func TestMedian3(t *testing.T) {
	for _, c := range [][4]int{
		{1, 2, 3, 2}, {3, 2, 1, 2}, {2, 3, 1, 2}, {5, 5, 1, 5}, {9, 0, 9, 9},
	} {
		assert.Equal(t, c[3], median3(c[0], c[1], c[2]), c)
	}
}

func TestFilterRejectsSpikes(t *testing.T) {
	var f filter
	assert.Equal(t, 1000, f.add(1000), "first sample primes the history")
	assert.Equal(t, 1000, f.add(4000))
	assert.Equal(t, 1000, f.add(1000))
	assert.Equal(t, 1000, f.add(0))
}

func TestFilterConverges(t *testing.T) {
	var f filter
	f.add(0)
	got := []int{}
	for i := 0; i < 6; i++ {
		got = append(got, f.add(4095))
	}
	assert.Equal(t, []int{0, 2047, 3071, 3583, 3839, 3967}, got)
}

func TestCurveIsIdentity(t *testing.T) {
	for i, v := range curve {
		assert.Equal(t, uint8(i), v)
	}
}

func expPort(lo, hi uint16, a config.Action) *config.ExpFsPort {
	p := config.DefaultExpFsPort()
	p.Kind = config.PortExp
	p.CalMin, p.CalMax = lo, hi
	p.ExpAction = a
	return &p
}

func TestMapValue(t *testing.T) {
	full := config.Action{Type: config.ActionCC, Channel: 1, A: 11, B: 0, C: 127}
	p := expPort(0, 4095, full)
	assert.Equal(t, uint8(127), MapValue(p, 0))
	assert.Equal(t, uint8(0), MapValue(p, 4095))
	assert.InDelta(t, 63.5, float64(MapValue(p, 2048)), 0.5)

	narrow := expPort(1000, 3000, config.Action{Type: config.ActionCC, Channel: 1, B: 20, C: 80})
	assert.Equal(t, uint8(80), MapValue(narrow, 0), "below the span clamps to cal min")
	assert.Equal(t, uint8(20), MapValue(narrow, 4095))

	reversed := expPort(4095, 0, full)
	assert.Equal(t, uint8(127), MapValue(reversed, 4095))
	assert.Equal(t, uint8(0), MapValue(reversed, 0))

	falling := expPort(0, 4095, config.Action{Type: config.ActionCC, Channel: 1, B: 100, C: 10})
	assert.Equal(t, uint8(10), MapValue(falling, 0))
	assert.Equal(t, uint8(100), MapValue(falling, 4095))

	pc := expPort(0, 4095, config.Action{Type: config.ActionPC, Channel: 1, A: 5, B: 9})
	assert.Equal(t, uint8(9), MapValue(pc, 0))
	assert.Equal(t, uint8(5), MapValue(pc, 4095))

	assert.Equal(t, uint8(0), MapValue(expPort(2000, 2007, full), 0), "uncalibrated")
	assert.Equal(t, uint8(0), MapValue(expPort(2007, 2000, full), 4095), "uncalibrated")
}

func TestGate(t *testing.T) {
	g := newGate()
	assert.True(t, g.offer(50, 10), "first value always goes out")
	assert.False(t, g.offer(50, 20), "unchanged")
	assert.False(t, g.offer(51, 20), "neither stable nor throttle elapsed")
	assert.True(t, g.offer(51, 30), "stable for 10ms")
	assert.False(t, g.offer(52, 40))
	assert.True(t, g.offer(53, 50), "throttle window elapsed")
}

type rig struct {
	store *config.Store
	sim   *hw.Sim
	rec   *actions.Recorder
	eng   *Engine
}

func newRig(t *testing.T) *rig {
	t.Helper()
	store := config.Open(nil)
	sim := hw.NewSim()
	rec := actions.NewRecorder("rec", 0)
	d := actions.NewDispatcher(actions.NewToggleTable(), rec)
	return &rig{store: store, sim: sim, rec: rec, eng: New(store, d, sim)}
}

func (r *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		r.eng.Tick()
	}
}

func TestExpSendsOnFirstSampleThenOnChange(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.store.SetExpFs(0, []byte(`{"kind":"exp","calMin":0,"calMax":4095,"exp":{"cmd":[{"type":"cc","ch":2,"a":11,"b":0,"c":127}]}}`)))

	r.ticks(1)
	assert.Equal(t, config.PortExp, r.sim.Kind(0))
	assert.Equal(t, []actions.Message{{Channel: 2, Data1: 11, Data2: 127}}, r.rec.Take())

	r.ticks(20)
	assert.Empty(t, r.rec.Take(), "steady pedal stays quiet")

	r.sim.SetADC(0, 4095)
	r.ticks(30)
	msgs := r.rec.Take()
	require.NotEmpty(t, msgs)
	assert.LessOrEqual(t, len(msgs), 30)
	assert.Equal(t, actions.Message{Channel: 2, Data1: 11, Data2: 1}, msgs[len(msgs)-1])
	assert.Equal(t, 4094, r.eng.Filtered(0))
	assert.Equal(t, 4095, r.eng.LastRaw(0))
}

func TestExpProgramChange(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.store.SetExpFs(1, []byte(`{"kind":"exp","exp":{"cmd":[{"type":"pc","ch":3,"a":10,"b":20}]}}`)))
	r.ticks(1)
	assert.Equal(t, []actions.Message{{PC: true, Channel: 3, Data1: 20}}, r.rec.Take())
}

func TestFailedReadKeepsLastRaw(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.store.SetExpFs(0, []byte(`{"kind":"exp"}`)))
	r.sim.SetADC(0, 1000)
	r.ticks(1)
	r.sim.FailADC(0, true)
	r.sim.SetADC(0, 3000)
	r.ticks(5)
	assert.Equal(t, 1000, r.eng.LastRaw(0))
	assert.Equal(t, 1000, r.eng.Filtered(0))
}

func TestSaveCalibrationStoresFiltered(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.store.SetExpFs(0, []byte(`{"kind":"exp"}`)))
	r.sim.SetADC(0, 1234)
	r.ticks(3)

	raw, p := r.eng.SaveCalibration(0, config.CalMin)
	assert.Equal(t, 1234, raw)
	assert.Equal(t, uint16(1234), p.CalMin)
	assert.Equal(t, uint16(1234), r.store.ExpFs(0).CalMin)

	raw, _ = r.eng.SaveCalibration(7, config.CalMax)
	assert.Equal(t, 0, raw, "port 1 never sampled")
	assert.Equal(t, uint16(0), r.store.ExpFs(1).CalMax)
}

func TestSingleSwitchIgnoresRing(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.store.SetExpFs(0, []byte(`{"kind":"single",
		"tip":{"pressMode":0,"ccBehavior":0,"short":[{"type":"cc","ch":1,"a":1,"b":127}],"long":[]},
		"ring":{"pressMode":0,"ccBehavior":0,"short":[{"type":"cc","ch":1,"a":2,"b":127}],"long":[]}}`)))
	r.ticks(1)

	r.sim.SetTip(0, true)
	r.sim.SetRing(0, true)
	r.ticks(5)
	r.sim.SetTip(0, false)
	r.sim.SetRing(0, false)
	r.ticks(1)
	assert.Equal(t, []actions.Message{{Channel: 1, Data1: 1, Data2: 127}}, r.rec.Take())
}

func TestDualSwitchToggleAndShortLong(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.store.SetExpFs(1, []byte(`{"kind":"dual",
		"tip":{"pressMode":2,"ccBehavior":0,"short":[{"type":"cc","ch":1,"a":10,"b":127}],"long":[{"type":"cc","ch":1,"a":11,"b":127}]},
		"ring":{"pressMode":1,"ccBehavior":0,"short":[{"type":"cc","ch":1,"a":20,"b":127}],"long":[{"type":"cc","ch":1,"a":21,"b":127}]}}`)))
	r.ticks(1)

	for i := 0; i < 2; i++ {
		r.sim.SetTip(1, true)
		r.ticks(2)
		r.sim.SetTip(1, false)
		r.ticks(2)
	}
	assert.Equal(t, []actions.Message{
		{Channel: 1, Data1: 10, Data2: 127},
		{Channel: 1, Data1: 11, Data2: 127},
	}, r.rec.Take())

	r.sim.SetRing(1, true)
	r.ticks(45)
	r.sim.SetRing(1, false)
	r.ticks(1)
	assert.Equal(t, []actions.Message{{Channel: 1, Data1: 21, Data2: 127}}, r.rec.Take())
}

func TestKindChangeReconfiguresOnce(t *testing.T) {
	r := newRig(t)
	r.ticks(5)
	assert.Equal(t, 2, r.sim.Configured(), "both ports at start")

	require.NoError(t, r.store.SetExpFs(0, []byte(`{"kind":"exp"}`)))
	r.ticks(5)
	assert.Equal(t, 3, r.sim.Configured())
	assert.Equal(t, config.PortExp, r.sim.Kind(0))

	// a contact held while the port turns into a switch does not fire
	r.sim.SetTip(0, true)
	require.NoError(t, r.store.SetExpFs(0, []byte(`{"kind":"single","tip":{"pressMode":0,"ccBehavior":0,"short":[{"type":"cc","ch":1,"a":1,"b":1}],"long":[]}}`)))
	r.rec.Take()
	r.ticks(1)
	r.sim.SetTip(0, false)
	r.ticks(1)
	assert.Empty(t, r.rec.Take())
	assert.Equal(t, 4, r.sim.Configured())
}
