package hw

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
)

func TestSimSwitchesAndPorts(t *testing.T) {
	s := NewSim()
	s.SetSwitch(3, true)
	s.SetSwitch(-1, true)
	assert.True(t, s.Pressed(3))
	assert.True(t, s.Pressed(7), "index wraps")
	assert.False(t, s.Pressed(8))

	assert.Equal(t, config.PortSingleSwitch, s.Kind(0))
	s.Configure(1, config.PortExp)
	assert.Equal(t, config.PortExp, s.Kind(1))
	assert.Equal(t, 1, s.Configured())

	s.SetTip(0, true)
	s.SetRing(9, true)
	assert.True(t, s.TipPressed(0))
	assert.True(t, s.RingPressed(1), "port clamps")

	s.SetADC(0, 5000)
	raw, err := s.ReadADC(0)
	require.NoError(t, err)
	assert.Equal(t, config.ADCMax, raw)

	s.FailADC(0, true)
	_, err = s.ReadADC(0)
	assert.ErrorIs(t, err, ErrNoADC)
}

func TestSimLEDs(t *testing.T) {
	s := NewSim()
	other := NewSim()
	var leds LEDs = Fanout{s, other}

	leds.SetPixelOn(2, true)
	leds.SetPixelOn(12, true)
	leds.SetBrightness(140)

	assert.True(t, s.LEDs()[2])
	assert.True(t, other.LEDs()[2])
	assert.Equal(t, uint8(100), other.Brightness())
}

func TestSimConcurrentAccess(t *testing.T) {
	s := NewSim()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				s.SetSwitch(i, n%2 == 0)
				s.SetADC(i%2, n)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				_ = s.Pressed(i)
				_, _ = s.ReadADC(i % 2)
			}
		}(i)
	}
	wg.Wait()
}
