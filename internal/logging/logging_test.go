package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestSetupWritesFile(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	fs := afero.NewMemMapFs()
	closeLog, err := Setup(fs, "warn", "footswitch.log")
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "cfg").Msg("persist failed")
	require.NoError(t, closeLog())

	data, err := afero.ReadFile(fs, "footswitch.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "persist failed")
	assert.Contains(t, string(data), "component=cfg")
	assert.NotContains(t, string(data), "hidden")
	assert.NotContains(t, string(data), "\x1b[", "file copy has no colour")
}

func TestSetupConsoleOnly(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	closeLog, err := Setup(afero.NewMemMapFs(), "debug", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.NoError(t, closeLog())
}

func TestSetupBadPath(t *testing.T) {
	_, err := Setup(afero.NewReadOnlyFs(afero.NewMemMapFs()), "info", "x.log")
	assert.Error(t, err)
}
