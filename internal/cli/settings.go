package cli

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings are the process settings, from flags, FOOTSWITCH_* variables or the settings file
type Settings struct {
	Listen   string `mapstructure:"listen"`
	DataDir  string `mapstructure:"data-dir"`
	UART     string `mapstructure:"uart"`
	Display  string `mapstructure:"display"`
	MIDIOut  string `mapstructure:"midi-out"`
	USBVID   uint16 `mapstructure:"usb-vid"`
	USBPID   uint16 `mapstructure:"usb-pid"`
	Sim      bool   `mapstructure:"sim"`
	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
}

// bindFlags makes the parsed flags of a command the highest-priority settings source
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

func loadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if s.DataDir == "" {
		s.DataDir = "."
	}
	return s, nil
}
