// Package cli holds the footswitchd commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PixPMusic/gopher-footswitch/internal/logging"
)

var (
	cfgFile  string
	settings Settings
	closeLog = func() error { return nil }

	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "footswitchd",
	Short: "MIDI foot controller daemon",
	Long: `Runs the 8-button MIDI foot controller: bank navigation, press modes,
the two exp/fs jacks and the JSON configuration API.

Examples:
  footswitchd serve --sim                      # Simulated surface, API on :8080
  footswitchd serve --uart /dev/ttyUSB0        # MIDI out over a serial DIN adapter
  footswitchd dump --bank 2                    # Print the stored layout and bank 2
  footswitchd ports                            # List OS MIDI output ports`,
	Version:           "0.4.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "settings file (default footswitch.yaml in the data dir or working dir)")
	pf.String("data-dir", "./data", "directory holding the persisted configuration")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("log-file", "", "also append logs to this file")

	v.SetEnvPrefix("FOOTSWITCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func setup(cmd *cobra.Command, args []string) error {
	// Flags() holds the command's own flags plus the inherited persistent ones
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	if err := readConfigFile(v, cfgFile); err != nil {
		return err
	}
	s, err := loadSettings(v)
	if err != nil {
		return err
	}
	settings = s

	closeFn, err := logging.Setup(afero.NewOsFs(), s.LogLevel, s.LogFile)
	if err != nil {
		return err
	}
	closeLog = closeFn
	return nil
}

// readConfigFile reads an explicit settings file, or an optional footswitch.yaml
func readConfigFile(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("footswitch")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data-dir"))
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read settings: %w", err)
	}
	return nil
}
