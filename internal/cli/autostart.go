package cli

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PixPMusic/gopher-footswitch/internal/startup"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Start footswitchd serve at login",
	Long: `Register footswitchd serve as a per-user login service: a systemd user
unit on Linux, a LaunchAgent on macOS or a Run key entry on Windows.

Examples:
  footswitchd autostart enable -- --uart /dev/ttyUSB0 --sim=false
  footswitchd autostart status
  footswitchd autostart disable`,
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable [-- serve flags]",
	Short: "Register the login service",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := startup.NewInstaller()
		if err != nil {
			return err
		}
		serveArgs, err := autostartArgs(settings.DataDir, cfgFile, args)
		if err != nil {
			return err
		}
		if err := in.Enable(serveArgs...); err != nil {
			return err
		}
		log.Info().Str("path", in.Path()).Strs("args", serveArgs).Msg("autostart enabled")
		return nil
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the login service",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := startup.NewInstaller()
		if err != nil {
			return err
		}
		if err := in.Disable(); err != nil {
			return err
		}
		log.Info().Msg("autostart disabled")
		return nil
	},
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the login service is registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := startup.NewInstaller()
		if err != nil {
			return err
		}
		state := "disabled"
		if in.IsEnabled() {
			state = "enabled"
		}
		fmt.Fprintln(cmd.OutOrStdout(), state)
		return nil
	},
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
	rootCmd.AddCommand(autostartCmd)
}

// autostartArgs pins the data dir and settings file to absolute paths, the login
// service does not start in the current working directory.
func autostartArgs(dataDir, configFile string, extra []string) ([]string, error) {
	dir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	args := []string{"--data-dir", dir}
	if configFile != "" {
		file, err := filepath.Abs(configFile)
		if err != nil {
			return nil, fmt.Errorf("resolve config: %w", err)
		}
		args = append(args, "--config", file)
	}
	return append(args, extra...), nil
}
