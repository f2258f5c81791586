package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PixPMusic/gopher-footswitch/internal/midi"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List OS MIDI output ports",
	Long: `Print the MIDI output ports the host offers. Any of the names, or a
case-insensitive part of one, can be passed to serve --midi-out.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	mgr := midi.NewManager()
	defer mgr.Close()

	names := mgr.ListOutPorts()
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No MIDI output ports found.")
		return nil
	}
	fmt.Fprintln(out, "MIDI output ports:")
	for i, name := range names {
		fmt.Fprintf(out, "  %d: %s\n", i, name)
	}
	return nil
}
