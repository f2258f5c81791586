package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/kvstore"
)

var dumpBank int

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the stored configuration as JSON",
	Long: `Open the persisted configuration in the data dir and print the layout,
one bank with its eight button mappings, and both exp/fs jacks.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().IntVarP(&dumpBank, "bank", "b", 0, "bank to print (wrapped into the bank count)")
	rootCmd.AddCommand(dumpCmd)
}

type dumpDoc struct {
	Meta    config.MetaDoc     `json:"meta"`
	Layout  config.LayoutDoc   `json:"layout"`
	State   int                `json:"currentBank"`
	Bank    config.BankDoc     `json:"bank"`
	Buttons []config.ButtonDoc `json:"buttons"`
	ExpFs   []config.ExpFsDoc  `json:"expfs"`
}

func buildDump(store *config.Store, bank int) dumpDoc {
	doc := dumpDoc{
		Meta:   store.Meta(),
		Layout: store.Layout(),
		State:  store.CurrentBank(),
		Bank:   store.Bank(bank),
	}
	for k := 0; k < config.NumButtons; k++ {
		doc.Buttons = append(doc.Buttons, store.ButtonDoc(doc.Bank.Index, k))
	}
	for p := 0; p < config.PortCount; p++ {
		doc.ExpFs = append(doc.ExpFs, store.ExpFsDoc(p))
	}
	return doc
}

func runDump(cmd *cobra.Command, args []string) error {
	blobs, err := kvstore.NewOS(settings.DataDir, storeNamespace)
	if err != nil {
		return err
	}
	store := config.Open(blobs)
	if !store.Durable() {
		log.Warn().Str("dir", settings.DataDir).Msg("data dir is not writable, defaults were not saved")
	}

	data, err := json.MarshalIndent(buildDump(store, dumpBank), "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
