package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/cmd/facts/commands"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
)

var rootCmd = &cobra.Command{
	Use:   "facts",
	Short: "facts - coerce, store and query sourced facts about entities",
	Long: `facts - turn loosely formatted source values into typed, sourced,
timestamped observations.

Available commands:
  am      - Show and validate configuration ("I am")
  parse   - Parse one scalar text value
  coerce  - Coerce a value to a declared kind
  ix      - Ingest fragments from files and JSON APIs
  ax      - Query stored observations
  db      - Database statistics

Examples:
  facts parse "603,628 km²"
  facts coerce "UTC+2, UTC+3 (summer)" --kind utc_offset --list
  facts ix run --file fragments.yaml
  facts ax Ukraine population --at 2016-05-01`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if verbosity, _ := cmd.Flags().GetCount("verbose"); verbosity > 0 {
			level = logger.LevelName(verbosity)
		}
		if err := logger.Initialize(cfg.Log.JSON, level); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.ParseCmd)
	rootCmd.AddCommand(commands.CoerceCmd)
	rootCmd.AddCommand(commands.IxCmd)
	rootCmd.AddCommand(commands.AxCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
