package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/db"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/store"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: glyphDB + " Manage the facts database",
	Long: glyphDB + ` db - Manage the facts database

Examples:
  facts db stats                   # Counts, date range and applied migrations
  facts db stats --entities        # Also list every stored entity`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return err
		}
		conn, st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		migrations, err := db.Applied(conn)
		if err != nil {
			return err
		}
		return runDbStats(cmd.Context(), cmd.OutOrStdout(), st, dbReport{
			path:       cfg.Database.Path,
			migrations: migrations,
			entities:   statsEntities,
			now:        time.Now(),
		})
	},
}

var statsEntities bool

func init() {
	dbStatsCmd.Flags().BoolVar(&statsEntities, "entities", false, "List stored entities")
	DbCmd.AddCommand(dbStatsCmd)
}

type dbReport struct {
	path       string
	migrations []string
	entities   bool
	now        time.Time
}

func runDbStats(ctx context.Context, w io.Writer, st *store.SQLStore, r dbReport) error {
	stats, err := st.Stats(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to query storage stats")
	}

	fmt.Fprintf(w, "%s Database Statistics\n", glyphDB)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(w, "Database Path:  %s\n", r.path)
	if info, err := os.Stat(r.path); err == nil {
		fmt.Fprintf(w, "Size:           %s\n", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintf(w, "Migrations:     %s\n", strings.Join(r.migrations, ", "))
	fmt.Fprintf(w, "Entities:       %s\n", humanize.Comma(int64(stats.Entities)))
	fmt.Fprintf(w, "Variables:      %s\n", humanize.Comma(int64(stats.Variables)))
	fmt.Fprintf(w, "Observations:   %s\n", humanize.Comma(int64(stats.Observations)))
	fmt.Fprintf(w, "Sources:        %s\n", humanize.Comma(int64(stats.Sources)))
	if !stats.Oldest.IsZero() {
		fmt.Fprintf(w, "Observed:       %s to %s\n", formatTime(stats.Oldest), formatTime(stats.Newest))
	}

	if !r.entities {
		return nil
	}
	list, err := st.ListEntities(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, e := range list {
		fmt.Fprintf(w, "  %-24s %-28s %6s obs, updated %s\n",
			e.Key, e.Title, humanize.Comma(int64(e.Observations)), humanize.RelTime(e.UpdatedAt, r.now, "ago", "from now"))
	}
	return nil
}
