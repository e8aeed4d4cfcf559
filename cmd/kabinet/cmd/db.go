package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/server"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the development server database",
}

var dbFlags struct {
	path    string
	analyze bool
}

var dbCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Reclaim unused space in the database",
	Long: `Run VACUUM (and optionally ANALYZE) on the development server database.
Stop the server first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbFlags.path
		if path == "" {
			path = os.Getenv("KABINET_SERVER_DB_PATH")
		}
		if path == "" || path == ":memory:" {
			return fmt.Errorf("--db must name a database file")
		}

		report, err := server.CompactDatabase(cmd.Context(), path, dbFlags.analyze, logger)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Database size before: %.2f MB\n", megabytes(report.SizeBefore))
		fmt.Fprintf(w, "Database size after:  %.2f MB\n", megabytes(report.SizeAfter))
		reclaimed := report.SizeBefore - report.SizeAfter
		var pct float64
		if report.SizeBefore > 0 {
			pct = float64(reclaimed) / float64(report.SizeBefore) * 100
		}
		fmt.Fprintf(w, "Space reclaimed:      %.2f MB (%.1f%%)\n", megabytes(reclaimed), pct)

		fmt.Fprintln(w, "\nTable Statistics:")
		for _, name := range server.Tables() {
			fmt.Fprintf(w, "  %-20s %d rows\n", name+":", report.RowCounts[name])
		}
		return nil
	},
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCompactCmd)

	f := dbCompactCmd.Flags()
	f.StringVar(&dbFlags.path, "db", "", "SQLite database path (env KABINET_SERVER_DB_PATH)")
	f.BoolVar(&dbFlags.analyze, "analyze", false, "Run ANALYZE after VACUUM")
}
