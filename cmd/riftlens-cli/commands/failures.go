package commands

import (
	"fmt"
	"os"
	"time"

	"riftlens-backend/lib/serviceutil"
	"riftlens-backend/lib/sqliteutil"
	"riftlens-backend/services/summoner"
	"riftlens-backend/services/summoner/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var failuresDb *string
var failuresLimit *int

func init() {
	failuresDb = failuresCmd.Flags().String("db", "riftlens.db", "The database holding the failure audit.")
	failuresLimit = failuresCmd.Flags().Int("limit", 20, "Maximum rows to print, newest first.")
	rootCmd.AddCommand(failuresCmd)
}

var failuresCmd = &cobra.Command{
	Use:   "failures <region> <name#tag> [--db <path>] [--limit <n>]",
	Short: "Prints recent source failures recorded for a player.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "incorrect number of arguments")
			os.Exit(1)
		}
		identity := parseIdentity(args[0], args[1])

		database, err := sqliteutil.OpenDB(db.Schema, *failuresDb)
		if err != nil {
			serviceutil.Fatal("open db", err)
		}
		defer database.Close()

		failures, err := summoner.NewStore(database).ListFailures(cmd.Context(), identity, *failuresLimit)
		if err != nil {
			serviceutil.Fatal("list failures", err)
		}
		if len(failures) == 0 {
			fmt.Println("no recorded failures")
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"At", "Source", "Op", "Kind", "Attempt", "Detail"})
		for _, failure := range failures {
			t.AppendRow(table.Row{
				failure.At.Format(time.ANSIC),
				failure.Source,
				failure.Op,
				string(failure.Kind),
				failure.Attempt,
				failure.Detail,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
