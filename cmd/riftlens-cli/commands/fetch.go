package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"riftlens-backend/lib/serviceutil"
	"riftlens-backend/lib/sqliteutil"
	"riftlens-backend/services/summoner"
	"riftlens-backend/services/summoner/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchSource *string
var fetchRiotApi *bool
var fetchJson *bool
var fetchDb *string

func init() {
	fetchSource = fetchCmd.Flags().String("source", "all", "The source to fetch from, or \"all\" for the failover chain.")
	fetchRiotApi = fetchCmd.Flags().Bool("riot-api", false, "Try the riot api before the scraped sources.")
	fetchJson = fetchCmd.Flags().Bool("json", false, "Print the raw profile json instead of tables.")
	fetchDb = fetchCmd.Flags().String("db", "riftlens.db", "The database to record profiles and failures in.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <region> <name#tag> [--source <source>] [--riot-api] [--json]",
	Short: "Fetches, scores and prints a player profile.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "incorrect number of arguments")
			os.Exit(1)
		}
		identity := parseIdentity(args[0], args[1])
		identity.PreferredSource = *fetchSource
		identity.AllowRiotAPI = *fetchRiotApi

		database, err := sqliteutil.OpenDB(db.Schema, *fetchDb)
		if err != nil {
			serviceutil.Fatal("open db", err)
		}
		defer database.Close()

		service, err := summoner.NewService(summoner.ServiceOptions{
			Orchestrator: summoner.NewOrchestrator(summoner.OrchestratorOptions{
				Clients: buildClients(),
			}),
			DB: database,
		})
		if err != nil {
			serviceutil.Fatal("init service", err)
		}
		defer service.Close()

		profile, err := service.Fetch(cmd.Context(), identity)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		if *fetchJson {
			out, err := json.MarshalIndent(profile, "", "  ")
			if err != nil {
				serviceutil.Fatal("marshal profile", err)
			}
			fmt.Println(string(out))
			return
		}
		renderProfile(profile)
	},
}

func renderProfile(profile summoner.Profile) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Summoner", "Region", "Level", "OP Score", "Source"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%s#%s", profile.Summoner.Name, profile.Summoner.TagLine),
		profile.Summoner.Region,
		profile.Summoner.Level,
		profile.OPScore,
		profile.DataSource,
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(profile.Ranked) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Queue", "Tier", "LP", "Record", "Win Rate"})
		for _, entry := range profile.Ranked {
			t.AppendRow(table.Row{
				entry.QueueType,
				strings.TrimSpace(entry.Tier + " " + entry.Rank),
				entry.LeaguePoints,
				fmt.Sprintf("%dW %dL", entry.Wins, entry.Losses),
				fmt.Sprintf("%.0f%%", entry.WinRate()*100),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if len(profile.ChampionStats) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Champion", "Games", "Win Rate", "KDA"})
		for _, champion := range profile.ChampionStats {
			t.AppendRow(table.Row{
				champion.Champion,
				champion.Games,
				fmt.Sprintf("%.0f%%", champion.WinRate*100),
				fmt.Sprintf("%.2f", champion.KDA),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if len(profile.Insights) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Insight", "Detail"})
		for _, insight := range profile.Insights {
			t.AppendRow(table.Row{insight.Title, insight.Description})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if len(profile.FailedSources) > 0 {
		fmt.Printf("failed sources: %s\n", strings.Join(profile.FailedSources, ", "))
	}
}
