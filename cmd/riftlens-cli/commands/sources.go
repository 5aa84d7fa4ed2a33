package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"riftlens-backend/lib/retryutil"
	"riftlens-backend/services/summoner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	sourcesCmd.AddCommand(sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect the player data sources.",
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check <region> <name#tag>",
	Short: "Probes every source directly and reports health and latency.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "incorrect number of arguments")
			os.Exit(1)
		}
		identity := parseIdentity(args[0], args[1])
		clients := buildClients()

		type probe struct {
			name  string
			fetch func(ctx context.Context) *retryutil.SourceError
		}
		probes := []probe{
			{summoner.SourceOPGG, func(ctx context.Context) *retryutil.SourceError {
				_, serr := clients.OPGG.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				return serr
			}},
			{summoner.SourceUGG, func(ctx context.Context) *retryutil.SourceError {
				_, serr := clients.UGG.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				return serr
			}},
			{summoner.SourceLeagueOfGraphs, func(ctx context.Context) *retryutil.SourceError {
				_, serr := clients.LeagueOfGraphs.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				return serr
			}},
		}
		if clients.Riot != nil {
			probes = append(probes, probe{summoner.SourceRiotAPI, func(ctx context.Context) *retryutil.SourceError {
				_, serr := clients.Riot.Fetch(ctx, identity.Region, identity.SummonerName, identity.TagLine)
				return serr
			}})
		}
		probes = append(probes, probe{summoner.SourceDataDragon, func(ctx context.Context) *retryutil.SourceError {
			_, serr := clients.DataDragon.Fetch(ctx)
			return serr
		}})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Status", "Latency", "Detail"})

		for _, p := range probes {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Second*20)
			start := time.Now()
			serr := p.fetch(ctx)
			latency := time.Since(start).Round(time.Millisecond)
			cancel()

			if serr != nil {
				t.AppendRow(table.Row{p.name, "down", latency, fmt.Sprintf("%s: %s", serr.Kind, serr.Op)})
				continue
			}
			t.AppendRow(table.Row{p.name, "ok", latency, ""})
		}
		if clients.Riot == nil {
			t.AppendRow(table.Row{summoner.SourceRiotAPI, "disabled", "", "RIOT_API_KEY is not set"})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
