package commands

import (
	"fmt"
	"os"
	"strings"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"
	"riftlens-backend/lib/serviceutil"
	"riftlens-backend/services/summoner"
)

func parseIdentity(region, riotId string) summoner.Identity {
	sep := strings.LastIndex(riotId, "#")
	if sep < 0 {
		fmt.Fprintf(os.Stderr, "expected <name>#<tag>, got %q\n", riotId)
		os.Exit(1)
	}
	return summoner.Identity{
		SummonerName: riotId[:sep],
		TagLine:      riotId[sep+1:],
		Region:       strings.ToLower(region),
	}
}

// buildClients constructs every adapter with production defaults. The riot
// client only exists when RIOT_API_KEY is set.
func buildClients() summoner.SourceClients {
	opggClient, err := opgg.NewClient(opgg.ClientOptions{})
	if err != nil {
		serviceutil.Fatal("init op.gg client", err)
	}
	uggClient, err := ugg.NewClient(ugg.ClientOptions{})
	if err != nil {
		serviceutil.Fatal("init u.gg client", err)
	}
	logClient, err := leagueofgraphs.NewClient(leagueofgraphs.ClientOptions{})
	if err != nil {
		serviceutil.Fatal("init leagueofgraphs client", err)
	}

	var riotClient *riot.Client
	if key := os.Getenv("RIOT_API_KEY"); key != "" {
		riotClient, err = riot.NewClient(riot.ClientOptions{ApiKey: key})
		if err != nil {
			serviceutil.Fatal("init riot client", err)
		}
	}

	return summoner.SourceClients{
		OPGG:           opggClient,
		UGG:            uggClient,
		LeagueOfGraphs: logClient,
		Riot:           riotClient,
		DataDragon:     datadragon.NewClient(datadragon.ClientOptions{}),
	}
}
