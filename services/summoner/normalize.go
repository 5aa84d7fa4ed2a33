package summoner

import (
	"fmt"
	"slices"
	"strings"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"
	"riftlens-backend/lib/textutil"
)

// One explicit mapping function per source variant. Each is pure and
// deterministic: malformed payloads never reach this layer, the adapters
// reject them as parse failures.

func fromOPGG(region string, data opgg.PlayerData, index *datadragon.ChampionIndex) Profile {
	p := Profile{
		Summoner: SummonerInfo{
			Name:          data.Summoner.GameName,
			TagLine:       data.Summoner.TagLine,
			Level:         data.Summoner.Level,
			ProfileIconId: data.Summoner.ProfileIconId,
			Region:        region,
			Id:            data.Summoner.SummonerId,
		},
		DataSource: SourceOPGG,
	}
	for _, standing := range data.Ranked {
		p.Ranked = append(p.Ranked, RankedEntry{
			QueueType:    canonicalQueue(standing.GameType),
			Tier:         strings.ToUpper(standing.Tier),
			Rank:         divisionRank(standing.Division),
			LeaguePoints: standing.Lp,
			Wins:         standing.Wins,
			Losses:       standing.Losses,
		})
	}
	for _, match := range data.Matches {
		p.Matches = append(p.Matches, MatchRecord{
			Champion:    match.Champion,
			Win:         match.Win,
			Kills:       match.Kills,
			Deaths:      match.Deaths,
			Assists:     match.Assists,
			CsPerMinute: match.CsPerMinute,
		})
	}
	return finalize(p, index)
}

func fromUGG(region string, data ugg.PlayerData, index *datadragon.ChampionIndex) Profile {
	p := Profile{
		Summoner: SummonerInfo{
			Name:          data.Summoner.Name,
			TagLine:       data.Summoner.TagLine,
			Level:         data.Summoner.Level,
			ProfileIconId: data.Summoner.ProfileIconId,
			Region:        region,
		},
		DataSource: SourceUGG,
	}
	for _, standing := range data.Ranked {
		tier, rank := splitTier(standing.Tier)
		p.Ranked = append(p.Ranked, RankedEntry{
			QueueType:    canonicalQueue(standing.Queue),
			Tier:         tier,
			Rank:         rank,
			LeaguePoints: standing.Points,
			Wins:         standing.Wins,
			Losses:       standing.Losses,
		})
	}
	for _, match := range data.Matches {
		p.Matches = append(p.Matches, MatchRecord{
			Champion:    match.Champion,
			Win:         match.Win,
			Kills:       match.Kills,
			Deaths:      match.Deaths,
			Assists:     match.Assists,
			CsPerMinute: match.CsPerMinute,
		})
	}
	return finalize(p, index)
}

func fromLeagueOfGraphs(region string, data leagueofgraphs.PlayerData, index *datadragon.ChampionIndex) Profile {
	p := Profile{
		Summoner: SummonerInfo{
			Name:          data.Summoner.Name,
			TagLine:       data.Summoner.TagLine,
			Level:         data.Summoner.Level,
			ProfileIconId: data.Summoner.ProfileIconId,
			Region:        region,
		},
		DataSource: SourceLeagueOfGraphs,
	}
	for _, standing := range data.Ranked {
		tier, rank := splitTier(standing.Tier)
		p.Ranked = append(p.Ranked, RankedEntry{
			QueueType:    canonicalQueue(standing.Queue),
			Tier:         tier,
			Rank:         rank,
			LeaguePoints: standing.Points,
			Wins:         standing.Wins,
			Losses:       standing.Losses,
		})
	}
	for _, game := range data.Games {
		p.Matches = append(p.Matches, MatchRecord{
			Champion:    game.Champion,
			Win:         game.Win,
			Kills:       game.Kills,
			Deaths:      game.Deaths,
			Assists:     game.Assists,
			CsPerMinute: game.CsPerMinute,
		})
	}
	return finalize(p, index)
}

func fromRiot(region string, data riot.PlayerData, index *datadragon.ChampionIndex) Profile {
	p := Profile{
		Summoner: SummonerInfo{
			Name:          data.Account.GameName,
			TagLine:       data.Account.TagLine,
			Level:         data.Summoner.SummonerLevel,
			ProfileIconId: data.Summoner.ProfileIconId,
			Region:        region,
			Id:            data.Summoner.Id,
		},
		DataSource: SourceRiotAPI,
	}
	for _, entry := range data.Ranked {
		p.Ranked = append(p.Ranked, RankedEntry{
			QueueType:    canonicalQueue(entry.QueueType),
			Tier:         strings.ToUpper(entry.Tier),
			Rank:         canonicalRank(entry.Rank),
			LeaguePoints: entry.LeaguePoints,
			Wins:         entry.Wins,
			Losses:       entry.Losses,
		})
	}
	for _, match := range data.Matches {
		me, ok := match.Participant(data.Account.Puuid)
		if !ok {
			continue
		}
		p.Matches = append(p.Matches, MatchRecord{
			Champion:    me.ChampionName,
			Win:         me.Win,
			Kills:       me.Kills,
			Deaths:      me.Deaths,
			Assists:     me.Assists,
			CsPerMinute: me.CsPerMinute(match.Info.GameDuration),
		})
	}
	return finalize(p, index)
}

// fromDataDragon builds the degraded last-resort profile: game-wide reference
// data only, no player fields beyond the requested identity.
func fromDataDragon(identity Identity, ref datadragon.ReferenceData) Profile {
	p := Profile{
		Summoner: SummonerInfo{
			Name:    identity.SummonerName,
			TagLine: identity.TagLine,
			Region:  identity.Region,
		},
		DataSource: SourceDataDragon,
		Insights: []Insight{{
			Type:        InsightError,
			Title:       "Live data unavailable",
			Description: fmt.Sprintf("Player statistics could not be fetched from any source. Showing static game data for patch %s.", ref.Version),
			Priority:    3,
		}},
	}
	return finalize(p, nil)
}

// finalize derives statistics and champion aggregates from the mapped
// matches and fills the defaults, so every variant comes out identical in
// shape.
func finalize(p Profile, index *datadragon.ChampionIndex) Profile {
	// canonical champion spelling first, so aggregation groups misspelled
	// duplicates together
	for i := range p.Matches {
		if name, ok := index.Resolve(p.Matches[i].Champion); ok {
			p.Matches[i].Champion = name
		}
	}

	p.Statistics = deriveStatistics(p.Matches)
	p.ChampionStats = aggregateChampions(p.Matches)

	if p.Ranked == nil {
		p.Ranked = []RankedEntry{}
	}
	if p.Matches == nil {
		p.Matches = []MatchRecord{}
	}
	if p.Insights == nil {
		p.Insights = []Insight{}
	}
	if p.FailedSources == nil {
		p.FailedSources = []string{}
	}
	return p
}

func deriveStatistics(matches []MatchRecord) Statistics {
	stats := Statistics{TotalGames: len(matches)}
	if len(matches) == 0 {
		return stats
	}

	wins := 0
	var kdaSum, csSum float64
	for _, m := range matches {
		if m.Win {
			wins++
		}
		kdaSum += m.KDA()
		csSum += m.CsPerMinute
	}

	n := float64(len(matches))
	stats.WinRate = float64(wins) / n
	stats.AvgKDA = kdaSum / n
	stats.AvgCS = csSum / n
	return stats
}

func aggregateChampions(matches []MatchRecord) []ChampionAggregate {
	byName := make(map[string]*ChampionAggregate)
	for _, m := range matches {
		agg := byName[m.Champion]
		if agg == nil {
			agg = &ChampionAggregate{Champion: m.Champion}
			byName[m.Champion] = agg
		}
		agg.Games++
		if m.Win {
			agg.Wins++
		}
		agg.Kills += m.Kills
		agg.Deaths += m.Deaths
		agg.Assists += m.Assists
	}

	aggs := make([]ChampionAggregate, 0, len(byName))
	for _, agg := range byName {
		agg.WinRate = float64(agg.Wins) / float64(agg.Games)
		deaths := agg.Deaths
		if deaths < 1 {
			deaths = 1
		}
		agg.KDA = float64(agg.Kills+agg.Assists) / float64(deaths)
		aggs = append(aggs, *agg)
	}
	slices.SortFunc(aggs, func(a, b ChampionAggregate) int {
		if a.Games != b.Games {
			return b.Games - a.Games
		}
		return strings.Compare(a.Champion, b.Champion)
	})
	return aggs
}

var romanRanks = map[string]string{
	"1": "I",
	"2": "II",
	"3": "III",
	"4": "IV",
}

// canonicalRank normalizes a division label, roman or arabic, to "I".."IV".
// Anything else becomes empty.
func canonicalRank(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	switch v {
	case "I", "II", "III", "IV":
		return v
	}
	return romanRanks[v]
}

func divisionRank(division int) string {
	return romanRanks[fmt.Sprint(division)]
}

// splitTier breaks a combined standing label like "Gold II", "gold 2" or
// "Grandmaster 1" into the canonical upper-case tier and roman division.
func splitTier(label string) (tier, rank string) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return "", ""
	}
	rank = canonicalRank(fields[len(fields)-1])
	if rank != "" && len(fields) > 1 {
		return strings.ToUpper(strings.Join(fields[:len(fields)-1], " ")), rank
	}
	return strings.ToUpper(strings.Join(fields, " ")), ""
}

// canonicalQueue maps the sites' queue labels onto riot's spelling. The
// labels drift with site redesigns, so matching is by normalized substring
// instead of an exact list. Unknown labels pass through untouched.
func canonicalQueue(label string) string {
	if textutil.MatchName(label, "solo") {
		return QueueSoloDuo
	}
	if textutil.MatchName(label, "flex") {
		return QueueFlex
	}
	return strings.TrimSpace(label)
}
