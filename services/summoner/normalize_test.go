package summoner

import (
	"encoding/json"
	"testing"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFromOPGG(t *testing.T) {
	data := opgg.PlayerData{
		Summoner: opgg.Summoner{
			GameName:      "Hide on bush",
			TagLine:       "KR1",
			Level:         612,
			ProfileIconId: 6296,
			SummonerId:    "abc123",
		},
		Ranked: []opgg.RankedStanding{{
			GameType: "SOLORANKED",
			Tier:     "CHALLENGER",
			Division: 1,
			Lp:       1274,
			Wins:     312,
			Losses:   201,
		}},
		Matches: []opgg.Match{
			{Champion: "Ahri", Win: true, Kills: 8, Deaths: 2, Assists: 11, CsPerMinute: 8.4},
			{Champion: "Azir", Win: false, Kills: 3, Deaths: 5, Assists: 4, CsPerMinute: 6},
		},
	}

	p := fromOPGG("kr", data, nil)

	require.Equal(t, SummonerInfo{
		Name:          "Hide on bush",
		TagLine:       "KR1",
		Level:         612,
		ProfileIconId: 6296,
		Region:        "kr",
		Id:            "abc123",
	}, p.Summoner)
	require.Equal(t, SourceOPGG, p.DataSource)

	require.Equal(t, []RankedEntry{{
		QueueType:    QueueSoloDuo,
		Tier:         "CHALLENGER",
		Rank:         "I",
		LeaguePoints: 1274,
		Wins:         312,
		Losses:       201,
	}}, p.Ranked)

	require.Len(t, p.Matches, 2)
	require.Equal(t, 2, p.Statistics.TotalGames)
	require.InDelta(t, 0.5, p.Statistics.WinRate, 1e-9)
	require.InDelta(t, 5.45, p.Statistics.AvgKDA, 1e-9)
	require.InDelta(t, 7.2, p.Statistics.AvgCS, 1e-9)

	// one game each, ties break alphabetically
	require.Len(t, p.ChampionStats, 2)
	require.Equal(t, "Ahri", p.ChampionStats[0].Champion)
	require.Equal(t, "Azir", p.ChampionStats[1].Champion)

	require.Empty(t, p.Insights)
	require.NotNil(t, p.FailedSources)
	require.Empty(t, p.FailedSources)
}

func TestFromUGG(t *testing.T) {
	data := ugg.PlayerData{
		Summoner: ugg.Summoner{Name: "Doublelift", TagLine: "NA1", Level: 487, ProfileIconId: 5212},
		Ranked: []ugg.RankedStanding{
			{Queue: "Ranked Solo", Tier: "Gold II", Points: 54, Wins: 120, Losses: 110},
			{Queue: "Ranked Flex", Tier: "Silver I", Points: 10, Wins: 30, Losses: 31},
		},
		Matches: []ugg.Match{{Champion: "Jinx", Win: true, Kills: 12, Deaths: 3, Assists: 7, CsPerMinute: 9.1}},
	}

	p := fromUGG("na1", data, nil)

	require.Equal(t, "Doublelift", p.Summoner.Name)
	require.Equal(t, "na1", p.Summoner.Region)
	require.Equal(t, SourceUGG, p.DataSource)

	require.Equal(t, []RankedEntry{
		{QueueType: QueueSoloDuo, Tier: "GOLD", Rank: "II", LeaguePoints: 54, Wins: 120, Losses: 110},
		{QueueType: QueueFlex, Tier: "SILVER", Rank: "I", LeaguePoints: 10, Wins: 30, Losses: 31},
	}, p.Ranked)

	require.Len(t, p.Matches, 1)
	require.Equal(t, "Jinx", p.Matches[0].Champion)
}

func TestFromLeagueOfGraphs(t *testing.T) {
	data := leagueofgraphs.PlayerData{
		Summoner: leagueofgraphs.Summoner{Name: "Caps", TagLine: "EUW", Level: 501, ProfileIconId: 4901},
		Ranked: []leagueofgraphs.RankedStanding{{
			Queue:  "Soloqueue",
			Tier:   "Grandmaster 1",
			Points: 634,
			Wins:   201,
			Losses: 178,
		}},
		Games: []leagueofgraphs.Game{{Champion: "Sylas", Win: true, Kills: 7, Deaths: 1, Assists: 9, CsPerMinute: 8.2}},
	}

	p := fromLeagueOfGraphs("euw1", data, nil)

	require.Equal(t, "Caps", p.Summoner.Name)
	require.Equal(t, SourceLeagueOfGraphs, p.DataSource)
	require.Equal(t, []RankedEntry{{
		QueueType:    QueueSoloDuo,
		Tier:         "GRANDMASTER",
		Rank:         "I",
		LeaguePoints: 634,
		Wins:         201,
		Losses:       178,
	}}, p.Ranked)
	require.Len(t, p.Matches, 1)
	require.True(t, p.Matches[0].Win)
}

func TestFromRiot(t *testing.T) {
	data := riot.PlayerData{
		Account:  riot.Account{Puuid: "puuid-1", GameName: "Hide on bush", TagLine: "KR1"},
		Summoner: riot.Summoner{Id: "enc-1", Puuid: "puuid-1", ProfileIconId: 6296, SummonerLevel: 612},
		Ranked: []riot.LeagueEntry{{
			QueueType:    "RANKED_SOLO_5x5",
			Tier:         "CHALLENGER",
			Rank:         "I",
			LeaguePoints: 1274,
			Wins:         312,
			Losses:       201,
		}},
		Matches: []riot.Match{
			{
				Metadata: riot.MatchMetadata{MatchId: "KR_101"},
				Info: riot.MatchInfo{
					QueueId:      420,
					GameDuration: 1500,
					Participants: []riot.MatchParticipant{
						{Puuid: "someone-else", ChampionName: "Lee Sin", Win: false, Kills: 2, Deaths: 4, Assists: 9},
						{Puuid: "puuid-1", ChampionName: "Ahri", Win: true, Kills: 8, Deaths: 2, Assists: 11, TotalMinionsKilled: 150, NeutralMinionsKilled: 30},
					},
				},
			},
			// a match the player does not appear in is dropped
			{
				Metadata: riot.MatchMetadata{MatchId: "KR_102"},
				Info: riot.MatchInfo{
					GameDuration: 1800,
					Participants: []riot.MatchParticipant{
						{Puuid: "someone-else", ChampionName: "Azir"},
					},
				},
			},
		},
	}

	p := fromRiot("kr", data, nil)

	require.Equal(t, "Hide on bush", p.Summoner.Name)
	require.Equal(t, "enc-1", p.Summoner.Id)
	require.Equal(t, 612, p.Summoner.Level)
	require.Equal(t, SourceRiotAPI, p.DataSource)

	require.Len(t, p.Ranked, 1)
	require.Equal(t, QueueSoloDuo, p.Ranked[0].QueueType)
	require.Equal(t, "I", p.Ranked[0].Rank)

	require.Len(t, p.Matches, 1)
	require.Equal(t, "Ahri", p.Matches[0].Champion)
	require.True(t, p.Matches[0].Win)
	require.InDelta(t, 7.2, p.Matches[0].CsPerMinute, 1e-9)
}

func TestIdenticalMatchesAggregate(t *testing.T) {
	data := ugg.PlayerData{
		Summoner: ugg.Summoner{Name: "Smurf", TagLine: "NA1"},
	}
	for i := 0; i < 10; i++ {
		data.Matches = append(data.Matches, ugg.Match{
			Champion:    "Ahri",
			Win:         true,
			Kills:       5,
			Deaths:      1,
			Assists:     5,
			CsPerMinute: 6,
		})
	}

	p := fromUGG("na1", data, nil)

	require.Equal(t, Statistics{
		TotalGames: 10,
		WinRate:    1,
		AvgKDA:     10,
		AvgCS:      6,
	}, p.Statistics)

	require.Equal(t, []ChampionAggregate{{
		Champion: "Ahri",
		Games:    10,
		Wins:     10,
		Kills:    50,
		Deaths:   10,
		Assists:  50,
		WinRate:  1,
		KDA:      10,
	}}, p.ChampionStats)
}

func TestAggregationOrdersByGamesThenName(t *testing.T) {
	var data ugg.PlayerData
	for _, champion := range []string{"Azir", "Ahri", "Brand", "Ahri", "Azir", "Brand", "Azir"} {
		data.Matches = append(data.Matches, ugg.Match{Champion: champion, Kills: 1, Deaths: 1, Assists: 1})
	}

	p := fromUGG("na1", data, nil)

	require.Len(t, p.ChampionStats, 3)
	require.Equal(t, "Azir", p.ChampionStats[0].Champion)
	require.Equal(t, 3, p.ChampionStats[0].Games)
	require.Equal(t, "Ahri", p.ChampionStats[1].Champion)
	require.Equal(t, "Brand", p.ChampionStats[2].Champion)
}

func TestChampionIndexGroupsSpellings(t *testing.T) {
	index := datadragon.NewChampionIndex([]datadragon.Champion{
		{Id: "MonkeyKing", Name: "Wukong"},
		{Id: "Kaisa", Name: "Kai'Sa"},
	})

	data := ugg.PlayerData{
		Matches: []ugg.Match{
			{Champion: "MonkeyKing", Win: true},
			{Champion: "Wukong", Win: false},
			{Champion: "Kai Sa", Win: true},
		},
	}

	p := fromUGG("na1", data, index)

	// the internal id and the display name collapse into one aggregate
	require.Len(t, p.ChampionStats, 2)
	require.Equal(t, "Wukong", p.ChampionStats[0].Champion)
	require.Equal(t, 2, p.ChampionStats[0].Games)
	require.Equal(t, 1, p.ChampionStats[0].Wins)
	require.Equal(t, "Kai'Sa", p.ChampionStats[1].Champion)
}

func TestNormalizeDeterministic(t *testing.T) {
	data := opgg.PlayerData{
		Summoner: opgg.Summoner{GameName: "Hide on bush", TagLine: "KR1", Level: 612},
		Ranked:   []opgg.RankedStanding{{GameType: "SOLORANKED", Tier: "GOLD", Division: 2, Lp: 54, Wins: 10, Losses: 10}},
		Matches:  []opgg.Match{{Champion: "Ahri", Win: true, Kills: 5, Deaths: 1, Assists: 5, CsPerMinute: 6}},
	}

	first := fromOPGG("kr", data, nil)
	second := fromOPGG("kr", data, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatal(diff)
	}

	firstJson, err := json.Marshal(first)
	require.NoError(t, err)
	secondJson, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, firstJson, secondJson)
}

func TestFromDataDragon(t *testing.T) {
	identity := Identity{SummonerName: "Hide on bush", TagLine: "KR1", Region: "kr"}
	p := fromDataDragon(identity, datadragon.ReferenceData{Version: "14.16.1"})

	require.Equal(t, SourceDataDragon, p.DataSource)
	require.Equal(t, "Hide on bush", p.Summoner.Name)
	require.Equal(t, "KR1", p.Summoner.TagLine)
	require.Equal(t, "kr", p.Summoner.Region)
	require.Zero(t, p.Summoner.Level)

	require.Empty(t, p.Ranked)
	require.Empty(t, p.Matches)
	require.Empty(t, p.ChampionStats)
	require.Zero(t, p.Statistics.TotalGames)
	require.Zero(t, p.OPScore)

	require.Len(t, p.Insights, 1)
	require.Equal(t, InsightError, p.Insights[0].Type)
	require.Equal(t, "Live data unavailable", p.Insights[0].Title)
	require.Contains(t, p.Insights[0].Description, "14.16.1")
	require.Equal(t, 3, p.Insights[0].Priority)
}

func TestSplitTier(t *testing.T) {
	for _, tt := range []struct {
		label string
		tier  string
		rank  string
	}{
		{"Gold II", "GOLD", "II"},
		{"gold 2", "GOLD", "II"},
		{"Grandmaster 1", "GRANDMASTER", "I"},
		{"Iron IV", "IRON", "IV"},
		{"Challenger", "CHALLENGER", ""},
		{"Master", "MASTER", ""},
		{"", "", ""},
	} {
		tier, rank := splitTier(tt.label)
		require.Equal(t, tt.tier, tier, "label %q", tt.label)
		require.Equal(t, tt.rank, rank, "label %q", tt.label)
	}
}

func TestCanonicalQueue(t *testing.T) {
	for _, tt := range []struct {
		label string
		want  string
	}{
		{"SOLORANKED", QueueSoloDuo},
		{"Ranked Solo", QueueSoloDuo},
		{"Soloqueue", QueueSoloDuo},
		{"RANKED_SOLO_5x5", QueueSoloDuo},
		{"Solo/Duo", QueueSoloDuo},
		{"FLEXRANKED", QueueFlex},
		{"Ranked Flex", QueueFlex},
		{"Flex 5:5 Rank", QueueFlex},
		{"RANKED_FLEX_SR", QueueFlex},
		{"ARAM", "ARAM"},
		{"  ARAM ", "ARAM"},
	} {
		require.Equal(t, tt.want, canonicalQueue(tt.label), "label %q", tt.label)
	}
}

func TestCanonicalRank(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want string
	}{
		{"I", "I"},
		{"iv", "IV"},
		{" iii ", "III"},
		{"1", "I"},
		{"4", "IV"},
		{"V", ""},
		{"5", ""},
		{"", ""},
	} {
		require.Equal(t, tt.want, canonicalRank(tt.in), "input %q", tt.in)
	}
}
