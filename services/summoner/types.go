package summoner

import (
	"fmt"
	"strings"
	"time"

	"riftlens-backend/lib/datadragon"
	"riftlens-backend/lib/retryutil"
	"riftlens-backend/lib/riot"
	"riftlens-backend/lib/scrapers/leagueofgraphs"
	"riftlens-backend/lib/scrapers/opgg"
	"riftlens-backend/lib/scrapers/ugg"
)

// Source names as they appear in attempt lists, failure records and the
// dataSource field. The adapters own the spellings.
const (
	SourceOPGG           = opgg.Name
	SourceUGG            = ugg.Name
	SourceLeagueOfGraphs = leagueofgraphs.Name
	SourceRiotAPI        = riot.Name
	SourceDataDragon     = datadragon.Name

	// SourceAll requests the normal failover chain instead of one source.
	SourceAll = "all"
)

// Canonical queue names follow riot's spelling, the sites' labels are mapped
// onto them during normalization.
const (
	QueueSoloDuo = "RANKED_SOLO_5x5"
	QueueFlex    = "RANKED_FLEX_SR"
)

const (
	InsightError   = "error"
	InsightGeneral = "general"
	InsightWarning = "warning"
	InsightPraise  = "praise"
)

// Identity names the player one request is about. Immutable per request.
type Identity struct {
	SummonerName    string `json:"summonerName" validate:"required,max=16"`
	TagLine         string `json:"tagLine" validate:"required,alphanum,min=2,max=5"`
	Region          string `json:"region" validate:"required,oneof=na1 euw1 eun1 kr jp1 br1 la1 la2 oc1 tr1 ru ph2 sg2 th2 tw2 vn2"`
	PreferredSource string `json:"preferredSource" validate:"omitempty,oneof=all op.gg u.gg leagueofgraphs riot_api"`
	AllowRiotAPI    bool   `json:"allowRiotApi"`
}

func (id Identity) RiotId() string {
	return fmt.Sprintf("%s#%s", id.SummonerName, id.TagLine)
}

type SummonerInfo struct {
	Name          string `json:"name"`
	TagLine       string `json:"tagLine"`
	Level         int    `json:"level"`
	ProfileIconId int    `json:"profileIconId"`
	Region        string `json:"region"`
	Id            string `json:"id"`
}

type RankedEntry struct {
	QueueType string `json:"queueType"`
	// Tier is upper-cased, e.g. "GOLD".
	Tier string `json:"tier"`
	// Rank is the division as a roman numeral, "I".."IV". Empty for apex
	// tiers on sources that do not subdivide them.
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// WinRate is wins over games played in this queue, 0 for a fresh entry.
func (e RankedEntry) WinRate() float64 {
	total := e.Wins + e.Losses
	if total == 0 {
		return 0
	}
	return float64(e.Wins) / float64(total)
}

type MatchRecord struct {
	Champion    string  `json:"champion"`
	Win         bool    `json:"win"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Assists     int     `json:"assists"`
	CsPerMinute float64 `json:"csPerMinute"`
}

// KDA is (kills+assists)/max(deaths,1).
func (m MatchRecord) KDA() float64 {
	deaths := m.Deaths
	if deaths < 1 {
		deaths = 1
	}
	return float64(m.Kills+m.Assists) / float64(deaths)
}

type Statistics struct {
	TotalGames int     `json:"totalGames"`
	WinRate    float64 `json:"winRate"`
	AvgKDA     float64 `json:"avgKDA"`
	AvgCS      float64 `json:"avgCS"`
}

type ChampionAggregate struct {
	Champion string  `json:"champion"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Kills    int     `json:"kills"`
	Deaths   int     `json:"deaths"`
	Assists  int     `json:"assists"`
	WinRate  float64 `json:"winRate"`
	KDA      float64 `json:"kda"`
}

type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Priority is 1..3, lower is more urgent, 3 is informational.
	Priority int `json:"priority"`
}

// Profile is the canonical shape every source is mapped into. Built once per
// request, never mutated after being returned.
type Profile struct {
	Summoner      SummonerInfo        `json:"summoner"`
	Ranked        []RankedEntry       `json:"ranked"`
	Matches       []MatchRecord       `json:"matches"`
	Statistics    Statistics          `json:"statistics"`
	ChampionStats []ChampionAggregate `json:"championStats"`
	Insights      []Insight           `json:"insights"`
	OPScore       int                 `json:"opScore"`
	DataSource    string              `json:"dataSource"`
	FailedSources []string            `json:"failedSources"`
}

// FailureRecord is one failed attempt against one source. Append-only, in
// attempt order.
type FailureRecord struct {
	Source  string         `json:"source"`
	Op      string         `json:"op"`
	Kind    retryutil.Kind `json:"kind"`
	Attempt int            `json:"attempt"`
	Detail  string         `json:"detail"`
	At      time.Time      `json:"at"`
}

// TotalFailureError means every source in the attempt list and the static
// fallback refused the request.
type TotalFailureError struct {
	Identity      Identity
	FailedSources []string
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf(
		"every source failed for %s: %s",
		e.Identity.RiotId(),
		strings.Join(e.FailedSources, ", "),
	)
}
