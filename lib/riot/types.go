package riot

// Response shapes follow the public Riot developer API. Only the fields the
// normalizer consumes are mapped.

type Account struct {
	Puuid    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type Summoner struct {
	Id            string `json:"id"`
	Puuid         string `json:"puuid"`
	ProfileIconId int    `json:"profileIconId"`
	SummonerLevel int    `json:"summonerLevel"`
}

type LeagueEntry struct {
	// QueueType is e.g. "RANKED_SOLO_5x5" or "RANKED_FLEX_SR".
	QueueType string `json:"queueType"`
	// Tier is upper-cased, e.g. "GOLD".
	Tier string `json:"tier"`
	// Rank is the division as a roman numeral, "I".."IV".
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchId string `json:"matchId"`
}

type MatchInfo struct {
	QueueId int `json:"queueId"`
	// GameDuration is in seconds.
	GameDuration int64              `json:"gameDuration"`
	Participants []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	Puuid                string `json:"puuid"`
	ChampionName         string `json:"championName"`
	Win                  bool   `json:"win"`
	Kills                int    `json:"kills"`
	Deaths               int    `json:"deaths"`
	Assists              int    `json:"assists"`
	TotalMinionsKilled   int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled int    `json:"neutralMinionsKilled"`
}

// Participant returns the row belonging to the given player.
func (m Match) Participant(puuid string) (MatchParticipant, bool) {
	for _, p := range m.Info.Participants {
		if p.Puuid == puuid {
			return p, true
		}
	}
	return MatchParticipant{}, false
}

// CsPerMinute derives the creep score rate from lane plus jungle minions over
// the game clock.
func (p MatchParticipant) CsPerMinute(gameDuration int64) float64 {
	if gameDuration <= 0 {
		return 0
	}
	return float64(p.TotalMinionsKilled+p.NeutralMinionsKilled) / (float64(gameDuration) / 60)
}

type PlayerData struct {
	Account  Account
	Summoner Summoner
	Ranked   []LeagueEntry
	Matches  []Match
}
