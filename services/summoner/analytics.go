package summoner

import (
	"fmt"
	"math"
)

// Deterministic scoring and insight rules. No I/O, no randomness: the same
// profile always analyzes to the same result.

const (
	opScoreBase = 50

	// the score looks at the freshest games only, insights take a wider view
	scoreWindow   = 10
	insightWindow = 20

	// below this many distinct champions in the insight window the pool
	// counts as narrow
	championPoolFloor = 16
)

var tierBonus = map[string]int{
	"CHALLENGER":  25,
	"GRANDMASTER": 22,
	"MASTER":      20,
	"DIAMOND":     15,
	"EMERALD":     12,
	"PLATINUM":    10,
	"GOLD":        5,
	"SILVER":      2,
	"BRONZE":      0,
	"IRON":        -5,
}

// analyze stamps the composite score and coaching insights onto a profile.
func analyze(p Profile) Profile {
	p.OPScore = opScore(p)
	p.Insights = append(p.Insights, insights(p.Matches)...)
	return p
}

// opScore grades a player 0..100: a base of 50, up to 30 from solo queue win
// rate, a fixed bonus per tier, up to 25 from recent KDA and up to 15 from
// recent farming.
func opScore(p Profile) int {
	score := float64(opScoreBase)

	if solo, ok := soloEntry(p.Ranked); ok {
		score += solo.WinRate() * 30
		score += float64(tierBonus[solo.Tier])
	}

	recent := recentMatches(p.Matches, scoreWindow)
	if len(recent) > 0 {
		score += min(meanKDA(recent)*8, 25)
		score += min(meanCS(recent)*2, 15)
	}

	return int(math.Round(min(max(score, 0), 100)))
}

func insights(matches []MatchRecord) []Insight {
	if len(matches) == 0 {
		return []Insight{{
			Type:        InsightGeneral,
			Title:       "No recent match data",
			Description: "No recent matches were found for this player, so coaching insights are unavailable.",
			Priority:    3,
		}}
	}

	recent := recentMatches(matches, insightWindow)
	winRate := winRateOf(recent)
	kda := meanKDA(recent)
	cs := meanCS(recent)

	// every rule is evaluated independently, a profile can collect praise
	// and warnings at once
	var out []Insight
	if winRate < 0.4 {
		out = append(out, Insight{
			Type:        InsightWarning,
			Title:       "Focus on consistency",
			Description: fmt.Sprintf("Only %.0f%% of your recent games were wins. Review your defeats for repeated mistakes before queueing again.", winRate*100),
			Priority:    1,
		})
	}
	if winRate > 0.7 {
		out = append(out, Insight{
			Type:        InsightPraise,
			Title:       "On a win streak",
			Description: fmt.Sprintf("You won %.0f%% of your recent games. Keep playing the champions that got you here.", winRate*100),
			Priority:    3,
		})
	}
	if kda < 1.5 {
		out = append(out, Insight{
			Type:        InsightWarning,
			Title:       "Improve your KDA",
			Description: fmt.Sprintf("Your average KDA of %.1f is low. Play around your team and pick safer fights.", kda),
			Priority:    1,
		})
	}
	if kda > 4.0 {
		out = append(out, Insight{
			Type:        InsightPraise,
			Title:       "Excellent KDA",
			Description: fmt.Sprintf("An average KDA of %.1f shows great fight discipline.", kda),
			Priority:    3,
		})
	}
	if cs < 5 {
		out = append(out, Insight{
			Type:        InsightWarning,
			Title:       "Improve your farming",
			Description: fmt.Sprintf("%.1f CS per minute leaves a lot of gold in the lane. Practice last-hitting under pressure.", cs),
			Priority:    2,
		})
	}
	if cs > 7 {
		out = append(out, Insight{
			Type:        InsightPraise,
			Title:       "Excellent farming",
			Description: fmt.Sprintf("%.1f CS per minute is a strong economy. Your lane fundamentals are paying off.", cs),
			Priority:    3,
		})
	}
	if distinctChampions(recent) < championPoolFloor {
		out = append(out, Insight{
			Type:        InsightWarning,
			Title:       "Expand your champion pool",
			Description: "You queue with a narrow set of champions. Adding one or two picks for other matchups makes your drafts harder to counter.",
			Priority:    2,
		})
	}
	return out
}

func soloEntry(ranked []RankedEntry) (RankedEntry, bool) {
	for _, entry := range ranked {
		if entry.QueueType == QueueSoloDuo {
			return entry, true
		}
	}
	return RankedEntry{}, false
}

// matches arrive newest first from every source
func recentMatches(matches []MatchRecord, n int) []MatchRecord {
	if len(matches) <= n {
		return matches
	}
	return matches[:n]
}

func winRateOf(matches []MatchRecord) float64 {
	if len(matches) == 0 {
		return 0
	}
	wins := 0
	for _, m := range matches {
		if m.Win {
			wins++
		}
	}
	return float64(wins) / float64(len(matches))
}

func meanKDA(matches []MatchRecord) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.KDA()
	}
	return sum / float64(len(matches))
}

func meanCS(matches []MatchRecord) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.CsPerMinute
	}
	return sum / float64(len(matches))
}

func distinctChampions(matches []MatchRecord) int {
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		seen[m.Champion] = struct{}{}
	}
	return len(seen)
}
