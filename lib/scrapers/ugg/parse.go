package ugg

import (
	"regexp"
	"strconv"
	"strings"

	"riftlens-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var recordPattern = regexp.MustCompile(`(\d[\d,]*)\s*W\s*[/ ]?\s*(\d[\d,]*)\s*L`)

// parseRecord reads "120W 110L" style win/loss cells.
func parseRecord(s string) (wins, losses int) {
	groups := recordPattern.FindStringSubmatch(htmlutil.CleanText(s))
	if len(groups) < 3 {
		return 0, 0
	}
	wins, _ = strconv.Atoi(strings.ReplaceAll(groups[1], ",", ""))
	losses, _ = strconv.Atoi(strings.ReplaceAll(groups[2], ",", ""))
	return wins, losses
}

// parseKda reads "8 / 2 / 11" style scorelines.
func parseKda(s string) (kills, deaths, assists int) {
	parts := strings.Split(htmlutil.CleanText(s), "/")
	if len(parts) != 3 {
		return 0, 0, 0
	}
	kills, _ = htmlutil.ParseInt(parts[0])
	deaths, _ = htmlutil.ParseInt(parts[1])
	assists, _ = htmlutil.ParseInt(parts[2])
	return kills, deaths, assists
}

var csParenPattern = regexp.MustCompile(`\(([\d.]+)\)`)

// parseCsPerMinute reads "210 CS (8.4)" cells, preferring the per-minute
// figure in parentheses over the raw total.
func parseCsPerMinute(s string) (float64, bool) {
	s = htmlutil.CleanText(s)
	if groups := csParenPattern.FindStringSubmatch(s); len(groups) == 2 {
		f, err := strconv.ParseFloat(groups[1], 64)
		if err == nil {
			return f, true
		}
	}
	return htmlutil.ParseFloat(s)
}

// isWin checks the result cell text, falling back to win/loss row classes.
func isWin(row *goquery.Selection, resultSelector string) bool {
	result := strings.ToLower(htmlutil.CleanText(row.Find(resultSelector).First().Text()))
	if result != "" {
		return strings.HasPrefix(result, "victory") || strings.HasPrefix(result, "win")
	}
	class := row.AttrOr("class", "")
	return strings.Contains(class, "win")
}

func trailingInt(rawUrl string) int {
	base := rawUrl
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}
