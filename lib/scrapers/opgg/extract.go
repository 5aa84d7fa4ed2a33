package opgg

import (
	"strconv"
	"strings"
)

// The games blob has shipped under several key spellings over time, so each
// concept is probed under every name it has been seen with.

func extractMatch(game map[string]any) (Match, bool) {
	champion := getStringAny(game, "champion_key", "champion_name", "championName")
	if champion == "" {
		if stats, ok := game["myData"].(map[string]any); ok {
			champion = getStringAny(stats, "champion_key", "champion_name")
		}
	}
	if champion == "" {
		return Match{}, false
	}

	stats := game
	if inner, ok := game["myData"].(map[string]any); ok {
		stats = inner
	}

	win := getBool(stats, "win")
	if result := getStringAny(stats, "result", "game_result"); result != "" {
		win = strings.EqualFold(result, "WIN")
	}

	match := Match{
		Champion: champion,
		Win:      win,
		Kills:    getIntAny(stats, "kill", "kills"),
		Deaths:   getIntAny(stats, "death", "deaths"),
		Assists:  getIntAny(stats, "assist", "assists"),
	}

	match.CsPerMinute = getFloatAny(stats, "cs_per_minute", "csPerMinute")
	if match.CsPerMinute == 0 {
		cs := getFloatAny(stats, "minion_kill", "cs")
		length := getFloatAny(game, "game_length_second", "gameLengthSecond")
		if cs > 0 && length > 0 {
			match.CsPerMinute = cs / (length / 60)
		}
	}

	return match, true
}

func getStringAny(src map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := src[key]
		if !ok || raw == nil {
			continue
		}
		if value, ok := raw.(string); ok && value != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func getFloat(src map[string]any, key string) float64 {
	raw, ok := src[key]
	if !ok || raw == nil {
		return 0
	}
	switch value := raw.(type) {
	case float64:
		return value
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func getFloatAny(src map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if value := getFloat(src, key); value != 0 {
			return value
		}
	}
	return 0
}

func getIntAny(src map[string]any, keys ...string) int {
	for _, key := range keys {
		if value := getFloat(src, key); value != 0 {
			return int(value)
		}
	}
	return 0
}

func getBool(src map[string]any, key string) bool {
	value, ok := src[key].(bool)
	return ok && value
}

// trailingInt pulls the last path number out of a url like
// ".../profile_icons/6296.png", the icon id is only carried there on some
// page revisions.
func trailingInt(rawUrl string) int {
	if rawUrl == "" {
		return 0
	}
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
