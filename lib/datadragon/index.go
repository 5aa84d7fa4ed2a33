package datadragon

import (
	"slices"

	"riftlens-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// scraped pages misspell champions often enough that a strict lookup would
// leak junk names into aggregation, but below this similarity a correction
// is more likely to be wrong than right
const fuzzyThreshold = 0.85

// ChampionIndex canonicalizes champion spellings coming off scraped pages.
// Read-only after construction, safe for concurrent use. A nil index
// resolves nothing.
type ChampionIndex struct {
	// display names, sorted, deduplicated
	names []string
	// normalized display names and internal ids to display name
	folded map[string]string
}

func NewChampionIndex(champions []Champion) *ChampionIndex {
	folded := make(map[string]string, len(champions)*2)
	names := make([]string, 0, len(champions))
	for _, champion := range champions {
		if champion.Name == "" {
			continue
		}
		folded[textutil.NormalizeName(champion.Name)] = champion.Name
		if champion.Id != "" {
			folded[textutil.NormalizeName(champion.Id)] = champion.Name
		}
		names = append(names, champion.Name)
	}
	slices.Sort(names)
	return &ChampionIndex{
		names:  slices.Compact(names),
		folded: folded,
	}
}

// Len reports how many champions the catalog carries.
func (idx *ChampionIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.names)
}

// Names returns the canonical display names in sorted order.
func (idx *ChampionIndex) Names() []string {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.names)
}

// Resolve maps a possibly mangled spelling to the canonical display name.
// Normalized hits win, then the closest fuzzy candidate above the threshold.
// Unresolvable names come back unchanged with ok=false so callers can keep
// the raw spelling.
func (idx *ChampionIndex) Resolve(name string) (string, bool) {
	if idx == nil || name == "" {
		return name, false
	}

	normalized := textutil.NormalizeName(name)
	canonical, ok := idx.folded[normalized]
	if ok {
		return canonical, true
	}

	best := ""
	bestSimilarity := 0.0
	for _, candidate := range idx.names {
		similarity := matchr.JaroWinkler(normalized, textutil.NormalizeName(candidate), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	if bestSimilarity >= fuzzyThreshold {
		return best, true
	}
	return name, false
}
