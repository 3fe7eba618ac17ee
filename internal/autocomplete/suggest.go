// Package autocomplete builds slash-command choices for sound names.
package autocomplete

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaboard/internal/nameres"
)

// MaxChoices is Discord's limit on autocomplete choices.
const MaxChoices = 25

// SoundSuggestions ranks names for query: names CompareNames accepts come
// first, then names that merely contain the query. An empty query lists
// names in order.
func SoundSuggestions(names []string, query string, limit int) []*discordgo.ApplicationCommandOptionChoice {
	if limit <= 0 || limit > MaxChoices {
		limit = MaxChoices
	}
	q := nameres.Normalize(strings.TrimSpace(query))

	var near, loose []string
	for _, n := range names {
		switch {
		case q == "" || nameres.CompareNames(q, n):
			near = append(near, n)
		case strings.Contains(n, q):
			loose = append(loose, n)
		}
	}

	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(limit, len(near)+len(loose)))
	for _, n := range append(near, loose...) {
		if len(out) == limit {
			break
		}
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: n, Value: n})
	}
	return out
}
