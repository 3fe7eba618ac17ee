package autocomplete

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func choiceNames(t *testing.T, names []string, q string, limit int) []string {
	t.Helper()
	var out []string
	for _, c := range SoundSuggestions(names, q, limit) {
		assert.Equal(t, c.Name, c.Value)
		out = append(out, c.Name)
	}
	return out
}

func TestSoundSuggestions(t *testing.T) {
	names := []string{"airhorn", "bruh", "rain", "thunder-rain", "sad-trombone"}

	assert.Equal(t, []string{"rain", "thunder-rain"}, choiceNames(t, names, "rain", 0))
	assert.Equal(t, []string{"airhorn", "rain"}, choiceNames(t, names, "AIR", 0))
	assert.Equal(t, []string{"sad-trombone"}, choiceNames(t, names, "trom", 0))
	assert.Empty(t, choiceNames(t, names, "zzz", 0))
	assert.Equal(t, names[:2], choiceNames(t, names, "", 2))
}

func TestSoundSuggestionsCap(t *testing.T) {
	var names []string
	for i := range 40 {
		names = append(names, fmt.Sprintf("clip%02d", i))
	}
	assert.Len(t, SoundSuggestions(names, "", 100), MaxChoices)
	assert.Len(t, SoundSuggestions(names, "clip", 0), MaxChoices)
}
