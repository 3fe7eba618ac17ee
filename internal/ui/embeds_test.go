package ui

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/platform/platformtest"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/voice"
)

type view struct {
	status  voice.Status
	current sound.Sound
	queue   []sound.Sound
	bound   platform.VoiceChannel
}

func (v view) Status() voice.Status                            { return v.status }
func (v view) Current() (sound.Sound, bool)                     { return v.current, v.current != nil }
func (v view) Queue() []sound.Sound                             { return v.queue }
func (v view) VoiceChannel() (platform.VoiceChannel, bool)      { return nil, false }
func (v view) BoundVoiceChannel() (platform.VoiceChannel, bool) { return v.bound, v.bound != nil }
func (v view) FeedbackChannel() (platform.TextChannel, bool)    { return nil, false }
func (v view) JoinAndPlay() bool                                { return true }

func sounds(names ...string) []sound.Sound {
	out := make([]sound.Sound, len(names))
	for i, n := range names {
		out[i] = sound.NewFileSound("/sounds", n+".mp3")
	}
	return out
}

func field(t *testing.T, fields []*discordgo.MessageEmbedField, name string) string {
	t.Helper()
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("field %q missing", name)
	return ""
}

func TestBuildStatusEmbed(t *testing.T) {
	v := view{
		status:  voice.StatusPlaying,
		current: sound.NewFileSound("/sounds", "air_horn.mp3"),
		queue:   sounds("bruh"),
		bound:   platformtest.NewVoiceChannel("v1", "Lobby"),
	}
	e := BuildStatusEmbed(v)

	assert.Equal(t, "Now Playing", e.Title)
	assert.Contains(t, e.Description, `air\_horn`)
	assert.Equal(t, "Playing", field(t, e.Fields, "Status"))
	assert.Equal(t, "1 sound", field(t, e.Fields, "In queue"))
	assert.Equal(t, "Lobby", field(t, e.Fields, "Bound channel"))
	assert.Equal(t, "-", field(t, e.Fields, "Connected to"))
	assert.Equal(t, "on", field(t, e.Fields, "Join and play"))

	idle := BuildStatusEmbed(view{})
	assert.Equal(t, "Not Playing", idle.Title)
	assert.Equal(t, "-", field(t, idle.Fields, "In queue"))
}

func TestBuildQueueEmbed(t *testing.T) {
	v := view{queue: sounds("a", "b", "c")}

	e, err := BuildQueueEmbed(v, 2, 2)
	require.NoError(t, err)
	assert.Contains(t, e.Description, "`3.` c")
	assert.NotContains(t, e.Description, "`1.` a")
	assert.Equal(t, "2 out of 2", field(t, e.Fields, "Page"))

	_, err = BuildQueueEmbed(v, 3, 2)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	empty, err := BuildQueueEmbed(view{}, 1, 10)
	require.NoError(t, err)
	assert.Contains(t, empty.Description, "empty")
}

func TestBuildSoundsEmbed(t *testing.T) {
	e, err := BuildSoundsEmbed([]string{"airhorn", "bruh", "rain"}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "`airhorn`, `bruh`", e.Description)
	assert.Equal(t, "3 sounds · page 1 of 2", e.Footer.Text)

	e, err = BuildSoundsEmbed(nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "No sounds found.", e.Description)
}
