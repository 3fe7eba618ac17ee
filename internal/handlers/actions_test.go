package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/platform/platformtest"
	"github.com/sonroyaalmerol/kumaboard/internal/player"
	"github.com/sonroyaalmerol/kumaboard/internal/repository"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
)

type harness struct {
	h        *CommandHandler
	registry *player.Registry
	text     *platformtest.TextChannel
	lobby    *platformtest.VoiceChannel
	guild    *platformtest.Guild
}

func newHarness(t *testing.T, files ...string) *harness {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
	}
	cat := sound.NewCatalog()
	require.NoError(t, cat.Initialize(dir))

	text := platformtest.NewTextChannel("t1", "general")
	lobby := platformtest.NewVoiceChannel("v1", "Lobby")
	resolver := platformtest.NewResolver().AddText(text).AddVoice(lobby)
	guild := platformtest.NewGuild("g1").AddChannel(text).AddChannel(lobby)

	reg := player.NewRegistry(nil, time.Second)
	return &harness{
		h: &CommandHandler{
			registry: reg,
			catalog:  cat,
			resolver: resolver,
			log:      logger.WithComponent("commands"),
		},
		registry: reg,
		text:     text,
		lobby:    lobby,
		guild:    guild,
	}
}

func TestBindFeedbackOnlyOnce(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	p := hs.registry.Get("g1")

	hs.h.bindFeedback(ctx, p, "unknown")
	_, ok := p.FeedbackChannel()
	assert.False(t, ok)

	hs.h.bindFeedback(ctx, p, "t1")
	ch, ok := p.FeedbackChannel()
	require.True(t, ok)
	assert.Equal(t, "t1", ch.ID())

	other := platformtest.NewTextChannel("t2", "other")
	hs.h.resolver.(*platformtest.Resolver).AddText(other)
	hs.h.bindFeedback(ctx, p, "t2")
	ch, _ = p.FeedbackChannel()
	assert.Equal(t, "t1", ch.ID())
}

func TestAddByName(t *testing.T) {
	hs := newHarness(t, "airhorn.mp3", "bruh.wav")
	ctx := context.Background()
	p := hs.registry.Get("g1")
	hs.h.bindFeedback(ctx, p, "t1")

	msg, err := hs.h.addByName(ctx, p, "AirHorn")
	require.NoError(t, err)
	assert.Equal(t, "Queued airhorn", msg)
	assert.Equal(t, 1, p.QueueLen())
	assert.Contains(t, hs.text.Last(), "airhorn.mp3")

	_, err = hs.h.addByName(ctx, p, "zzzzzz")
	assert.ErrorIs(t, err, ErrSoundNotFound)
	_, err = hs.h.addByName(ctx, p, "  ")
	assert.ErrorIs(t, err, ErrSoundNotFound)
	assert.Equal(t, 1, p.QueueLen())
}

func TestAddRandom(t *testing.T) {
	empty := newHarness(t)
	_, err := empty.h.addRandom(context.Background(), empty.registry.Get("g1"))
	assert.ErrorIs(t, err, ErrCatalogEmpty)

	hs := newHarness(t, "bruh.wav")
	p := hs.registry.Get("g1")
	msg, err := hs.h.addRandom(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Queued bruh", msg)
	assert.Equal(t, 1, p.QueueLen())
}

func TestJoinTarget(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	p := hs.registry.Get("g1")

	_, err := hs.h.joinTarget(ctx, p, platform.MessageContext{Guild: hs.guild}, nil)
	assert.ErrorIs(t, err, ErrNoVoiceTarget)

	msg, err := hs.h.joinTarget(ctx, p, platform.MessageContext{Guild: hs.guild}, []string{"lobby"})
	require.NoError(t, err)
	assert.Equal(t, "Joining Lobby", msg)
	assert.Equal(t, 1, hs.lobby.Joins())
	assert.True(t, p.Connected())

	bound, ok := p.BoundVoiceChannel()
	require.True(t, ok)
	assert.Equal(t, "v1", bound.ID())
}

func TestAliases(t *testing.T) {
	hs := newHarness(t, "airhorn.mp3", "bruh.wav")
	ctx := context.Background()
	p := hs.registry.Get("g1")

	_, err := hs.h.listAliases(ctx, "g1")
	require.ErrorIs(t, err, ErrAliasesDisabled)

	db, err := repository.OpenDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	hs.h.aliases = repository.NewAliasService(repository.NewRepo(db))

	_, err = hs.h.addByName(ctx, p, "horn")
	require.ErrorIs(t, err, ErrSoundNotFound)

	msg, err := hs.h.createAlias(ctx, "g1", "u1", " Horn ", "airhorn")
	require.NoError(t, err)
	assert.Equal(t, "Alias horn now plays airhorn", msg)

	msg, err = hs.h.addByName(ctx, p, "horn")
	require.NoError(t, err)
	assert.Equal(t, "Queued airhorn", msg)

	_, err = hs.h.createAlias(ctx, "g1", "u1", "x", "zzzzzz")
	assert.ErrorIs(t, err, ErrSoundNotFound)

	list, err := hs.h.listAliases(ctx, "g1")
	require.NoError(t, err)
	assert.Contains(t, list, "`horn` → airhorn")

	list, err = hs.h.listAliases(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "No aliases yet.", list)

	msg, err = hs.h.removeAlias(ctx, "g1", "horn")
	require.NoError(t, err)
	assert.Equal(t, "Removed alias horn", msg)

	msg, err = hs.h.removeAlias(ctx, "g1", "horn")
	require.NoError(t, err)
	assert.Equal(t, "No alias named horn", msg)
}

func TestImportDisabled(t *testing.T) {
	hs := newHarness(t)
	_, err := hs.h.importSound(context.Background(), "https://example.com/a", "a")
	assert.ErrorIs(t, err, ErrImportDisabled)
	assert.Equal(t, "Importing sounds is disabled on this bot.", errorReply(err))
}

func TestQueueReply(t *testing.T) {
	hs := newHarness(t, "airhorn.mp3", "bruh.wav")
	ctx := context.Background()
	p := hs.registry.Get("g1")

	assert.Equal(t, "The queue is empty.", queueReply(p))

	_, err := hs.h.addByName(ctx, p, "airhorn")
	require.NoError(t, err)
	_, err = hs.h.addByName(ctx, p, "bruh")
	require.NoError(t, err)
	assert.Equal(t,
		"The following sounds are in the queue:\n\n1. File Sound: airhorn.mp3\n\n2. File Sound: bruh.wav",
		queueReply(p))
}

func TestQueueReplyFitsOneMessage(t *testing.T) {
	hs := newHarness(t, "airhorn.mp3")
	ctx := context.Background()
	p := hs.registry.Get("g1")

	for range 200 {
		_, err := hs.h.addByName(ctx, p, "airhorn")
		require.NoError(t, err)
	}

	reply := queueReply(p)
	assert.Equal(t, 2000, utf8.RuneCountInString(reply))
	assert.True(t, strings.HasPrefix(reply, "The following sounds are in the queue:"))
	assert.True(t, strings.HasSuffix(reply, "…"))
}
