package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sonroyaalmerol/kumaboard/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStateStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "guildMap.json")
	store := NewJSONStateStore(path)

	states, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, states, "absent file is an empty registry")

	want := []player.SaveState{
		{ID: "g1", JoinAndPlay: true, BoundVoiceChannelID: "v1"},
		{ID: "g2", FeedbackChannelID: "t2"},
	}
	require.NoError(t, store.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"Id":"g1","JoinAndPlay":true,"BoundVoiceChannelId":"v1"},{"Id":"g2","JoinAndPlay":false,"FeedbackChannelId":"t2"}]`,
		string(raw))
	assert.NoFileExists(t, path+".tmp")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJSONStateStoreEmptySave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guildMap.json")
	require.NoError(t, NewJSONStateStore(path).Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestJSONStateStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guildMap.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONStateStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStateStore(openTestRepo(t))

	want := []player.SaveState{{ID: "g1", JoinAndPlay: true, FeedbackChannelID: "t1"}}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
