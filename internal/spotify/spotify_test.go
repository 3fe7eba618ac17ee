package spotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		typ     string
		id      spotify.ID
		wantErr error
	}{
		{in: "spotify:track:abc123", typ: "track", id: "abc123"},
		{in: "https://open.spotify.com/track/abc123?si=xyz", typ: "track", id: "abc123"},
		{in: "https://open.spotify.com/intl-de/track/abc123", typ: "track", id: "abc123"},
		{in: "https://open.spotify.com/album/alb1", typ: "album", id: "alb1"},
		{in: "https://example.com/track/abc", wantErr: ErrNotSpotify},
		{in: "spotify:track", wantErr: ErrInvalidInput},
		{in: "https://open.spotify.com/show/abc", wantErr: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, id, err := ParseID(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestIsSpotify(t *testing.T) {
	assert.True(t, IsSpotify("spotify:track:x"))
	assert.True(t, IsSpotify("https://open.spotify.com/track/x"))
	assert.False(t, IsSpotify("https://youtube.com/watch?v=x"))
	assert.False(t, IsSpotify("rain"))
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "Band - Song", query("Song", []spotify.SimpleArtist{{Name: "Band"}, {Name: "Other"}}))
	assert.Equal(t, "Song", query("Song", nil))
}
