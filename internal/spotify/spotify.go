// Package spotify turns Spotify track links into search queries the
// importer can hand to yt-dlp.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrNotSpotify   = errors.New("not a spotify link")
	ErrNotTrack     = errors.New("only spotify tracks can be imported")
	ErrInvalidInput = errors.New("invalid spotify link")
)

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(ctx context.Context, clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &Client{raw: spotify.New(cfg.Client(ctx), spotify.WithRetry(true))}
}

// IsSpotify reports whether raw looks like a Spotify URI or web link.
func IsSpotify(raw string) bool {
	if strings.HasPrefix(raw, "spotify:") {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Host == "open.spotify.com" || u.Host == "www.open.spotify.com")
}

// ParseID extracts the object type and id from a URI (spotify:track:ID)
// or an open.spotify.com link. Localized paths (/intl-de/track/ID) are
// accepted.
func ParseID(raw string) (typ string, id spotify.ID, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[2] == "" {
			return "", "", ErrInvalidInput
		}
		return parts[1], spotify.ID(parts[2]), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", ErrNotSpotify
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", ErrInvalidInput
	}
	switch parts[0] {
	case "album", "playlist", "track", "artist":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("%w: unsupported type %q", ErrInvalidInput, parts[0])
}

// TrackQuery looks the track up and returns "Artist - Name".
func (c *Client) TrackQuery(ctx context.Context, raw string) (string, error) {
	typ, id, err := ParseID(raw)
	if err != nil {
		return "", err
	}
	if typ != "track" {
		return "", ErrNotTrack
	}

	t, err := c.raw.GetTrack(ctx, id)
	if err != nil {
		return "", fmt.Errorf("spotify track %s: %w", id, err)
	}
	return query(t.Name, t.Artists), nil
}

func query(name string, artists []spotify.SimpleArtist) string {
	if len(artists) == 0 || artists[0].Name == "" {
		return name
	}
	return artists[0].Name + " - " + name
}
