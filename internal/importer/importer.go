// Package importer downloads new sounds into the sound directory.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/spotify"
	"github.com/sonroyaalmerol/kumaboard/internal/stream"
)

var (
	ErrUnsupportedSource = errors.New("unsupported import source")
	ErrInvalidName       = errors.New("invalid sound name")
	ErrExists            = errors.New("a sound with that name already exists")
	ErrSpotifyDisabled   = errors.New("spotify credentials are not configured")
	ErrLiveSource        = errors.New("live streams cannot be imported")
	ErrTooLong           = errors.New("source is too long for a sound")
)

// MaxDuration is the longest source, in seconds, that can become a sound.
const MaxDuration = 10 * 60

// DownloadFunc fetches source as dir/name.mp3.
type DownloadFunc func(ctx context.Context, source, dir, name string) (string, error)

// ProbeFunc reports what a source is before it is downloaded.
type ProbeFunc func(ctx context.Context, source string) (*stream.MediaInfo, error)

type TrackQueryer interface {
	TrackQuery(ctx context.Context, raw string) (string, error)
}

type Importer struct {
	catalog  *sound.Catalog
	spotify  TrackQueryer
	download DownloadFunc
	probe    ProbeFunc
	log      *slog.Logger
}

// New creates an importer writing into the catalog's directory. sp may be
// nil to disable Spotify links.
func New(catalog *sound.Catalog, sp *spotify.Client) *Importer {
	im := &Importer{
		catalog:  catalog,
		download: stream.DownloadAudio,
		probe:    stream.ProbeMedia,
		log:      logger.WithComponent("importer"),
	}
	if sp != nil {
		im.spotify = sp
	}
	return im
}

// SanitizeName lowers name and keeps letters, digits, '-' and '_'. Spaces
// become '-'.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func (im *Importer) resolve(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if spotify.IsSpotify(source) {
		if im.spotify == nil {
			return "", ErrSpotifyDisabled
		}
		q, err := im.spotify.TrackQuery(ctx, source)
		if err != nil {
			return "", err
		}
		return "ytsearch1:" + q, nil
	}

	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrUnsupportedSource
	}
	return source, nil
}

func (im *Importer) exists(name string) bool {
	for _, ext := range []string{".mp3", ".wav"} {
		if _, err := os.Stat(filepath.Join(im.catalog.Path(), name+ext)); err == nil {
			return true
		}
	}
	return false
}

// Import downloads source under name and refreshes the catalog. It returns
// the catalog key of the new sound.
func (im *Importer) Import(ctx context.Context, source, name string) (string, error) {
	name = SanitizeName(name)
	if name == "" {
		return "", ErrInvalidName
	}
	if im.exists(name) {
		return "", ErrExists
	}

	target, err := im.resolve(ctx, source)
	if err != nil {
		return "", err
	}

	info, err := im.probe(ctx, target)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", source, err)
	}
	if info.IsLive {
		return "", ErrLiveSource
	}
	if info.Duration > MaxDuration {
		return "", fmt.Errorf("%w: %.0fs", ErrTooLong, info.Duration)
	}

	im.log.Info("importing sound", "name", name, "source", target, "title", info.Title, "duration", info.Duration)
	path, err := im.download(ctx, target, im.catalog.Path(), name)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", name, err)
	}

	if err := im.catalog.Refresh(); err != nil {
		return "", err
	}
	im.log.Info("imported sound", "name", name, "path", path)
	return sound.Key(filepath.Base(path)), nil
}
