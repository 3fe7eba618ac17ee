package stream

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

// MediaInfo is what yt-dlp reports about a source before downloading it.
type MediaInfo struct {
	ID         string
	Title      string
	Uploader   string
	Duration   float64 // seconds
	IsLive     bool
	WebpageURL string
}

var installOnce sync.Once

func ensureInstalled(ctx context.Context) {
	installOnce.Do(func() {
		// cmd.Run surfaces a missing binary on its own.
		ytdlp.MustInstall(ctx, nil)
	})
}

func s(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func f(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func b(ptr *bool) bool {
	if ptr == nil {
		return false
	}
	return *ptr
}

func toMediaInfo(ext *ytdlp.ExtractedInfo) *MediaInfo {
	return &MediaInfo{
		ID:         ext.ID,
		Title:      s(ext.Title),
		Uploader:   s(ext.Uploader),
		Duration:   f(ext.Duration),
		IsLive:     b(ext.IsLive),
		WebpageURL: s(ext.WebpageURL),
	}
}

// ProbeMedia runs yt-dlp -J for a single item. Search queries
// ("ytsearch1:...") resolve to their first entry.
func ProbeMedia(ctx context.Context, source string) (*MediaInfo, error) {
	ensureInstalled(ctx)

	res, err := ytdlp.New().
		Format("bestaudio/best").
		NoPlaylist().
		NoCheckCertificates().
		DumpJSON().
		Run(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("parse yt-dlp json: no info returned")
	}

	ext := infos[0]
	for _, e := range ext.Entries {
		if e != nil {
			return toMediaInfo(e), nil
		}
	}
	return toMediaInfo(ext), nil
}

// DownloadAudio extracts the audio of source into dir/name.mp3 and returns
// the written path.
func DownloadAudio(ctx context.Context, source, dir, name string) (string, error) {
	ensureInstalled(ctx)

	_, err := ytdlp.New().
		Format("bestaudio/best").
		NoPlaylist().
		NoCheckCertificates().
		ExtractAudio().
		AudioFormat("mp3").
		Output(filepath.Join(dir, name+".%(ext)s")).
		Run(ctx, source)
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}
	return filepath.Join(dir, name+".mp3"), nil
}
