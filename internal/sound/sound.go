// Package sound holds playable items and the on-disk sound catalog.
package sound

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
)

var (
	ErrNoConnection   = errors.New("no voice connection")
	ErrNotInitialized = errors.New("sound catalog used before initialize")
)

// Sound is something a voice session can play. Play returns once the
// stream started; the outcome arrives later on the returned channel,
// which yields exactly one Completion.
type Sound interface {
	Play(ctx context.Context, channel platform.VoiceChannel, conn platform.VoiceConnection) (<-chan platform.Completion, error)
	Stop()
	Name() string
	String() string
}

// FileSound plays a file from the sound directory.
type FileSound struct {
	dir      string
	filename string

	mu       sync.Mutex
	playback platform.Playback
}

func NewFileSound(dir, filename string) *FileSound {
	return &FileSound{dir: dir, filename: filename}
}

func (f *FileSound) Filename() string { return f.filename }

func (f *FileSound) Path() string { return filepath.Join(f.dir, f.filename) }

// Name is the catalog key of the file.
func (f *FileSound) Name() string { return Key(f.filename) }

func (f *FileSound) String() string { return "File Sound: " + f.filename }

func (f *FileSound) Play(ctx context.Context, channel platform.VoiceChannel, conn platform.VoiceConnection) (<-chan platform.Completion, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}

	pb, err := conn.Play(ctx, f.Path())
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.playback = pb
	f.mu.Unlock()

	out := make(chan platform.Completion, 1)
	go func() {
		c, ok := <-pb.Done()
		if !ok {
			c = platform.Finished("closed")
		}

		f.mu.Lock()
		if f.playback == pb {
			f.playback = nil
		}
		f.mu.Unlock()

		if c.Kind == platform.Failed {
			slog.Error("sound playback failed", "file", f.filename, "channel", channelName(channel), "err", c.Err)
		} else {
			slog.Debug("sound playback ended", "file", f.filename, "reason", c.Reason)
		}
		out <- c
		close(out)
	}()
	return out, nil
}

// Stop ends the active playback, if any.
func (f *FileSound) Stop() {
	f.mu.Lock()
	pb := f.playback
	f.mu.Unlock()
	if pb != nil {
		pb.Stop(platform.StopRequested)
	}
}

func channelName(ch platform.VoiceChannel) string {
	if ch == nil {
		return ""
	}
	return ch.Name()
}
