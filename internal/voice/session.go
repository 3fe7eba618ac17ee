// Package voice tracks one guild's voice connection and the sound playing
// on it.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
)

const musicalNote = " :musical_note: "

var (
	ErrNoConnection = sound.ErrNoConnection
	ErrNotPlaying   = errors.New("not currently playing")
	ErrJoinFailed   = errors.New("could not join channel")
)

// Subscriber is told when the current sound ends. Exactly one call is
// made per sound that was still current when it ended.
type Subscriber interface {
	SoundFinished(s sound.Sound)
	SoundFailed(s sound.Sound, err error)
}

type Session struct {
	log *slog.Logger

	mu      sync.Mutex
	channel platform.VoiceChannel
	conn    platform.VoiceConnection
	current sound.Sound
	joining bool
	status  Status
	subs    []Subscriber
}

func NewSession(guildID string) *Session {
	return &Session{
		log:    logger.WithGuild("voice", guildID),
		status: StatusDisconnected,
	}
}

func (s *Session) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Channel is the voice channel the session is bound to, if any.
func (s *Session) Channel() (platform.VoiceChannel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel, s.channel != nil
}

func (s *Session) Current() (sound.Sound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// evaluate must be called with mu held after every change.
func (s *Session) evaluate() {
	s.status = DeriveStatus(s.conn != nil, s.current != nil, s.joining)
}

// Join connects to ch. A connection to another channel is closed first.
func (s *Session) Join(ctx context.Context, ch platform.VoiceChannel) (string, error) {
	s.mu.Lock()
	prevConn, prevSound := s.conn, s.current
	s.channel = ch
	s.conn = nil
	s.current = nil
	s.joining = true
	s.evaluate()
	s.mu.Unlock()

	if prevSound != nil {
		prevSound.Stop()
	}
	if prevConn != nil {
		if err := prevConn.Disconnect(ctx); err != nil {
			s.log.Warn("disconnect before join failed", "err", err)
		}
	}

	conn, err := ch.Join(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.joining = false
	if s.channel != ch {
		// Left or moved while the join was in flight.
		s.evaluate()
		if conn != nil {
			_ = conn.Disconnect(context.WithoutCancel(ctx))
		}
		return "", fmt.Errorf("%w: join to %s superseded", ErrJoinFailed, ch.Name())
	}
	if err != nil {
		s.channel = nil
		s.evaluate()
		s.log.Error("voice join failed", "channelID", ch.ID(), "err", err)
		return "", fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}

	s.conn = conn
	s.evaluate()
	go s.watch(conn)

	s.log.Info("joined voice channel", "channelID", ch.ID())
	return "Successfully joined " + ch.String(), nil
}

// watch drops the connection if the platform closes it under us.
func (s *Session) watch(conn platform.VoiceConnection) {
	<-conn.Closed()

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	cur := s.current
	s.conn = nil
	s.current = nil
	s.channel = nil
	s.evaluate()
	s.mu.Unlock()

	s.log.Warn("voice connection closed")
	if cur != nil {
		cur.Stop()
	}
}

// Play starts snd on the live connection and returns the now-playing line.
// Completion is reported later through the subscribers.
func (s *Session) Play(ctx context.Context, snd sound.Sound) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting || s.conn == nil || s.channel == nil {
		return "", ErrNoConnection
	}

	done, err := snd.Play(ctx, s.channel, s.conn)
	if err != nil {
		s.log.Error("sound failed to start", "sound", snd.String(), "err", err)
		return "", err
	}

	s.current = snd
	s.evaluate()
	go s.await(snd, done)

	return "Now playing" + musicalNote + snd.String() + musicalNote, nil
}

func (s *Session) await(snd sound.Sound, done <-chan platform.Completion) {
	c, ok := <-done
	if !ok {
		c = platform.Finished("closed")
	}

	s.mu.Lock()
	if s.current != snd {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.evaluate()
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	if c.Kind == platform.Failed {
		s.log.Error("playback error", "sound", snd.String(), "err", c.Err)
		for _, sub := range subs {
			sub.SoundFailed(snd, c.Err)
		}
		return
	}

	s.log.Debug("stream ended", "sound", snd.String(), "reason", c.Reason)
	for _, sub := range subs {
		sub.SoundFinished(snd)
	}
}

// Stop asks the current sound to end. The completion path runs as usual.
func (s *Session) Stop() (string, error) {
	s.mu.Lock()
	cur := s.current
	connected := s.conn != nil
	s.mu.Unlock()

	if !connected {
		return "", ErrNoConnection
	}
	if cur == nil {
		return "", ErrNotPlaying
	}
	cur.Stop()
	return "Successfully stopped playing.", nil
}

// Leave disconnects from the bound channel.
func (s *Session) Leave(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.channel == nil {
		s.mu.Unlock()
		return "", ErrNoConnection
	}
	ch, conn, cur := s.channel, s.conn, s.current
	s.channel = nil
	s.conn = nil
	s.current = nil
	s.evaluate()
	s.mu.Unlock()

	if cur != nil {
		cur.Stop()
	}
	if conn != nil {
		if err := conn.Disconnect(ctx); err != nil {
			s.log.Warn("voice disconnect failed", "channelID", ch.ID(), "err", err)
		}
	}
	s.log.Info("left voice channel", "channelID", ch.ID())
	return "Successfully left voice channel.", nil
}
