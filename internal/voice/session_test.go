package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sonroyaalmerol/kumaboard/internal/platform/platformtest"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	finished []sound.Sound
	failed   []error
	notify   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 16)}
}

func (r *recorder) SoundFinished(s sound.Sound) {
	r.mu.Lock()
	r.finished = append(r.finished, s)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recorder) SoundFailed(_ sound.Sound, err error) {
	r.mu.Lock()
	r.failed = append(r.failed, err)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(time.Second):
		t.Fatal("subscriber not notified")
	}
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.finished), len(r.failed)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		conn, snd, joining bool
		want               Status
	}{
		{false, false, false, StatusDisconnected},
		{false, true, false, StatusDisconnected},
		{true, false, false, StatusWaiting},
		{true, true, false, StatusPlaying},
		{false, false, true, StatusJoining},
		{true, true, true, StatusJoining},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.conn, tt.snd, tt.joining))
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewSession("g1")
	rec := newRecorder()
	s.Subscribe(rec)
	ch := platformtest.NewVoiceChannel("v1", "General")
	snd := sound.NewFileSound("/sounds", "airhorn.mp3")

	_, err := s.Play(ctx, snd)
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Equal(t, StatusDisconnected, s.Status())

	msg, err := s.Join(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, "Successfully joined General", msg)
	assert.Equal(t, StatusWaiting, s.Status())

	msg, err = s.Play(ctx, snd)
	require.NoError(t, err)
	assert.Equal(t, "Now playing :musical_note: File Sound: airhorn.mp3 :musical_note: ", msg)
	assert.Equal(t, StatusPlaying, s.Status())

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Same(t, snd, cur)

	ch.Conn().Last().Finish()
	rec.wait(t)

	assert.Equal(t, StatusWaiting, s.Status())
	finished, failed := rec.counts()
	assert.Equal(t, 1, finished)
	assert.Zero(t, failed)

	// A second completion signal for the same sound is not reported again.
	ch.Conn().Last().Finish()
	time.Sleep(20 * time.Millisecond)
	finished, _ = rec.counts()
	assert.Equal(t, 1, finished)
}

func TestSessionPlaybackFailure(t *testing.T) {
	ctx := context.Background()
	s := NewSession("g1")
	rec := newRecorder()
	s.Subscribe(rec)
	ch := platformtest.NewVoiceChannel("v1", "General")

	_, err := s.Join(ctx, ch)
	require.NoError(t, err)
	_, err = s.Play(ctx, sound.NewFileSound("/sounds", "a.mp3"))
	require.NoError(t, err)

	boom := errors.New("stream broke")
	ch.Conn().Last().Fail(boom)
	rec.wait(t)

	assert.Equal(t, StatusWaiting, s.Status())
	finished, failed := rec.counts()
	assert.Zero(t, finished)
	assert.Equal(t, 1, failed)
	assert.ErrorIs(t, rec.failed[0], boom)
}

func TestSessionJoinFailure(t *testing.T) {
	s := NewSession("g1")
	ch := platformtest.NewVoiceChannel("v1", "General")
	ch.JoinErr = errors.New("missing permissions")

	_, err := s.Join(context.Background(), ch)
	assert.ErrorIs(t, err, ErrJoinFailed)
	assert.ErrorContains(t, err, "missing permissions")
	assert.Equal(t, StatusDisconnected, s.Status())

	_, bound := s.Channel()
	assert.False(t, bound)
}

func TestSessionJoiningStatus(t *testing.T) {
	s := NewSession("g1")
	ch := platformtest.NewVoiceChannel("v1", "General")
	ch.Gate = make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := s.Join(context.Background(), ch)
		errc <- err
	}()

	require.Eventually(t, func() bool { return s.Status() == StatusJoining }, time.Second, time.Millisecond)

	_, err := s.Play(context.Background(), sound.NewFileSound("/s", "a.mp3"))
	assert.ErrorIs(t, err, ErrNoConnection)

	close(ch.Gate)
	require.NoError(t, <-errc)
	assert.Equal(t, StatusWaiting, s.Status())
}

func TestSessionStop(t *testing.T) {
	ctx := context.Background()
	s := NewSession("g1")
	rec := newRecorder()
	s.Subscribe(rec)
	ch := platformtest.NewVoiceChannel("v1", "General")

	_, err := s.Stop()
	assert.ErrorIs(t, err, ErrNoConnection)

	_, err = s.Join(ctx, ch)
	require.NoError(t, err)

	_, err = s.Stop()
	assert.ErrorIs(t, err, ErrNotPlaying)

	_, err = s.Play(ctx, sound.NewFileSound("/s", "a.mp3"))
	require.NoError(t, err)

	_, err = s.Stop()
	require.NoError(t, err)
	rec.wait(t)

	assert.Equal(t, StatusWaiting, s.Status())
	finished, _ := rec.counts()
	assert.Equal(t, 1, finished)
}

func TestSessionLeave(t *testing.T) {
	ctx := context.Background()
	s := NewSession("g1")
	rec := newRecorder()
	s.Subscribe(rec)
	ch := platformtest.NewVoiceChannel("v1", "General")

	_, err := s.Leave(ctx)
	assert.ErrorIs(t, err, ErrNoConnection)

	_, err = s.Join(ctx, ch)
	require.NoError(t, err)
	_, err = s.Play(ctx, sound.NewFileSound("/s", "a.mp3"))
	require.NoError(t, err)

	_, err = s.Leave(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusDisconnected, s.Status())
	assert.True(t, ch.Conn().Disconnected())

	// The stopped sound is no longer current, so nobody is told it ended.
	time.Sleep(20 * time.Millisecond)
	finished, failed := rec.counts()
	assert.Zero(t, finished)
	assert.Zero(t, failed)
}

func TestSessionConnectionDropped(t *testing.T) {
	ctx := context.Background()
	s := NewSession("g1")
	ch := platformtest.NewVoiceChannel("v1", "General")

	_, err := s.Join(ctx, ch)
	require.NoError(t, err)

	ch.Conn().Drop()

	require.Eventually(t, func() bool { return s.Status() == StatusDisconnected }, time.Second, time.Millisecond)
	_, bound := s.Channel()
	assert.False(t, bound)
}

func TestSessionRejoinClosesPrevious(t *testing.T) {
	ctx := context.Background()
	s := NewSession("g1")
	a := platformtest.NewVoiceChannel("v1", "General")
	b := platformtest.NewVoiceChannel("v2", "Music")

	_, err := s.Join(ctx, a)
	require.NoError(t, err)
	_, err = s.Join(ctx, b)
	require.NoError(t, err)

	assert.True(t, a.Conn().Disconnected())
	assert.False(t, b.Conn().Disconnected())
	assert.Equal(t, StatusWaiting, s.Status())

	got, ok := s.Channel()
	require.True(t, ok)
	assert.Equal(t, "v2", got.ID())
}
