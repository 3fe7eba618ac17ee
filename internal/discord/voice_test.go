package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
)

func newPlayback() *playback {
	_, cancel := context.WithCancel(context.Background())
	return &playback{cancel: cancel, done: make(chan platform.Completion, 1)}
}

func TestPlaybackFinishes(t *testing.T) {
	pb := newPlayback()
	pb.finish(nil)

	c, ok := <-pb.Done()
	require.True(t, ok)
	assert.Equal(t, platform.Completed, c.Kind)
	assert.Equal(t, "finished", c.Reason)

	_, ok = <-pb.Done()
	assert.False(t, ok)
}

func TestPlaybackStopReasonWins(t *testing.T) {
	pb := newPlayback()
	pb.Stop(platform.StopRequested)
	pb.Stop("disconnected")
	pb.finish(context.Canceled)

	c := <-pb.Done()
	assert.Equal(t, platform.Completed, c.Kind)
	assert.Equal(t, platform.StopRequested, c.Reason)
}

func TestPlaybackFailure(t *testing.T) {
	pb := newPlayback()
	boom := errors.New("opus send")
	pb.finish(boom)

	c := <-pb.Done()
	assert.Equal(t, platform.Failed, c.Kind)
	assert.ErrorIs(t, c.Err, boom)
}
