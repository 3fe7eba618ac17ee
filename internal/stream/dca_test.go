package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dcaStream(t *testing.T, packets ...[]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, WriteDCAFrame(&buf, p))
	}
	return &buf
}

func TestDCAFrameRoundTrip(t *testing.T) {
	buf := dcaStream(t, []byte{1, 2, 3}, []byte{}, []byte{4})

	var got [][]byte
	for {
		pkt, err := ReadDCAFrame(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, pkt)
	}
	assert.Equal(t, [][]byte{{1, 2, 3}, {}, {4}}, got)
}

func TestReadDCAFrameTruncated(t *testing.T) {
	_, err := ReadDCAFrame(bytes.NewReader([]byte{5, 0, 1}))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestWriteDCAFrameTooLarge(t *testing.T) {
	err := WriteDCAFrame(io.Discard, make([]byte, 0x10000))
	assert.ErrorContains(t, err, "too large")
}

func TestSendDCAPackets(t *testing.T) {
	buf := dcaStream(t, []byte{1}, []byte{}, []byte{2}, []byte{3})
	out := make(chan []byte, 8)

	start := time.Now()
	require.NoError(t, SendDCAPackets(context.Background(), out, buf))
	close(out)

	var got [][]byte
	for p := range out {
		got = append(got, p)
	}
	assert.Equal(t, [][]byte{{1}, {2}, {3}}, got)
	// Four frames including the empty one are paced.
	assert.GreaterOrEqual(t, time.Since(start), 3*FrameInterval)
}

func TestSendDCAPacketsCancelled(t *testing.T) {
	packets := make([][]byte, 100)
	for i := range packets {
		packets[i] = []byte{byte(i)}
	}
	buf := dcaStream(t, packets...)
	out := make(chan []byte, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 3*FrameInterval)
	defer cancel()

	err := SendDCAPackets(ctx, out, buf)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, len(out), 100)
}
