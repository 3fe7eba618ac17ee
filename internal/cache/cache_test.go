package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sonroyaalmerol/kumaboard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, limit int64) *FileCache {
	t.Helper()
	db, err := repository.OpenDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFileCache(t.TempDir(), limit, repository.NewRepo(db))
}

func TestFillRunsOncePerKey(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 1<<20)

	var calls atomic.Int32
	fill := func(w io.Writer) error {
		calls.Add(1)
		_, err := io.WriteString(w, "opus")
		return err
	}

	p1, err := c.Fill(ctx, "airhorn.mp3:4:100", fill)
	require.NoError(t, err)
	p2, err := c.Fill(ctx, "airhorn.mp3:4:100", fill)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, int32(1), calls.Load())

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "opus", string(data))
}

func TestFillErrorLeavesNoEntry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 1<<20)

	_, err := c.Fill(ctx, "k", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("decoder failed")
	})
	assert.ErrorContains(t, err, "decoder failed")

	_, ok := c.Get(ctx, c.HashKey("k"))
	assert.False(t, ok)
}

func TestEvictionKeepsNewest(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 10)

	a, err := c.WriteStream(ctx, "a", strings.NewReader("123456"))
	require.NoError(t, err)
	b, err := c.WriteStream(ctx, "b", strings.NewReader("abcdef"))
	require.NoError(t, err)

	assert.NoFileExists(t, a)
	assert.FileExists(t, b)

	// An entry larger than the limit is still kept while it is the newest.
	big, err := c.WriteStream(ctx, "big", strings.NewReader(strings.Repeat("x", 32)))
	require.NoError(t, err)
	assert.FileExists(t, big)
	assert.NoFileExists(t, b)
}
