package sound

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSounds(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
}

func TestKeyAndSupport(t *testing.T) {
	tests := []struct {
		file      string
		key       string
		supported bool
	}{
		{"AirHorn.mp3", "airhorn", true},
		{"bruh.WAV", "bruh", true},
		{"song.remix.mp3", "song", true},
		{"notes.txt", "notes", false},
		{"noext", "noext", false},
		{"archive.mp3.zip", "archive", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.key, Key(tt.file))
			assert.Equal(t, tt.supported, IsSupported(tt.file))
		})
	}
}

func TestCatalogRefreshBeforeInitialize(t *testing.T) {
	c := NewCatalog()

	assert.ErrorIs(t, c.Refresh(), ErrNotInitialized)
	assert.Zero(t, c.Len())

	_, ok := c.Random()
	assert.False(t, ok)
}

func TestCatalogScan(t *testing.T) {
	dir := t.TempDir()
	writeSounds(t, dir, "AirHorn.mp3", "bruh.wav", "readme.txt", "Wilhelm.Scream.mp3")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp3"), 0o755))

	c := NewCatalog()
	require.NoError(t, c.Initialize(dir))

	assert.Equal(t, []string{"airhorn", "bruh", "wilhelm"}, c.Names())
	assert.Equal(t, dir, c.Path())

	s, ok := c.GetByName("AIRHORM")
	require.True(t, ok)
	assert.Equal(t, "AirHorn.mp3", s.Filename())
	assert.Equal(t, filepath.Join(dir, "AirHorn.mp3"), s.Path())
	assert.Equal(t, "File Sound: AirHorn.mp3", s.String())

	s, ok = c.GetByName("wil")
	require.True(t, ok)
	assert.Equal(t, "Wilhelm.Scream.mp3", s.Filename())

	_, ok = c.GetByName("zzzzzz")
	assert.False(t, ok)
}

func TestCatalogGetByNameMatchesFilenames(t *testing.T) {
	dir := t.TempDir()
	writeSounds(t, dir, "airhorn.mp3", "Bruh.wav")

	c := NewCatalog()
	require.NoError(t, c.Initialize(dir))

	s, ok := c.GetByName("airhorn.mp3")
	require.True(t, ok)
	assert.Equal(t, "airhorn.mp3", s.Filename())

	s, ok = c.GetByName("BRUH.WAV")
	require.True(t, ok)
	assert.Equal(t, "Bruh.wav", s.Filename())

	// One typo against the full filename.
	s, ok = c.GetByName("airhorm.mp3")
	require.True(t, ok)
	assert.Equal(t, "airhorn.mp3", s.Filename())
}

func TestCatalogGetByNameReturnsFreshSound(t *testing.T) {
	dir := t.TempDir()
	writeSounds(t, dir, "airhorn.mp3")

	c := NewCatalog()
	require.NoError(t, c.Initialize(dir))

	a, ok := c.GetByName("airhorn")
	require.True(t, ok)
	b, ok := c.GetByName("airhorn")
	require.True(t, ok)
	assert.NotSame(t, a, b)
}

func TestCatalogRefreshPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeSounds(t, dir, "one.mp3")

	c := NewCatalog()
	require.NoError(t, c.Initialize(dir))
	assert.Equal(t, 1, c.Len())

	writeSounds(t, dir, "two.wav")
	require.NoError(t, os.Remove(filepath.Join(dir, "one.mp3")))
	require.NoError(t, c.Refresh())

	assert.Equal(t, []string{"two"}, c.Names())
}

func TestCatalogRandom(t *testing.T) {
	dir := t.TempDir()
	writeSounds(t, dir, "a.mp3", "b.mp3", "c.wav")

	c := NewCatalog()
	require.NoError(t, c.Initialize(dir))

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, ok := c.Random()
		require.True(t, ok)
		seen[s.Name()] = true
	}
	assert.Len(t, seen, 3)
}

func TestCatalogMissingDirectory(t *testing.T) {
	c := NewCatalog()
	err := c.Initialize(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInitialized)
}
