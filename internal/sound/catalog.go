package sound

import (
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/nameres"
)

var supportedExtensions = []string{"mp3", "wav"}

// Key is the catalog name of a file: its lower-cased name up to the first dot.
func Key(filename string) string {
	base, _, _ := strings.Cut(filename, ".")
	return nameres.Normalize(base)
}

func extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// IsSupported reports whether the file extension can be played.
func IsSupported(filename string) bool {
	return slices.Contains(supportedExtensions, extension(filename))
}

type entries struct {
	keys  []string // directory order
	files map[string]string
	// lookup maps every match candidate, lower-cased filenames first and
	// then keys, to its file. candidates keeps that order.
	candidates []string
	lookup     map[string]string
}

// Catalog caches the playable files of one directory by name. A refresh
// builds a new index and swaps it in.
type Catalog struct {
	mu    sync.RWMutex
	path  string
	ready bool
	index entries
}

func NewCatalog() *Catalog {
	return &Catalog{index: entries{files: map[string]string{}, lookup: map[string]string{}}}
}

func (c *Catalog) Initialize(path string) error {
	c.mu.Lock()
	c.path = path
	c.ready = true
	c.mu.Unlock()
	return c.Refresh()
}

func (c *Catalog) Refresh() error {
	log := logger.WithComponent("catalog")

	c.mu.RLock()
	path, ready := c.path, c.ready
	c.mu.RUnlock()
	if !ready {
		log.Error("refresh called before initialize")
		return ErrNotInitialized
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("scan sound directory %s: %w", path, err)
	}

	next := entries{
		files:  make(map[string]string, len(dirEntries)),
		lookup: make(map[string]string, 2*len(dirEntries)),
	}
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !IsSupported(name) {
			log.Warn("skipping unsupported sound file", "file", name)
			continue
		}
		key := Key(name)
		if prev, dup := next.files[key]; dup {
			log.Warn("sound name collision, later file wins", "name", key, "previous", prev, "file", name)
		} else {
			next.keys = append(next.keys, key)
		}
		next.files[key] = name

		lowered := nameres.Normalize(name)
		next.candidates = append(next.candidates, lowered)
		next.lookup[lowered] = name
	}
	for _, key := range next.keys {
		next.candidates = append(next.candidates, key)
		next.lookup[key] = next.files[key]
	}

	c.mu.Lock()
	c.index = next
	c.mu.Unlock()

	log.Info("sound catalog loaded", "path", path, "sounds", len(next.keys))
	return nil
}

// GetByName fuzzy-matches name against the lower-cased filenames and the
// catalog keys, and returns a fresh FileSound for the hit.
func (c *Catalog) GetByName(name string) (*FileSound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hit, ok := nameres.BestMatch(nameres.Normalize(name), c.index.candidates)
	if !ok {
		return nil, false
	}
	return NewFileSound(c.path, c.index.lookup[hit]), true
}

func (c *Catalog) Random() (*FileSound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.index.keys) == 0 {
		return nil, false
	}
	key := c.index.keys[rand.IntN(len(c.index.keys))]
	return NewFileSound(c.path, c.index.files[key]), true
}

// Names returns the catalog keys sorted alphabetically.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := slices.Clone(c.index.keys)
	slices.Sort(out)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index.keys)
}

func (c *Catalog) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

func (c *Catalog) IsSupported(filename string) bool {
	return IsSupported(filename)
}
