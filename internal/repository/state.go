package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sonroyaalmerol/kumaboard/internal/player"
)

// SQLiteStateStore keeps the player registry in the guild_players table.
type SQLiteStateStore struct {
	repo *Repo
}

func NewSQLiteStateStore(repo *Repo) *SQLiteStateStore {
	return &SQLiteStateStore{repo: repo}
}

func (s *SQLiteStateStore) Load(ctx context.Context) ([]player.SaveState, error) {
	return s.repo.LoadPlayerStates(ctx)
}

func (s *SQLiteStateStore) Save(ctx context.Context, states []player.SaveState) error {
	return s.repo.SavePlayerStates(ctx, states)
}

// JSONStateStore keeps the player registry in one JSON array file.
type JSONStateStore struct {
	path string
}

func NewJSONStateStore(path string) *JSONStateStore {
	return &JSONStateStore{path: path}
}

func (s *JSONStateStore) Path() string { return s.path }

// Load returns an empty registry when the file does not exist.
func (s *JSONStateStore) Load(context.Context) ([]player.SaveState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var states []player.SaveState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	return states, nil
}

func (s *JSONStateStore) Save(_ context.Context, states []player.SaveState) error {
	if states == nil {
		states = []player.SaveState{}
	}
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes to a sibling temp file, syncs it and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
