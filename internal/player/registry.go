package player

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
)

// Registry holds one Player per guild for the life of the process.
// Players are created on first use and never removed.
type Registry struct {
	store   StateStore
	timeout time.Duration
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	players map[string]*Player

	saveMu sync.Mutex
}

// NewRegistry creates an empty registry. store may be nil, which turns
// persistence off. joinTimeout bounds every voice join.
func NewRegistry(store StateStore, joinTimeout time.Duration) *Registry {
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:   store,
		timeout: joinTimeout,
		log:     logger.WithComponent("registry"),
		ctx:     ctx,
		cancel:  cancel,
		players: make(map[string]*Player),
	}
}

func (r *Registry) joinTimeout() time.Duration { return r.timeout }

// context is used for work started by playback completions rather than by
// a command.
func (r *Registry) context() context.Context { return r.ctx }

func (r *Registry) Get(guildID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[guildID]; ok {
		return p
	}
	p := newPlayer(r, guildID)
	r.players[guildID] = p
	return p
}

func (r *Registry) Peek(guildID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[guildID]
}

// IDs lists the registered guilds, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (r *Registry) all() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

// Snapshot is the save state of every player, ordered by guild id.
func (r *Registry) Snapshot() []SaveState {
	players := r.all()
	out := make([]SaveState, 0, len(players))
	for _, p := range players {
		out = append(out, p.SaveState())
	}
	slices.SortFunc(out, func(a, b SaveState) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Persist writes the whole registry to the store.
func (r *Registry) Persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	states := r.Snapshot()
	if err := r.store.Save(ctx, states); err != nil {
		return fmt.Errorf("save %d player states: %w", len(states), err)
	}
	r.log.Debug("player registry saved", "players", len(states))
	return nil
}

// Load restores saved players, resolving channel ids through resolver.
// Ids that no longer resolve are dropped. A player created before Load
// takes the saved settings unless something already configured it live.
func (r *Registry) Load(ctx context.Context, resolver platform.ChannelResolver) error {
	if r.store == nil {
		return nil
	}
	states, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load player states: %w", err)
	}

	loaded := 0
	for _, st := range states {
		if st.ID == "" {
			continue
		}

		var vc platform.VoiceChannel
		if st.BoundVoiceChannelID != "" {
			if ch, ok := resolver.VoiceChannel(st.BoundVoiceChannelID); ok {
				vc = ch
			} else {
				r.log.Debug("dropping unresolved voice channel", "guildID", st.ID, "channelID", st.BoundVoiceChannelID)
			}
		}
		var tc platform.TextChannel
		if st.FeedbackChannelID != "" {
			if ch, ok := resolver.TextChannel(st.FeedbackChannelID); ok {
				tc = ch
			} else {
				r.log.Debug("dropping unresolved feedback channel", "guildID", st.ID, "channelID", st.FeedbackChannelID)
			}
		}

		if !r.Get(st.ID).restore(st.JoinAndPlay, vc, tc) {
			r.log.Debug("keeping live settings", "guildID", st.ID)
			continue
		}
		loaded++
	}

	r.log.Info("player registry loaded", "players", loaded)
	return nil
}

// Close leaves every voice channel and stops background work.
func (r *Registry) Close(ctx context.Context) {
	r.cancel()
	for _, p := range r.all() {
		if _, ok := p.session.Channel(); ok {
			if _, err := p.session.Leave(ctx); err != nil {
				r.log.Warn("leave on shutdown failed", "guildID", p.id, "err", err)
			}
		}
	}
}
