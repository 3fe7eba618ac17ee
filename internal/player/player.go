package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/queue"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/voice"
)

// Player is one guild's soundboard: a queue of sounds, a voice session,
// the bound channels and the join-and-play setting. Every operation holds
// the player lock for its whole duration, joins included. The settings sit
// behind their own lock so reading or persisting them never waits on a join.
// Lock order is mu, then settingsMu.
type Player struct {
	id       string
	registry *Registry
	session  *voice.Session
	log      *slog.Logger

	mu    sync.Mutex
	queue *queue.Queue[sound.Sound]
	// halted is the stopped sound whose completion must not advance the queue.
	halted sound.Sound

	settingsMu sync.Mutex
	settings   settings
}

type settings struct {
	boundVoice  platform.VoiceChannel
	feedback    platform.TextChannel
	joinAndPlay bool
	// configured is set once any setting is written on the live player.
	configured bool
}

func newPlayer(r *Registry, id string) *Player {
	p := &Player{
		id:       id,
		registry: r,
		session:  voice.NewSession(id),
		log:      logger.WithGuild("player", id),
		queue:    queue.New[sound.Sound](),
	}
	p.session.Subscribe(p)
	return p
}

func (p *Player) ID() string { return p.id }

func (p *Player) Status() voice.Status { return p.session.Status() }

func (p *Player) Playing() bool { return p.session.Status() == voice.StatusPlaying }

// Connected reports an established voice connection.
func (p *Player) Connected() bool {
	st := p.session.Status()
	return st != voice.StatusDisconnected && st != voice.StatusJoining
}

// Current is the sound being played, if any.
func (p *Player) Current() (sound.Sound, bool) { return p.session.Current() }

// VoiceChannel is the channel the session is in, which may differ from the
// bound channel.
func (p *Player) VoiceChannel() (platform.VoiceChannel, bool) { return p.session.Channel() }

func (p *Player) current() settings {
	p.settingsMu.Lock()
	defer p.settingsMu.Unlock()
	return p.settings
}

func (p *Player) update(fn func(*settings)) {
	p.settingsMu.Lock()
	defer p.settingsMu.Unlock()
	fn(&p.settings)
	p.settings.configured = true
}

// restore applies saved settings unless the live player was already
// configured. It reports whether they were applied.
func (p *Player) restore(joinAndPlay bool, vc platform.VoiceChannel, tc platform.TextChannel) bool {
	p.settingsMu.Lock()
	defer p.settingsMu.Unlock()
	if p.settings.configured {
		return false
	}
	p.settings = settings{boundVoice: vc, feedback: tc, joinAndPlay: joinAndPlay}
	return true
}

func (p *Player) JoinAndPlay() bool { return p.current().joinAndPlay }

func (p *Player) BoundVoiceChannel() (platform.VoiceChannel, bool) {
	ch := p.current().boundVoice
	return ch, ch != nil
}

func (p *Player) FeedbackChannel() (platform.TextChannel, bool) {
	ch := p.current().feedback
	return ch, ch != nil
}

func (p *Player) SetJoinAndPlay(ctx context.Context, v bool) {
	p.update(func(s *settings) { s.joinAndPlay = v })
	p.persist(ctx)
}

func (p *Player) SetBoundVoiceChannel(ctx context.Context, ch platform.VoiceChannel) {
	p.update(func(s *settings) { s.boundVoice = ch })
	p.persist(ctx)
}

func (p *Player) SetFeedbackChannel(ctx context.Context, ch platform.TextChannel) {
	p.update(func(s *settings) { s.feedback = ch })
	p.persist(ctx)
}

// SaveState is the persisted view of the player.
func (p *Player) SaveState() SaveState {
	cur := p.current()
	st := SaveState{ID: p.id, JoinAndPlay: cur.joinAndPlay}
	if cur.boundVoice != nil {
		st.BoundVoiceChannelID = cur.boundVoice.ID()
	}
	if cur.feedback != nil {
		st.FeedbackChannelID = cur.feedback.ID()
	}
	return st
}

// persist snapshots the registry, but only once the player is registered.
// It must not be called with p.mu held.
func (p *Player) persist(ctx context.Context) {
	if p.registry == nil || p.registry.Peek(p.id) != p {
		return
	}
	if err := p.registry.Persist(ctx); err != nil {
		p.log.Error("persist player registry failed", "err", err)
	}
}

// sendFeedback must be called with p.mu held.
func (p *Player) sendFeedback(msg string) {
	ch := p.current().feedback
	if ch == nil {
		p.log.Debug("no feedback channel", "msg", msg)
		return
	}
	if err := ch.Send(msg); err != nil {
		p.log.Warn("send feedback failed", "channelID", ch.ID(), "err", err)
	}
}

// Add queues s and starts it right away when join-and-play is on and
// nothing is playing.
func (p *Player) Add(ctx context.Context, s sound.Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue.Enqueue(s)
	p.log.Debug("sound queued", "sound", s.String(), "queued", p.queue.Len())
	p.sendFeedback("Added" + musicalNote + s.String() + musicalNote + " for playback")

	if p.current().joinAndPlay && p.session.Status() != voice.StatusPlaying {
		p.playLocked(ctx)
	}
}

// RemoveNext drops the head of the queue without playing it.
func (p *Player) RemoveNext() {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.queue.Dequeue()
	if !ok {
		p.sendFeedback(msgNothingQueued)
		return
	}
	p.sendFeedback("Successfully removed" + musicalNote + s.String() + musicalNote)
}

// Clear empties the queue. The current sound keeps playing.
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.Clear()
}

func (p *Player) Play(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playLocked(ctx)
}

func (p *Player) playLocked(ctx context.Context) {
	status := p.session.Status()
	if status == voice.StatusPlaying {
		p.sendFeedback(msgAlreadyPlaying)
		return
	}
	if p.queue.IsEmpty() {
		p.sendFeedback(msgNothingQueued)
		return
	}
	bound := p.current().boundVoice
	if status == voice.StatusDisconnected && bound == nil {
		p.sendFeedback(msgNoBoundChannel)
		return
	}

	s, _ := p.queue.Dequeue()

	if status == voice.StatusDisconnected {
		if _, err := p.joinSession(ctx, bound); err != nil {
			p.log.Error("join before play failed", "channelID", bound.ID(), "err", err)
			p.sendFeedback(feedbackFor(err))
			return
		}
	}

	p.startLocked(ctx, s)
}

func (p *Player) startLocked(ctx context.Context, s sound.Sound) {
	msg, err := p.session.Play(ctx, s)
	if err != nil {
		p.log.Error("play failed", "sound", s.String(), "err", err)
		p.sendFeedback(feedbackFor(err))
		return
	}
	p.sendFeedback(msg)
}

func (p *Player) joinSession(ctx context.Context, ch platform.VoiceChannel) (string, error) {
	timeout := p.registry.joinTimeout()
	jctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.session.Join(jctx, ch)
}

// Skip ends the current sound so the next one starts. With an empty queue
// it behaves like Stop.
func (p *Player) Skip(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue.IsEmpty() {
		p.stopLocked(ctx)
		return
	}
	if _, err := p.session.Stop(); err != nil {
		p.sendFeedback(feedbackFor(err))
	}
}

// Stop ends the current sound without advancing, and leaves when
// join-and-play is on.
func (p *Player) Stop(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(ctx)
}

func (p *Player) stopLocked(ctx context.Context) {
	cur, _ := p.session.Current()
	if _, err := p.session.Stop(); err != nil {
		p.sendFeedback(feedbackFor(err))
		return
	}
	p.halted = cur
	p.sendFeedback(msgStopped)

	if p.current().joinAndPlay {
		p.leaveLocked(ctx)
	}
}

// Join binds ch as the voice channel and connects to it.
func (p *Player) Join(ctx context.Context, ch platform.VoiceChannel) {
	if !p.join(ctx, ch) {
		return
	}
	p.persist(ctx)
}

func (p *Player) join(ctx context.Context, ch platform.VoiceChannel) (rebound bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur, ok := p.session.Channel(); ok && cur.ID() == ch.ID() {
		p.sendFeedback(msgAlreadyThere)
		return false
	}

	p.update(func(s *settings) { s.boundVoice = ch })
	if _, err := p.joinSession(ctx, ch); err != nil {
		p.log.Error("join failed", "channelID", ch.ID(), "err", err)
		p.sendFeedback(feedbackFor(err))
		return true
	}
	p.sendFeedback("Joined " + ch.String() + " and set as bound voice channel")
	return true
}

func (p *Player) Leave(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leaveLocked(ctx)
}

func (p *Player) leaveLocked(ctx context.Context) {
	ch, ok := p.session.Channel()
	if !ok {
		p.sendFeedback(msgNotInChannel)
		return
	}
	p.halted = nil
	if _, err := p.session.Leave(ctx); err != nil {
		p.log.Error("leave failed", "err", err)
	}
	p.sendFeedback("Left " + ch.String())
}

// QueueListing renders the queue, 1-indexed, in playback order.
func (p *Player) QueueListing() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	b.WriteString(queueHeader)
	for i, s := range p.queue.Items() {
		fmt.Fprintf(&b, "\n\n%d. %s", i+1, s.String())
	}
	return b.String()
}

func (p *Player) Queue() []sound.Sound {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Items()
}

func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// SoundFinished advances the queue.
func (p *Player) SoundFinished(s sound.Sound) {
	p.log.Debug("sound finished", "sound", s.String())
	p.next(s)
}

// SoundFailed logs the failure and advances the queue.
func (p *Player) SoundFailed(s sound.Sound, err error) {
	p.log.Error("sound failed", "sound", s.String(), "err", err)
	p.next(s)
}

func (p *Player) next(done sound.Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if halted := p.halted; halted != nil {
		p.halted = nil
		if halted == done {
			return
		}
	}
	if p.session.Status() != voice.StatusWaiting {
		return
	}
	if p.queue.IsEmpty() {
		if p.current().joinAndPlay {
			p.leaveLocked(p.registry.context())
		}
		return
	}

	s, _ := p.queue.Dequeue()
	p.startLocked(p.registry.context(), s)
}

func feedbackFor(err error) string {
	switch {
	case errors.Is(err, voice.ErrNoConnection):
		return "No voice connection"
	case errors.Is(err, voice.ErrNotPlaying):
		return "Not currently playing"
	case errors.Is(err, voice.ErrJoinFailed):
		cause := strings.TrimPrefix(err.Error(), voice.ErrJoinFailed.Error()+": ")
		return "Could not join channel. Error: " + cause
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out talking to voice"
	}
	return "Something went wrong: " + err.Error()
}

// defaultJoinTimeout bounds a join when the registry sets none.
const defaultJoinTimeout = 15 * time.Second
