// Package discord implements the platform interfaces over discordgo.
package discord

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/sonroyaalmerol/kumaboard/internal/cache"
	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
)

// Platform wraps a discordgo session for the audio core.
type Platform struct {
	s     *discordgo.Session
	cache *cache.FileCache
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	feedbackRate rate.Limit

	mu       sync.Mutex
	conns    map[string]*voiceConnection // by guild
	outboxes map[string]*outbox          // by text channel
}

// New creates the adapter. feedbackPerSecond throttles messages per text
// channel.
func New(s *discordgo.Session, fc *cache.FileCache, feedbackPerSecond float64) *Platform {
	ctx, cancel := context.WithCancel(context.Background())
	return &Platform{
		s:            s,
		cache:        fc,
		log:          logger.WithComponent("discord"),
		ctx:          ctx,
		cancel:       cancel,
		feedbackRate: rate.Limit(feedbackPerSecond),
		conns:        make(map[string]*voiceConnection),
		outboxes:     make(map[string]*outbox),
	}
}

// Close stops outbox workers and playbacks.
func (p *Platform) Close() {
	p.cancel()
}

func (p *Platform) channel(id string) (*discordgo.Channel, bool) {
	if id == "" {
		return nil, false
	}
	if ch, err := p.s.State.Channel(id); err == nil {
		return ch, true
	}
	ch, err := p.s.Channel(id)
	if err != nil {
		p.log.Debug("channel lookup failed", "channelID", id, "err", err)
		return nil, false
	}
	return ch, true
}

func isVoice(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildVoice || ch.Type == discordgo.ChannelTypeGuildStageVoice
}

func isText(ch *discordgo.Channel) bool {
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}

// VoiceChannel resolves a voice channel id.
func (p *Platform) VoiceChannel(id string) (platform.VoiceChannel, bool) {
	ch, ok := p.channel(id)
	if !ok || !isVoice(ch) {
		return nil, false
	}
	return &voiceChannel{p: p, ch: ch}, true
}

// TextChannel resolves a channel id that can take messages.
func (p *Platform) TextChannel(id string) (platform.TextChannel, bool) {
	ch, ok := p.channel(id)
	if !ok || !isText(ch) {
		return nil, false
	}
	return &textChannel{p: p, ch: ch}, true
}

var _ platform.ChannelResolver = (*Platform)(nil)
