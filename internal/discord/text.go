package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// ErrOutboxFull is returned when a channel has too many unsent messages.
var ErrOutboxFull = errors.New("feedback outbox full")

const outboxSize = 32

type textChannel struct {
	p  *Platform
	ch *discordgo.Channel
}

func (t *textChannel) ID() string     { return t.ch.ID }
func (t *textChannel) Name() string   { return t.ch.Name }
func (t *textChannel) String() string { return t.ch.Mention() }
func (t *textChannel) IsVoice() bool  { return isVoice(t.ch) }

// Send queues content for ordered, rate-limited delivery.
func (t *textChannel) Send(content string) error {
	ob := t.p.outboxFor(t.ch.ID)
	select {
	case ob.msgs <- content:
		return nil
	default:
		return ErrOutboxFull
	}
}

type outbox struct {
	channelID string
	msgs      chan string
	limiter   *rate.Limiter
}

func (p *Platform) outboxFor(channelID string) *outbox {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ob, ok := p.outboxes[channelID]; ok {
		return ob
	}
	ob := &outbox{
		channelID: channelID,
		msgs:      make(chan string, outboxSize),
		limiter:   rate.NewLimiter(p.feedbackRate, 3),
	}
	p.outboxes[channelID] = ob
	go p.deliver(ob)
	return ob
}

func (p *Platform) deliver(ob *outbox) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case msg := <-ob.msgs:
			if err := ob.limiter.Wait(p.ctx); err != nil {
				return
			}
			if _, err := p.s.ChannelMessageSend(ob.channelID, msg); err != nil {
				p.log.Warn("feedback send failed", "channelID", ob.channelID, "err", err)
			}
		}
	}
}
