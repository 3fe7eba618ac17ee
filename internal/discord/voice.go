package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/stream"
)

type voiceChannel struct {
	p  *Platform
	ch *discordgo.Channel
}

func (v *voiceChannel) ID() string     { return v.ch.ID }
func (v *voiceChannel) Name() string   { return v.ch.Name }
func (v *voiceChannel) String() string { return v.ch.Mention() }
func (v *voiceChannel) IsVoice() bool  { return true }

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Join connects deafened. discordgo's join does not take a context, so a
// join that outlives ctx is torn down when it completes.
func (v *voiceChannel) Join(ctx context.Context) (platform.VoiceConnection, error) {
	res := make(chan joinResult, 1)
	go func() {
		vc, err := v.p.s.ChannelVoiceJoin(v.ch.GuildID, v.ch.ID, false, true)
		res <- joinResult{vc, err}
	}()

	select {
	case r := <-res:
		if r.err != nil {
			return nil, r.err
		}
		return v.p.register(v.ch, r.vc), nil
	case <-ctx.Done():
		go func() {
			if r := <-res; r.err == nil && r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

func (p *Platform) register(ch *discordgo.Channel, vc *discordgo.VoiceConnection) *voiceConnection {
	conn := &voiceConnection{
		p:         p,
		vc:        vc,
		guildID:   ch.GuildID,
		channelID: ch.ID,
		closed:    make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.conns[ch.GuildID]
	p.conns[ch.GuildID] = conn
	p.mu.Unlock()

	if prev != nil && prev != conn {
		prev.markClosed()
	}
	return conn
}

func (p *Platform) unregister(conn *voiceConnection) {
	p.mu.Lock()
	if p.conns[conn.guildID] == conn {
		delete(p.conns, conn.guildID)
	}
	p.mu.Unlock()
}

// HandleVoiceStateUpdate closes our connection when the bot is removed from
// its voice channel by someone else.
func (p *Platform) HandleVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || vs.UserID != s.State.User.ID || vs.ChannelID != "" {
		return
	}

	p.mu.Lock()
	conn := p.conns[vs.GuildID]
	p.mu.Unlock()
	if conn == nil {
		return
	}
	// A late update for a channel we already left must not close the
	// connection that replaced it.
	if vs.BeforeUpdate != nil && vs.BeforeUpdate.ChannelID != "" && vs.BeforeUpdate.ChannelID != conn.channelID {
		return
	}

	p.log.Info("bot removed from voice", "guildID", vs.GuildID, "channelID", conn.channelID)
	p.unregister(conn)
	conn.markClosed()
	_ = conn.vc.Disconnect()
}

type voiceConnection struct {
	p         *Platform
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *voiceConnection) Closed() <-chan struct{} { return c.closed }

func (c *voiceConnection) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *voiceConnection) Disconnect(context.Context) error {
	c.p.unregister(c)
	c.markClosed()
	_ = c.vc.Speaking(false)
	return c.vc.Disconnect()
}

// Play transcodes path through the cache if needed and streams it. ctx
// only bounds the transcode; the stream runs until it ends, is stopped, or
// the connection closes.
func (c *voiceConnection) Play(ctx context.Context, path string) (platform.Playback, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	cached, err := c.p.cache.Fill(ctx, key, func(w io.Writer) error {
		return stream.Transcode(ctx, path, w)
	})
	if err != nil {
		return nil, fmt.Errorf("transcode %s: %w", path, err)
	}

	f, err := os.Open(cached)
	if err != nil {
		return nil, err
	}

	playCtx, cancel := context.WithCancel(c.p.ctx)
	pb := &playback{cancel: cancel, done: make(chan platform.Completion, 1)}

	go func() {
		select {
		case <-c.closed:
			pb.Stop("disconnected")
		case <-playCtx.Done():
		}
	}()

	go func() {
		defer f.Close()
		err := stream.PlayDCA(playCtx, c.vc, f)
		cancel()
		pb.finish(err)
	}()
	return pb, nil
}

type playback struct {
	cancel context.CancelFunc
	reason atomic.Pointer[string]
	done   chan platform.Completion
}

func (pb *playback) Done() <-chan platform.Completion { return pb.done }

func (pb *playback) Stop(reason string) {
	pb.reason.CompareAndSwap(nil, &reason)
	pb.cancel()
}

func (pb *playback) finish(err error) {
	if r := pb.reason.Load(); r != nil {
		pb.done <- platform.Finished(*r)
	} else if err == nil || errors.Is(err, context.Canceled) {
		pb.done <- platform.Finished("finished")
	} else {
		pb.done <- platform.Failure(err)
	}
	close(pb.done)
}
