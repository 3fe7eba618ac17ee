// Package platformtest has in-memory platform implementations for tests.
// Playbacks never finish on their own; tests drive them.
package platformtest

import (
	"context"
	"sync"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
)

type Playback struct {
	Path string

	once sync.Once
	done chan platform.Completion
}

func NewPlayback(path string) *Playback {
	return &Playback{Path: path, done: make(chan platform.Completion, 1)}
}

func (p *Playback) Done() <-chan platform.Completion { return p.done }

func (p *Playback) Stop(reason string) { p.complete(platform.Finished(reason)) }

// Finish ends the playback as if the stream ran out.
func (p *Playback) Finish() { p.complete(platform.Finished("finished")) }

func (p *Playback) Fail(err error) { p.complete(platform.Failure(err)) }

func (p *Playback) complete(c platform.Completion) {
	p.once.Do(func() {
		p.done <- c
		close(p.done)
	})
}

type Connection struct {
	mu           sync.Mutex
	playbacks    []*Playback
	PlayErr      error
	disconnected bool
	closed       chan struct{}
	closeOnce    sync.Once
}

func NewConnection() *Connection {
	return &Connection{closed: make(chan struct{})}
}

func (c *Connection) Play(_ context.Context, path string) (platform.Playback, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PlayErr != nil {
		return nil, c.PlayErr
	}
	pb := NewPlayback(path)
	c.playbacks = append(c.playbacks, pb)
	return pb, nil
}

func (c *Connection) Disconnect(context.Context) error {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
	c.Drop()
	return nil
}

func (c *Connection) Closed() <-chan struct{} { return c.closed }

// Drop simulates the platform closing the connection.
func (c *Connection) Drop() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Connection) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

func (c *Connection) Playbacks() []*Playback {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Playback, len(c.playbacks))
	copy(out, c.playbacks)
	return out
}

// Last returns the most recent playback or nil.
func (c *Connection) Last() *Playback {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.playbacks) == 0 {
		return nil
	}
	return c.playbacks[len(c.playbacks)-1]
}

type VoiceChannel struct {
	IDValue   string
	NameValue string
	JoinErr   error
	// Gate, when set, blocks Join until it is closed or ctx ends.
	Gate chan struct{}

	mu    sync.Mutex
	conns []*Connection
}

func NewVoiceChannel(id, name string) *VoiceChannel {
	return &VoiceChannel{IDValue: id, NameValue: name}
}

func (v *VoiceChannel) ID() string     { return v.IDValue }
func (v *VoiceChannel) Name() string   { return v.NameValue }
func (v *VoiceChannel) String() string { return v.NameValue }

func (v *VoiceChannel) Join(ctx context.Context) (platform.VoiceConnection, error) {
	if v.Gate != nil {
		select {
		case <-v.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if v.JoinErr != nil {
		return nil, v.JoinErr
	}
	conn := NewConnection()
	v.mu.Lock()
	v.conns = append(v.conns, conn)
	v.mu.Unlock()
	return conn, nil
}

func (v *VoiceChannel) Joins() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.conns)
}

// Conn returns the connection made by the latest Join, or nil.
func (v *VoiceChannel) Conn() *Connection {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.conns) == 0 {
		return nil
	}
	return v.conns[len(v.conns)-1]
}

func (v *VoiceChannel) IsVoice() bool { return true }

type TextChannel struct {
	IDValue   string
	NameValue string

	mu       sync.Mutex
	messages []string
}

func NewTextChannel(id, name string) *TextChannel {
	return &TextChannel{IDValue: id, NameValue: name}
}

func (t *TextChannel) ID() string     { return t.IDValue }
func (t *TextChannel) Name() string   { return t.NameValue }
func (t *TextChannel) String() string { return "#" + t.NameValue }
func (t *TextChannel) IsVoice() bool  { return false }

func (t *TextChannel) Send(content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, content)
	return nil
}

func (t *TextChannel) Messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *TextChannel) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) == 0 {
		return ""
	}
	return t.messages[len(t.messages)-1]
}

type Member struct {
	IDValue       string
	UsernameValue string
	DisplayValue  string
	Channel       platform.VoiceChannel
}

func NewMember(id, username, display string) *Member {
	return &Member{IDValue: id, UsernameValue: username, DisplayValue: display}
}

func (m *Member) ID() string          { return m.IDValue }
func (m *Member) Username() string    { return m.UsernameValue }
func (m *Member) DisplayName() string { return m.DisplayValue }

func (m *Member) VoiceChannel() (platform.VoiceChannel, bool) {
	return m.Channel, m.Channel != nil
}

// InVoice places the member in ch.
func (m *Member) InVoice(ch platform.VoiceChannel) *Member {
	m.Channel = ch
	return m
}

type Guild struct {
	IDValue  string
	members  []platform.Member
	channels []platform.GuildChannel
}

func NewGuild(id string) *Guild {
	return &Guild{IDValue: id}
}

func (g *Guild) AddMember(m platform.Member) *Guild {
	g.members = append(g.members, m)
	return g
}

// AddChannel accepts *VoiceChannel or *TextChannel.
func (g *Guild) AddChannel(c platform.GuildChannel) *Guild {
	g.channels = append(g.channels, c)
	return g
}

func (g *Guild) ID() string { return g.IDValue }

func (g *Guild) Member(id string) (platform.Member, bool) {
	for _, m := range g.members {
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

func (g *Guild) Members() []platform.Member { return g.members }

func (g *Guild) Channels() []platform.GuildChannel { return g.channels }

func (g *Guild) VoiceChannel(id string) (platform.VoiceChannel, bool) {
	for _, c := range g.channels {
		if vc, ok := c.(platform.VoiceChannel); ok && c.IsVoice() && c.ID() == id {
			return vc, true
		}
	}
	return nil, false
}

// Resolver looks channels up by id.
type Resolver struct {
	Voice map[string]platform.VoiceChannel
	Text  map[string]platform.TextChannel
}

func NewResolver() *Resolver {
	return &Resolver{
		Voice: make(map[string]platform.VoiceChannel),
		Text:  make(map[string]platform.TextChannel),
	}
}

func (r *Resolver) AddVoice(ch platform.VoiceChannel) *Resolver {
	r.Voice[ch.ID()] = ch
	return r
}

func (r *Resolver) AddText(ch platform.TextChannel) *Resolver {
	r.Text[ch.ID()] = ch
	return r
}

func (r *Resolver) VoiceChannel(id string) (platform.VoiceChannel, bool) {
	ch, ok := r.Voice[id]
	return ch, ok
}

func (r *Resolver) TextChannel(id string) (platform.TextChannel, bool) {
	ch, ok := r.Text[id]
	return ch, ok
}
