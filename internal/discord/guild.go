package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
)

type guild struct {
	p  *Platform
	id string
}

// Guild returns a view of a guild backed by the session state cache.
func (p *Platform) Guild(guildID string) (platform.Guild, error) {
	if _, err := p.s.State.Guild(guildID); err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}
	return &guild{p: p, id: guildID}, nil
}

func (g *guild) ID() string { return g.id }

func (g *guild) Member(id string) (platform.Member, bool) {
	m, err := g.p.s.State.Member(g.id, id)
	if err != nil {
		m, err = g.p.s.GuildMember(g.id, id)
		if err != nil {
			return nil, false
		}
	}
	return g.p.wrapMember(g.id, m), true
}

func (g *guild) Members() []platform.Member {
	gs, err := g.p.s.State.Guild(g.id)
	if err != nil {
		return nil
	}
	g.p.s.State.RLock()
	defer g.p.s.State.RUnlock()

	out := make([]platform.Member, 0, len(gs.Members))
	for _, m := range gs.Members {
		if m.User == nil {
			continue
		}
		out = append(out, g.p.wrapMember(g.id, m))
	}
	return out
}

func (g *guild) Channels() []platform.GuildChannel {
	gs, err := g.p.s.State.Guild(g.id)
	if err != nil {
		return nil
	}
	g.p.s.State.RLock()
	defer g.p.s.State.RUnlock()

	out := make([]platform.GuildChannel, 0, len(gs.Channels))
	for _, ch := range gs.Channels {
		if isVoice(ch) {
			out = append(out, &voiceChannel{p: g.p, ch: ch})
		} else {
			out = append(out, &textChannel{p: g.p, ch: ch})
		}
	}
	return out
}

func (g *guild) VoiceChannel(id string) (platform.VoiceChannel, bool) {
	vc, ok := g.p.VoiceChannel(id)
	if !ok {
		return nil, false
	}
	if vc.(*voiceChannel).ch.GuildID != g.id {
		return nil, false
	}
	return vc, true
}

type member struct {
	p       *Platform
	guildID string
	m       *discordgo.Member
}

func (p *Platform) wrapMember(guildID string, m *discordgo.Member) platform.Member {
	return &member{p: p, guildID: guildID, m: m}
}

// Member resolves a member by id in guildID.
func (p *Platform) Member(guildID, userID string) (platform.Member, bool) {
	g := &guild{p: p, id: guildID}
	return g.Member(userID)
}

func (m *member) ID() string       { return m.m.User.ID }
func (m *member) Username() string { return m.m.User.Username }

func (m *member) DisplayName() string {
	if m.m.Nick != "" {
		return m.m.Nick
	}
	if m.m.User.GlobalName != "" {
		return m.m.User.GlobalName
	}
	return m.m.User.Username
}

func (m *member) VoiceChannel() (platform.VoiceChannel, bool) {
	vs, err := m.p.s.State.VoiceState(m.guildID, m.m.User.ID)
	if err != nil || vs.ChannelID == "" {
		return nil, false
	}
	return m.p.VoiceChannel(vs.ChannelID)
}

// MessageContext builds the resolution context of an interaction. Mentions
// are taken from user options.
func (p *Platform) MessageContext(i *discordgo.InteractionCreate) (platform.MessageContext, error) {
	g, err := p.Guild(i.GuildID)
	if err != nil {
		return platform.MessageContext{}, err
	}
	mc := platform.MessageContext{Guild: g}
	if i.Member != nil && i.Member.User != nil {
		mc.Author = p.wrapMember(i.GuildID, i.Member)
	}

	if i.Type != discordgo.InteractionApplicationCommand && i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return mc, nil
	}
	data := i.ApplicationCommandData()
	if data.Resolved == nil {
		return mc, nil
	}
	for id, u := range data.Resolved.Users {
		if rm, ok := data.Resolved.Members[id]; ok {
			rm.User = u
			mc.Mentions = append(mc.Mentions, p.wrapMember(i.GuildID, rm))
			continue
		}
		if mem, ok := g.Member(id); ok {
			mc.Mentions = append(mc.Mentions, mem)
		}
	}
	return mc, nil
}
