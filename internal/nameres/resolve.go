package nameres

import "github.com/sonroyaalmerol/kumaboard/internal/platform"

// ResolveMember finds the guild member text refers to: an id first, then
// usernames, then display names. The two name passes are kept apart so a
// nickname cannot shadow someone else's username.
func ResolveMember(text string, guild platform.Guild) (platform.Member, bool) {
	if text == "" || guild == nil {
		return nil, false
	}
	if m, ok := guild.Member(text); ok {
		return m, true
	}
	return matchMember(guild.Members(), func(names []string) (string, bool) {
		return BestMatch(Normalize(text), names)
	})
}

func ResolveMemberFromArgs(args []string, guild platform.Guild) (platform.Member, bool) {
	if len(args) == 0 || guild == nil {
		return nil, false
	}
	targets := NormalizeAll(args)
	for _, id := range targets {
		if m, ok := guild.Member(id); ok {
			return m, true
		}
	}
	return matchMember(guild.Members(), func(names []string) (string, bool) {
		return BestMatchOfArray(targets, names)
	})
}

func matchMember(members []platform.Member, best func([]string) (string, bool)) (platform.Member, bool) {
	passes := []func(platform.Member) string{
		platform.Member.Username,
		platform.Member.DisplayName,
	}
	for _, name := range passes {
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = Normalize(name(m))
		}
		hit, ok := best(names)
		if !ok {
			continue
		}
		for i, m := range members {
			if names[i] == hit {
				return m, true
			}
		}
	}
	return nil, false
}

// ResolveVoiceChannel matches text against the guild's voice channel names.
func ResolveVoiceChannel(text string, guild platform.Guild) (platform.VoiceChannel, bool) {
	if text == "" || guild == nil {
		return nil, false
	}
	if ch, ok := guild.VoiceChannel(text); ok {
		return ch, true
	}
	return matchVoiceChannel(guild, func(names []string) (string, bool) {
		return BestMatch(Normalize(text), names)
	})
}

func ResolveVoiceChannelFromArgs(args []string, guild platform.Guild) (platform.VoiceChannel, bool) {
	if len(args) == 0 || guild == nil {
		return nil, false
	}
	for _, id := range args {
		if ch, ok := guild.VoiceChannel(id); ok {
			return ch, true
		}
	}
	targets := NormalizeAll(args)
	return matchVoiceChannel(guild, func(names []string) (string, bool) {
		return BestMatchOfArray(targets, names)
	})
}

func matchVoiceChannel(guild platform.Guild, best func([]string) (string, bool)) (platform.VoiceChannel, bool) {
	var voice []platform.GuildChannel
	var names []string
	for _, ch := range guild.Channels() {
		if !ch.IsVoice() {
			continue
		}
		voice = append(voice, ch)
		names = append(names, Normalize(ch.Name()))
	}

	hit, ok := best(names)
	if !ok {
		return nil, false
	}
	for i, ch := range voice {
		if names[i] == hit {
			return guild.VoiceChannel(ch.ID())
		}
	}
	return nil, false
}

// ResolveVoiceChannelFromMessage picks the voice channel a command refers
// to. In order: a mentioned member who is in voice, a member named in args,
// a channel named in args, and finally the author's own channel.
func ResolveVoiceChannelFromMessage(args []string, msg platform.MessageContext) (platform.VoiceChannel, bool) {
	for _, m := range msg.Mentions {
		if ch, ok := m.VoiceChannel(); ok {
			return ch, true
		}
	}

	if len(args) > 0 {
		if m, ok := ResolveMemberFromArgs(args, msg.Guild); ok {
			if ch, ok := m.VoiceChannel(); ok {
				return ch, true
			}
		}
		if ch, ok := ResolveVoiceChannelFromArgs(args, msg.Guild); ok {
			return ch, true
		}
	}

	if msg.Author != nil {
		return msg.Author.VoiceChannel()
	}
	return nil, false
}
