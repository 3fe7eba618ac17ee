// Package ui renders player state as Discord embeds.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/utils"
	"github.com/sonroyaalmerol/kumaboard/internal/voice"
)

const (
	colorPlaying = 0x006400
	colorIdle    = 0x8B0000
	colorInfo    = 0x1E90FF
)

var ErrPageOutOfRange = errors.New("the list isn't that big")

// PlayerView is the read side of a guild player.
type PlayerView interface {
	Status() voice.Status
	Current() (sound.Sound, bool)
	Queue() []sound.Sound
	VoiceChannel() (platform.VoiceChannel, bool)
	BoundVoiceChannel() (platform.VoiceChannel, bool)
	FeedbackChannel() (platform.TextChannel, bool)
	JoinAndPlay() bool
}

func soundTitle(s sound.Sound) string {
	return utils.EscapeMd(s.Name())
}

func channelOr(ch fmt.Stringer, ok bool) string {
	if !ok {
		return "-"
	}
	return ch.String()
}

func BuildStatusEmbed(p PlayerView) *discordgo.MessageEmbed {
	status := p.Status()
	title, color := "Not Playing", colorIdle
	desc := "Nothing is playing."
	if cur, ok := p.Current(); ok {
		title, color = "Now Playing", colorPlaying
		desc = fmt.Sprintf(":musical_note: **%s** :musical_note:", soundTitle(cur))
	}

	vc, vok := p.VoiceChannel()
	bound, bok := p.BoundVoiceChannel()
	fb, fok := p.FeedbackChannel()

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: status.String(), Inline: true},
			{Name: "In queue", Value: queueInfo(len(p.Queue())), Inline: true},
			{Name: "Join and play", Value: onOff(p.JoinAndPlay()), Inline: true},
			{Name: "Connected to", Value: channelOr(vc, vok), Inline: true},
			{Name: "Bound channel", Value: channelOr(bound, bok), Inline: true},
			{Name: "Feedback channel", Value: channelOr(fb, fok), Inline: true},
		},
	}
}

// BuildQueueEmbed lists one page of the queue.
func BuildQueueEmbed(p PlayerView, page, pageSize int) (*discordgo.MessageEmbed, error) {
	items := p.Queue()
	begin, end, pages, ok := utils.PageBounds(len(items), page, pageSize)
	if !ok {
		return nil, ErrPageOutOfRange
	}

	var b strings.Builder
	if cur, ok := p.Current(); ok {
		fmt.Fprintf(&b, "**Now playing:** %s\n\n", soundTitle(cur))
	}
	if len(items) == 0 {
		b.WriteString("The queue is empty.")
	} else {
		b.WriteString("**Up next:**\n")
		for i := begin; i < end; i++ {
			fmt.Fprintf(&b, "`%d.` %s\n", i+1, soundTitle(items[i]))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "In queue", Value: queueInfo(len(items)), Inline: true},
			{Name: "Page", Value: fmt.Sprintf("%d out of %d", page, pages), Inline: true},
		},
	}, nil
}

// BuildSoundsEmbed lists one page of catalog names.
func BuildSoundsEmbed(names []string, page, pageSize int) (*discordgo.MessageEmbed, error) {
	begin, end, pages, ok := utils.PageBounds(len(names), page, pageSize)
	if !ok {
		return nil, ErrPageOutOfRange
	}

	desc := "No sounds found."
	if len(names) > 0 {
		escaped := make([]string, 0, end-begin)
		for _, n := range names[begin:end] {
			escaped = append(escaped, "`"+n+"`")
		}
		desc = utils.Truncate(strings.Join(escaped, ", "), 4096)
	}

	return &discordgo.MessageEmbed{
		Title:       "Sounds",
		Description: desc,
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s · page %d of %d", utils.Plural(len(names), "sound", "sounds"), page, pages),
		},
	}, nil
}

func queueInfo(n int) string {
	if n == 0 {
		return "-"
	}
	return utils.Plural(n, "sound", "sounds")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
