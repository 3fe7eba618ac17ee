// Package platform describes what the audio core needs from the chat and
// voice client. internal/discord implements it over discordgo.
package platform

import (
	"context"
	"fmt"
)

// StopRequested is the completion reason of a playback stopped on purpose.
const StopRequested = "requested"

type CompletionKind int

const (
	Completed CompletionKind = iota
	Failed
)

func (k CompletionKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("CompletionKind(%d)", int(k))
}

// Completion is the single terminal signal of a playback.
type Completion struct {
	Kind   CompletionKind
	Reason string
	Err    error
}

func Finished(reason string) Completion {
	return Completion{Kind: Completed, Reason: reason}
}

func Failure(err error) Completion {
	return Completion{Kind: Failed, Err: err}
}

// Playback is a stream in progress. Done yields exactly one Completion.
type Playback interface {
	Stop(reason string)
	Done() <-chan Completion
}

type VoiceConnection interface {
	// Play starts streaming the file at path. It returns once the stream
	// has started.
	Play(ctx context.Context, path string) (Playback, error)
	Disconnect(ctx context.Context) error
	// Closed is closed when the platform drops the connection.
	Closed() <-chan struct{}
}

type VoiceChannel interface {
	ID() string
	Name() string
	Join(ctx context.Context) (VoiceConnection, error)
	String() string
}

type TextChannel interface {
	ID() string
	Name() string
	Send(content string) error
	String() string
}

type Member interface {
	ID() string
	Username() string
	DisplayName() string
	// VoiceChannel is the channel the member is connected to, if any.
	VoiceChannel() (VoiceChannel, bool)
}

type GuildChannel interface {
	ID() string
	Name() string
	IsVoice() bool
}

type Guild interface {
	ID() string
	Member(id string) (Member, bool)
	Members() []Member
	Channels() []GuildChannel
	VoiceChannel(id string) (VoiceChannel, bool)
}

// ChannelResolver turns persisted ids back into live channels.
type ChannelResolver interface {
	VoiceChannel(id string) (VoiceChannel, bool)
	TextChannel(id string) (TextChannel, bool)
}

// MessageContext is the command invocation a channel is resolved from.
type MessageContext struct {
	Guild    Guild
	Author   Member
	Mentions []Member
}
