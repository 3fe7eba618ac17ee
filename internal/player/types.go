package player

import "context"

// SaveState is the persisted projection of a Player. The JSON field names
// are part of the state file format.
type SaveState struct {
	ID                  string `json:"Id"`
	JoinAndPlay         bool   `json:"JoinAndPlay"`
	BoundVoiceChannelID string `json:"BoundVoiceChannelId,omitempty"`
	FeedbackChannelID   string `json:"FeedbackChannelId,omitempty"`
}

// StateStore persists the whole registry at once.
type StateStore interface {
	Load(ctx context.Context) ([]SaveState, error)
	Save(ctx context.Context, states []SaveState) error
}

const musicalNote = " :musical_note: "

const (
	msgNothingQueued  = "Nothing in playlist"
	msgAlreadyPlaying = "Already playing"
	msgNoBoundChannel = "No voice channel to bind to"
	msgStopped        = "Playback stopped"
	msgAlreadyThere   = "Already there"
	msgNotInChannel   = "Not in a channel"
	queueHeader       = "The following sounds are in the queue:"
)
