package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/kumaboard/internal/nameres"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/player"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/utils"
)

var (
	ErrSoundNotFound   = errors.New("sound not found")
	ErrCatalogEmpty    = errors.New("no sounds available")
	ErrNoVoiceTarget   = errors.New("could not find a voice channel to join")
	ErrImportDisabled  = errors.New("importing is disabled")
	ErrAliasesDisabled = errors.New("aliases are not available")
)

// bindFeedback sets channelID as the feedback channel when the player has
// none yet.
func (h *CommandHandler) bindFeedback(ctx context.Context, p *player.Player, channelID string) {
	if _, ok := p.FeedbackChannel(); ok {
		return
	}
	ch, ok := h.resolver.TextChannel(channelID)
	if !ok {
		h.log.Debug("interaction channel is not a text channel", "guildID", p.ID(), "channelID", channelID)
		return
	}
	p.SetFeedbackChannel(ctx, ch)
	h.log.Info("feedback channel bound", "guildID", p.ID(), "channelID", channelID)
}

// lookupSound resolves name through the guild's aliases, then the catalog.
func (h *CommandHandler) lookupSound(ctx context.Context, guildID, name string) (*sound.FileSound, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrSoundNotFound
	}
	if h.aliases != nil {
		a, err := h.aliases.Use(ctx, guildID, name)
		switch {
		case err == nil:
			name = a.Sound
		case !errors.Is(err, sql.ErrNoRows):
			h.log.Warn("alias lookup failed", "guildID", guildID, "name", name, "err", err)
		}
	}
	s, ok := h.catalog.GetByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSoundNotFound, name)
	}
	return s, nil
}

func (h *CommandHandler) addByName(ctx context.Context, p *player.Player, name string) (string, error) {
	s, err := h.lookupSound(ctx, p.ID(), name)
	if err != nil {
		return "", err
	}
	p.Add(ctx, s)
	return "Queued " + utils.EscapeMd(s.Name()), nil
}

func (h *CommandHandler) addRandom(ctx context.Context, p *player.Player) (string, error) {
	s, ok := h.catalog.Random()
	if !ok {
		return "", ErrCatalogEmpty
	}
	p.Add(ctx, s)
	return "Queued " + utils.EscapeMd(s.Name()), nil
}

// joinTarget resolves the voice channel a join command points at and joins
// it. args is the free-text target split by nameres.ParseArgs.
func (h *CommandHandler) joinTarget(ctx context.Context, p *player.Player, msg platform.MessageContext, args []string) (string, error) {
	ch, ok := nameres.ResolveVoiceChannelFromMessage(args, msg)
	if !ok {
		return "", ErrNoVoiceTarget
	}
	p.Join(ctx, ch)
	return "Joining " + ch.String(), nil
}

func (h *CommandHandler) importSound(ctx context.Context, source, name string) (string, error) {
	if h.importer == nil {
		return "", ErrImportDisabled
	}
	key, err := h.importer.Import(ctx, source, name)
	if err != nil {
		return "", err
	}
	return "Imported " + utils.EscapeMd(key), nil
}

func (h *CommandHandler) createAlias(ctx context.Context, guildID, authorID, name, target string) (string, error) {
	if h.aliases == nil {
		return "", ErrAliasesDisabled
	}
	s, ok := h.catalog.GetByName(target)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSoundNotFound, target)
	}
	if err := h.aliases.Create(ctx, guildID, authorID, name, s.Name()); err != nil {
		return "", err
	}
	return fmt.Sprintf("Alias %s now plays %s", utils.EscapeMd(strings.ToLower(strings.TrimSpace(name))), utils.EscapeMd(s.Name())), nil
}

func (h *CommandHandler) removeAlias(ctx context.Context, guildID, name string) (string, error) {
	if h.aliases == nil {
		return "", ErrAliasesDisabled
	}
	n, err := h.aliases.Remove(ctx, guildID, name)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "No alias named " + utils.EscapeMd(name), nil
	}
	return "Removed alias " + utils.EscapeMd(name), nil
}

func (h *CommandHandler) listAliases(ctx context.Context, guildID string) (string, error) {
	if h.aliases == nil {
		return "", ErrAliasesDisabled
	}
	list, err := h.aliases.List(ctx, guildID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No aliases yet.", nil
	}
	var b strings.Builder
	for _, a := range list {
		fmt.Fprintf(&b, "`%s` → %s\n", a.Name, utils.EscapeMd(a.Sound))
	}
	return utils.Truncate(b.String(), 2000), nil
}

// queueReply is the queue listing cut to one message.
func queueReply(p *player.Player) string {
	if p.QueueLen() == 0 {
		return "The queue is empty."
	}
	return utils.Truncate(p.QueueListing(), 2000)
}

// errorReply turns a command error into user text.
func errorReply(err error) string {
	switch {
	case errors.Is(err, ErrSoundNotFound):
		return "Couldn't find that sound."
	case errors.Is(err, ErrCatalogEmpty):
		return "There are no sounds yet."
	case errors.Is(err, ErrNoVoiceTarget):
		return "Couldn't figure out which voice channel you meant. Join one or name it."
	case errors.Is(err, ErrImportDisabled):
		return "Importing sounds is disabled on this bot."
	case errors.Is(err, ErrAliasesDisabled):
		return "Aliases are not available."
	}
	return "Error: " + err.Error()
}
