package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaboard/internal/autocomplete"
	"github.com/sonroyaalmerol/kumaboard/internal/config"
	"github.com/sonroyaalmerol/kumaboard/internal/importer"
	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/nameres"
	"github.com/sonroyaalmerol/kumaboard/internal/platform"
	"github.com/sonroyaalmerol/kumaboard/internal/player"
	"github.com/sonroyaalmerol/kumaboard/internal/repository"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/ui"
)

// MessageContexter builds name resolution context from an interaction.
type MessageContexter interface {
	MessageContext(i *discordgo.InteractionCreate) (platform.MessageContext, error)
}

type CommandHandler struct {
	cfg      *config.Config
	registry *player.Registry
	catalog  *sound.Catalog
	aliases  *repository.AliasService
	importer *importer.Importer
	resolver platform.ChannelResolver
	messages MessageContexter
	log      *slog.Logger
}

// NewCommandHandler wires the commands. aliases and imp may be nil.
func NewCommandHandler(
	cfg *config.Config,
	registry *player.Registry,
	catalog *sound.Catalog,
	aliases *repository.AliasService,
	imp *importer.Importer,
	resolver platform.ChannelResolver,
	messages MessageContexter,
) *CommandHandler {
	return &CommandHandler{
		cfg:      cfg,
		registry: registry,
		catalog:  catalog,
		aliases:  aliases,
		importer: imp,
		resolver: resolver,
		messages: messages,
		log:      logger.WithComponent("commands"),
	}
}

func commandDefinitions(withImport bool) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Queue a sound by name",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "sound", Description: "sound or alias name", Type: discordgo.ApplicationCommandOptionString, Required: true, Autocomplete: true},
			},
		},
		{Name: "random", Description: "Queue a random sound"},
		{Name: "start", Description: "Start playing the queue"},
		{Name: "skip", Description: "Skip to the next sound"},
		{Name: "stop", Description: "Stop the current sound"},
		{Name: "clear", Description: "Clear the queue"},
		{Name: "remove-next", Description: "Remove the next sound from the queue"},
		{
			Name:        "queue",
			Description: "Show the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "page", Description: "page to show [default: plain listing]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{
			Name:        "join",
			Description: "Join a voice channel and bind it",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "target", Description: "channel or member name", Type: discordgo.ApplicationCommandOptionString},
				{Name: "member", Description: "join this member's channel", Type: discordgo.ApplicationCommandOptionUser},
			},
		},
		{Name: "leave", Description: "Leave the voice channel"},
		{
			Name:        "join-and-play",
			Description: "Join on add and leave when the queue runs out",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
			},
		},
		{Name: "feedback-here", Description: "Send player messages to this channel"},
		{
			Name:        "sounds",
			Description: "List available sounds",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "page", Description: "page to show [default: 1]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{Name: "refresh", Description: "Rescan the sound directory"},
		{Name: "status", Description: "Show player status"},
		{
			Name:        "alias",
			Description: "Manage sound aliases",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "create an alias",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "alias", Type: discordgo.ApplicationCommandOptionString, Required: true},
						{Name: "sound", Description: "sound name", Type: discordgo.ApplicationCommandOptionString, Required: true, Autocomplete: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "remove an alias",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "alias", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "list aliases",
				},
			},
		},
	}
	if withImport {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        "import",
			Description: "Download a new sound from a URL or Spotify track",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "source", Description: "URL or Spotify track link", Type: discordgo.ApplicationCommandOptionString, Required: true},
				{Name: "name", Description: "name of the new sound", Type: discordgo.ApplicationCommandOptionString, Required: true},
			},
		})
	}
	return cmds
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID string, guildID string) error {
	start := time.Now()
	h.log.Info("registering application commands", "appID", appID, "guildID", guildID)

	cmds := commandDefinitions(h.importer != nil)
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, cmds); err != nil {
		h.log.Error("failed to register application commands", "guildID", guildID, "err", err)
		return err
	}

	h.log.Info("finished registering commands", "guildID", guildID, "count", len(cmds), "took", time.Since(start))
	return nil
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.log.Debug("interaction: application command", "guildID", i.GuildID, "userID", userIDOf(i), "command", i.ApplicationCommandData().Name)
		h.handleChatCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(s, i)
	default:
		h.log.Debug("interaction: ignored type", "type", i.Type, "guildID", i.GuildID)
	}
}

func focusedValue(opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	for _, opt := range opts {
		if opt.Focused {
			return opt.StringValue()
		}
		if v := focusedValue(opt.Options); v != "" {
			return v
		}
	}
	return ""
}

func (h *CommandHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	query := focusedValue(i.ApplicationCommandData().Options)
	choices := autocomplete.SoundSuggestions(h.catalog.Names(), query, autocomplete.MaxChoices)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}); err != nil {
		h.log.Debug("autocomplete respond failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) handleChatCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	ctx := context.Background()
	p := h.registry.Get(i.GuildID)
	h.bindFeedback(ctx, p, i.ChannelID)

	switch data.Name {
	case "play":
		h.respond(s, i, func() (string, error) {
			return h.addByName(ctx, p, optString(data.Options, "sound"))
		})
	case "random":
		h.respond(s, i, func() (string, error) {
			return h.addRandom(ctx, p)
		})
	case "start":
		h.respond(s, i, func() (string, error) {
			p.Play(ctx)
			return "Starting playback", nil
		})
	case "skip":
		h.respond(s, i, func() (string, error) {
			p.Skip(ctx)
			return "Skipping", nil
		})
	case "stop":
		h.respond(s, i, func() (string, error) {
			p.Stop(ctx)
			return "Stopping", nil
		})
	case "clear":
		p.Clear()
		h.reply(s, i, "Queue cleared", true)
	case "remove-next":
		h.respond(s, i, func() (string, error) {
			p.RemoveNext()
			return "Removing next sound", nil
		})
	case "queue":
		h.cmdQueue(s, i, p)
	case "join":
		h.cmdJoin(ctx, s, i, p)
	case "leave":
		h.respond(s, i, func() (string, error) {
			p.Leave(ctx)
			return "Leaving", nil
		})
	case "join-and-play":
		v := optBool(data.Options, "value")
		p.SetJoinAndPlay(ctx, v)
		h.reply(s, i, "Join and play is now "+onOff(v), true)
	case "feedback-here":
		h.cmdFeedbackHere(ctx, s, i, p)
	case "sounds":
		h.cmdSounds(s, i)
	case "refresh":
		h.respond(s, i, func() (string, error) {
			if err := h.catalog.Refresh(); err != nil {
				return "", err
			}
			return "Loaded " + itoa(h.catalog.Len()) + " sounds", nil
		})
	case "status":
		h.replyEmbed(s, i, ui.BuildStatusEmbed(p), true)
	case "alias":
		h.cmdAlias(ctx, s, i)
	case "import":
		h.respond(s, i, func() (string, error) {
			return h.importSound(ctx, optString(data.Options, "source"), optString(data.Options, "name"))
		})
	default:
		h.log.Debug("unknown command", "name", data.Name, "guildID", i.GuildID, "userID", userIDOf(i))
	}
}

func (h *CommandHandler) cmdQueue(s *discordgo.Session, i *discordgo.InteractionCreate, p *player.Player) {
	page, ok := optInt(i.ApplicationCommandData().Options, "page")
	if !ok {
		h.reply(s, i, queueReply(p), true)
		return
	}
	embed, err := ui.BuildQueueEmbed(p, page, 10)
	if err != nil {
		h.reply(s, i, errorReply(err), true)
		return
	}
	h.replyEmbed(s, i, embed, true)
}

func (h *CommandHandler) cmdJoin(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, p *player.Player) {
	h.respond(s, i, func() (string, error) {
		msg, err := h.messages.MessageContext(i)
		if err != nil {
			return "", err
		}
		args := nameres.ParseArgs(optString(i.ApplicationCommandData().Options, "target"))
		return h.joinTarget(ctx, p, msg, args)
	})
}

func (h *CommandHandler) cmdFeedbackHere(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, p *player.Player) {
	ch, ok := h.resolver.TextChannel(i.ChannelID)
	if !ok {
		h.reply(s, i, "Can't send messages to this channel.", true)
		return
	}
	p.SetFeedbackChannel(ctx, ch)
	h.reply(s, i, "Player messages will be sent to "+ch.String(), true)
}

func (h *CommandHandler) cmdSounds(s *discordgo.Session, i *discordgo.InteractionCreate) {
	page, ok := optInt(i.ApplicationCommandData().Options, "page")
	if !ok {
		page = 1
	}
	embed, err := ui.BuildSoundsEmbed(h.catalog.Names(), page, 60)
	if err != nil {
		h.reply(s, i, errorReply(err), true)
		return
	}
	h.replyEmbed(s, i, embed, true)
}

func (h *CommandHandler) cmdAlias(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return
	}
	sub := opts[0]
	switch sub.Name {
	case "add":
		h.respond(s, i, func() (string, error) {
			return h.createAlias(ctx, i.GuildID, userIDOf(i), optString(sub.Options, "name"), optString(sub.Options, "sound"))
		})
	case "remove":
		h.respond(s, i, func() (string, error) {
			return h.removeAlias(ctx, i.GuildID, optString(sub.Options, "name"))
		})
	case "list":
		h.respond(s, i, func() (string, error) {
			return h.listAliases(ctx, i.GuildID)
		})
	}
}

// respond defers the reply, runs fn, and edits the reply with its result.
// Joins and imports can take longer than the interaction deadline.
func (h *CommandHandler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, fn func() (string, error)) {
	h.deferReply(s, i, true)
	msg, err := fn()
	if err != nil {
		h.log.Debug("command failed", "guildID", i.GuildID, "command", i.ApplicationCommandData().Name, "err", err)
		msg = errorReply(err)
	}
	h.editReply(s, i, msg)
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	}); err != nil {
		h.log.Warn("reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	}); err != nil {
		h.log.Warn("reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}); err != nil {
		h.log.Warn("defer reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		h.log.Warn("edit reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}
