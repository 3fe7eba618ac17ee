package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaboard/internal/cache"
	"github.com/sonroyaalmerol/kumaboard/internal/config"
	"github.com/sonroyaalmerol/kumaboard/internal/discord"
	"github.com/sonroyaalmerol/kumaboard/internal/importer"
	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/player"
	"github.com/sonroyaalmerol/kumaboard/internal/repository"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
	"github.com/sonroyaalmerol/kumaboard/internal/spotify"
)

type Bot struct {
	cfg      *config.Config
	repo     *repository.Repo
	cache    *cache.FileCache
	catalog  *sound.Catalog
	registry *player.Registry
}

func NewBot(cfg *config.Config, repo *repository.Repo, fc *cache.FileCache, catalog *sound.Catalog, store player.StateStore) *Bot {
	return &Bot{
		cfg:      cfg,
		repo:     repo,
		cache:    fc,
		catalog:  catalog,
		registry: player.NewRegistry(store, cfg.JoinTimeout),
	}
}

func (b *Bot) newImporter(ctx context.Context) *importer.Importer {
	if !b.cfg.EnableImport {
		return nil
	}
	var sp *spotify.Client
	if b.cfg.SpotifyClientID != "" && b.cfg.SpotifyClientSecret != "" {
		sp = spotify.NewClientCredentials(ctx, b.cfg.SpotifyClientID, b.cfg.SpotifyClientSecret)
	}
	return importer.New(b.catalog, sp)
}

func (b *Bot) Run(ctx context.Context) error {
	log := logger.WithComponent("bot")

	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers

	pf := discord.New(dg, b.cache, b.cfg.FeedbackPerSecond)
	defer pf.Close()

	var aliases *repository.AliasService
	if b.repo != nil {
		aliases = repository.NewAliasService(b.repo)
	}
	cmd := NewCommandHandler(b.cfg, b.registry, b.catalog, aliases, b.newImporter(ctx), pf, pf)

	// Restore before the gateway opens so no interaction sees an empty player.
	// Channels resolve over REST until the state cache fills.
	if err := b.registry.Load(ctx, pf); err != nil {
		log.Error("load player registry failed", "err", err)
	}

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("connected", "user", s.State.User.Username, "guilds", len(r.Guilds))

		if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: b.cfg.BotStatus,
			Activities: []*discordgo.Activity{
				{Name: b.cfg.BotActivity, Type: discordgo.ActivityTypeListening},
			},
		}); err != nil {
			log.Warn("set presence failed", "err", err)
		}

		appID := s.State.User.ID
		if b.cfg.RegisterCommandsOnBot {
			if err := cmd.RegisterCommands(s, appID, ""); err != nil {
				log.Error("register global commands", "err", err)
			}
			return
		}

		var wg sync.WaitGroup
		for _, g := range r.Guilds {
			wg.Add(1)
			go func(guildID string) {
				defer wg.Done()
				if err := cmd.RegisterCommands(s, appID, guildID); err != nil {
					log.Error("register guild commands", "guildID", guildID, "err", err)
				}
			}(g.ID)
		}
		wg.Wait()

		if _, err := s.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{}); err != nil {
			log.Error("clear global commands", "err", err)
		}
		log.Info("registered commands on all guilds")
	})

	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if b.cfg.RegisterCommandsOnBot || s.State.User == nil {
			return
		}
		if err := cmd.RegisterCommands(s, s.State.User.ID, g.ID); err != nil {
			log.Error("register guild commands on join", "guildID", g.ID, "err", err)
		}
	})

	dg.AddHandler(cmd.HandleInteraction)
	dg.AddHandler(pf.HandleVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.registry.Close(shutdownCtx)
	if err := b.registry.Persist(shutdownCtx); err != nil {
		log.Error("final persist failed", "err", err)
	}
	if err := dg.Close(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("close session", "err", err)
	}
	return nil
}

