package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/kumaboard/internal/cache"
	"github.com/sonroyaalmerol/kumaboard/internal/config"
	"github.com/sonroyaalmerol/kumaboard/internal/handlers"
	"github.com/sonroyaalmerol/kumaboard/internal/logger"
	"github.com/sonroyaalmerol/kumaboard/internal/player"
	"github.com/sonroyaalmerol/kumaboard/internal/repository"
	"github.com/sonroyaalmerol/kumaboard/internal/sound"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kumaboard",
	Short: "A Discord soundboard bot",
	Long: `kumaboard keeps one sound player per guild. Sounds are the mp3 and wav
files of SOUNDS_DIR; guild settings survive restarts in the state store.`,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "dotenv file to load (default is ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(soundsCmd, stateCmd)
}

// loadConfig reads configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	var files []string
	if cfgFile != "" {
		files = append(files, cfgFile)
	}
	cfg, err := config.LoadConfig(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.Setup(level, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config, db *sql.DB) player.StateStore {
	if cfg.StateBackend == config.StateBackendSQLite {
		return repository.NewSQLiteStateStore(repository.NewRepo(db))
	}
	return repository.NewJSONStateStore(cfg.StateFile)
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := repository.OpenDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := repository.NewRepo(db)

	catalog := sound.NewCatalog()
	if err := catalog.Initialize(cfg.SoundsDir); err != nil {
		return err
	}

	fc := cache.NewFileCache(cfg.CacheDir, cfg.CacheLimitBytes, repo)
	bot := handlers.NewBot(cfg, repo, fc, catalog, openStore(cfg, db))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting kumaboard", "sounds", catalog.Len(), "stateBackend", cfg.StateBackend)
	return bot.Run(ctx)
}
