package config

import "time"

type Config struct {
	DiscordToken          string        `env:"DISCORD_TOKEN"`
	SpotifyClientID       string        `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret   string        `env:"SPOTIFY_CLIENT_SECRET"`
	DataDir               string        `env:"DATA_DIR" envDefault:"./data"`
	SoundsDir             string        `env:"SOUNDS_DIR" envDefault:"./sounds"`
	CacheDir              string        `env:"CACHE_DIR"`
	CacheLimitBytes       int64         `env:"CACHE_LIMIT" envDefault:"536870912"`
	StateBackend          string        `env:"STATE_BACKEND" envDefault:"json"` // json/sqlite
	StateFile             string        `env:"STATE_FILE"`
	BotStatus             string        `env:"BOT_STATUS" envDefault:"online"` // online/dnd/idle
	BotActivity           string        `env:"BOT_ACTIVITY" envDefault:"sounds"`
	RegisterCommandsOnBot bool          `env:"REGISTER_COMMANDS_ON_BOT" envDefault:"false"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat             string        `env:"LOG_FORMAT" envDefault:"text"`
	JoinTimeout           time.Duration `env:"JOIN_TIMEOUT" envDefault:"15s"`
	FeedbackPerSecond     float64       `env:"FEEDBACK_PER_SECOND" envDefault:"2"`
	EnableImport          bool          `env:"ENABLE_IMPORT" envDefault:"false"`
}

const (
	StateBackendJSON   = "json"
	StateBackendSQLite = "sqlite"
)
