package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
)

// ErrMissingAPIKey is returned when no narrator key is configured and the
// scripted narrator was not requested.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable is not set")

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	ImageAPIKey    string        `env:"IMAGE_API_KEY"`
	NarratorModel  string        `env:"NARRATOR_MODEL"      envDefault:"gemini-2.5-flash"`
	FastModel      string        `env:"NARRATOR_FAST_MODEL" envDefault:"gemini-2.5-flash-lite"`
	SaveDir        string        `env:"SAVE_DIR"            envDefault:".saves"`
	ArchivePath    string        `env:"ARCHIVE_PATH"        envDefault:".saves/archive.db"`
	HTTPAddr       string        `env:"HTTP_ADDR"           envDefault:":8080"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS"     envDefault:"*" envSeparator:","`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL"    envDefault:"2h"`
	DiceSeed       int64         `env:"DICE_SEED"`
	Offline        bool          `env:"OFFLINE"`
	DungeonFile    string        `env:"DUNGEON_FILE"`
	DebugLog       string        `env:"DEBUG_LOG"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.GeminiAPIKey == "" && !cfg.Offline {
		return nil, ErrMissingAPIKey
	}
	return &cfg, nil
}

// Layout returns the dungeon to play: DUNGEON_FILE when set, otherwise the
// built-in one.
func (c *Config) Layout() (*dungeon.Layout, error) {
	if c.DungeonFile == "" {
		return dungeon.Default(), nil
	}
	l, err := dungeon.Load(c.DungeonFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.DungeonFile, err)
	}
	return l, nil
}
