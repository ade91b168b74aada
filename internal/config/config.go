package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string `env:"BATTLE_HTTP_ADDR" envDefault:":8080"`
	WSBaseURL    string `env:"BATTLE_WS_URL" envDefault:"ws://localhost:8000"`
	ArenaBaseURL string `env:"BATTLE_API_URL" envDefault:"http://localhost:8000/battle"`
	OperatorID   string `env:"BATTLE_OPERATOR_ID"`

	// Empty disables the turn log archive.
	DatabaseURL string `env:"BATTLE_DATABASE_URL"`

	LogLevel  string `env:"BATTLE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BATTLE_LOG_FORMAT" envDefault:"json"`

	MaxReconnectAttempts int           `env:"BATTLE_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectBaseDelay   time.Duration `env:"BATTLE_RECONNECT_BASE_DELAY" envDefault:"1s"`
}

var ErrInvalid = errors.New("invalid config")

// Load reads the optional dotenv files, then the environment. Variables
// already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: BATTLE_MAX_RECONNECT_ATTEMPTS must not be negative", ErrInvalid)
	}
	if c.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("%w: BATTLE_RECONNECT_BASE_DELAY must be positive", ErrInvalid)
	}
	if c.WSBaseURL == "" {
		return fmt.Errorf("%w: BATTLE_WS_URL is required", ErrInvalid)
	}
	return nil
}
