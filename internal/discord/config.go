package discord

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

var validate = newValidator()

// newValidator reports fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		return name
	})
	return v
}

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN" validate:"required"`
	DefaultPrefix string `env:"DEFAULT_PREFIX" envDefault:"S-" validate:"min=1,max=3"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogDev   bool   `env:"LOG_DEV" envDefault:"false"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite" validate:"oneof=sqlite badger"`
	Database     string `env:"DATABASE" envDefault:"harmony.db"`
	BadgerPath   string `env:"BADGER_PATH" envDefault:"harmony-kv"`

	SubsonicURL      string `env:"SUBSONIC_URL" validate:"required"`
	SubsonicUser     string `env:"SUBSONIC_USER" validate:"required"`
	SubsonicPassword string `env:"SUBSONIC_PASSWORD" validate:"required"`

	FFmpegPath       string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFmpegBitrate    int    `env:"FFMPEG_BITRATE" envDefault:"96" validate:"min=8,max=510"`
	CompressionLevel int    `env:"COMPRESSION_LEVEL" envDefault:"3" validate:"min=0,max=10"`

	InviteURL  string `env:"INVITE_URL" validate:"omitempty,url"`
	SupportURL string `env:"SUPPORT_URL" validate:"omitempty,url"`

	// CommandRate is commands per second per user; 0 disables the limit.
	CommandRate  float64 `env:"COMMAND_RATE" envDefault:"2" validate:"gte=0"`
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"5" validate:"min=1"`
}

// Load reads envFile (or .env when empty, if present) into the process
// environment and parses the configuration from it.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q check", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	u, err := url.ParseRequestURI(c.SubsonicURL)
	if err != nil {
		return fmt.Errorf("invalid SUBSONIC_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid SUBSONIC_URL scheme: %s (must be http or https)", u.Scheme)
	}
	return nil
}
