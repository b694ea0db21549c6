// Package config holds process configuration. Values come from flags,
// TRIVIA_* environment variables and an optional .env file, in that order
// of precedence.
package config

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const EnvPrefix = "TRIVIA"

type Config struct {
	Bind         string
	Port         int
	HostToken    string
	DatabaseURL  string
	PublicURL    string
	OutboxSize   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	SaveTimeout  time.Duration
	AllowOrigins []string
	LogLevel     string
	Development  bool
}

func (c *Config) Validate() error {
	if c.HostToken == "" {
		return errors.New("a host token is required (--host-token or TRIVIA_HOST_TOKEN)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.OutboxSize < 1 {
		return fmt.Errorf("invalid outbox size: %d", c.OutboxSize)
	}
	if c.WriteTimeout <= 0 || c.PingInterval <= 0 || c.SaveTimeout <= 0 {
		return errors.New("timeouts and intervals must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// IsHost reports whether token grants host capability.
func (c *Config) IsHost(token string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.HostToken)) == 1
}

// BindFlags registers every setting on fs with its default.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: TRIVIA_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: TRIVIA_PORT)")
	fs.StringVar(&cfg.HostToken, "host-token", "", "shared secret granting host actions (env: TRIVIA_HOST_TOKEN)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN; empty keeps the catalog in memory (env: TRIVIA_DATABASE_URL)")
	fs.StringVar(&cfg.PublicURL, "public-url", "http://localhost:8080", "base URL encoded in join QR codes (env: TRIVIA_PUBLIC_URL)")
	fs.IntVar(&cfg.OutboxSize, "outbox-size", 32, "frames buffered per socket before it is dropped (env: TRIVIA_OUTBOX_SIZE)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", 5*time.Second, "time allowed for one socket write (env: TRIVIA_WRITE_TIMEOUT)")
	fs.DurationVar(&cfg.PingInterval, "ping-interval", 25*time.Second, "socket keepalive interval (env: TRIVIA_PING_INTERVAL)")
	fs.DurationVar(&cfg.SaveTimeout, "save-timeout", 5*time.Second, "time allowed to persist one session (env: TRIVIA_SAVE_TIMEOUT)")
	fs.StringSliceVar(&cfg.AllowOrigins, "allow-origins", nil, "extra websocket origin patterns (env: TRIVIA_ALLOW_ORIGINS)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: TRIVIA_LOG_LEVEL)")
	fs.BoolVar(&cfg.Development, "dev", false, "human readable logs (env: TRIVIA_DEV)")
}

// ApplyEnv loads envFile if it exists and fills every flag the user did not
// set explicitly from TRIVIA_* variables.
func ApplyEnv(flags *pflag.FlagSet, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if setErr := flags.Set(f.Name, v.GetString(f.Name)); setErr != nil {
				err = multierr.Append(err, fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), setErr))
			}
		}
	})
	return err
}
