// Package config loads the server and client settings from the environment.
// Command-line flags in cmd/ may override the loaded values before Validate.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Server struct {
	Host         string        `env:"CHAT_HOST,default=127.0.0.1" validate:"required,hostname|ip"`
	Port         int           `env:"CHAT_PORT,default=9092" validate:"min=1,max=65535"`
	MetricsAddr  string        `env:"CHAT_METRICS_ADDR" validate:"omitempty,hostname_port"`
	MaxSessions  int           `env:"CHAT_MAX_SESSIONS,default=0" validate:"min=0"`
	IdleTimeout  time.Duration `env:"CHAT_IDLE_TIMEOUT,default=0s" validate:"min=0"`
	WriteTimeout time.Duration `env:"CHAT_WRITE_TIMEOUT,default=0s" validate:"min=0"`
	LogLevel     string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// LoadServer reads the server settings from environ (os.Environ() format).
func LoadServer(environ []string) (Server, error) {
	var cfg Server
	err := unmarshal(environ, &cfg)
	return cfg, err
}

func (c Server) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return nil
}

func (c Server) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Server) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

type Client struct {
	ServerAddr string `env:"CHAT_SERVER_ADDR,default=127.0.0.1:9092" validate:"required,hostname_port"`
	Name       string `env:"CHAT_NAME"`
	Colors     bool   `env:"CHAT_COLORS,default=true"`
}

// LoadClient reads the client settings from environ (os.Environ() format).
func LoadClient(environ []string) (Client, error) {
	var cfg Client
	err := unmarshal(environ, &cfg)
	return cfg, err
}

func unmarshal(environ []string, v any) error {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := env.Unmarshal(es, v); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

func (c Client) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}
	return nil
}

// LoadDotEnv fills unset variables from the given files. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ParseLevel maps a level name to slog.Level, falling back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
