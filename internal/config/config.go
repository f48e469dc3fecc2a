// Package config turns an optional key=value settings file into the typed
// settings records used by the server and the client.
//
// A missing file or a missing key falls back to the default in the struct
// tag. Values that are present but malformed are a startup failure.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var ErrInvalidSettings = errors.New("invalid settings")

var validate = validator.New()

// Server is the chat server's settings.
type Server struct {
	Host          string        `env:"host,default=localhost" validate:"required"`
	Port          int           `env:"port,default=8085" validate:"gte=0,lte=65535"`
	LogFilename   string        `env:"logFilename,default=server.log" validate:"required"`
	MetricsAddr   string        `env:"metricsAddr"`
	LogLevel      string        `env:"logLevel,default=info" validate:"oneof=debug info warn error"`
	SendQueueSize int           `env:"sendQueueSize,default=64" validate:"gt=0"`
	WriteTimeout  time.Duration `env:"writeTimeout,default=10s" validate:"gt=0"`
}

// Addr is the host:port the server listens on.
func (s Server) Addr() string { return joinHostPort(s.Host, s.Port) }

// Level is the slog level named by LogLevel.
func (s Server) Level() slog.Level { return parseLevel(s.LogLevel) }

// Client is the chat client's settings.
type Client struct {
	Host         string        `env:"host,default=localhost" validate:"required"`
	Port         int           `env:"port,default=8085" validate:"gte=1,lte=65535"`
	LogFilename  string        `env:"logFilename,default=client.log" validate:"required"`
	LogLevel     string        `env:"logLevel,default=info" validate:"oneof=debug info warn error"`
	Colors       bool          `env:"colors,default=true"`
	WriteTimeout time.Duration `env:"writeTimeout,default=10s" validate:"gt=0"`
}

// Addr is the host:port the client dials.
func (c Client) Addr() string { return joinHostPort(c.Host, c.Port) }

// Level is the slog level named by LogLevel.
func (c Client) Level() slog.Level { return parseLevel(c.LogLevel) }

// Parse reads key=value settings from r into out, which must be a pointer to
// Server or Client. Keys absent from r take their tagged defaults.
func Parse(r io.Reader, out any) error {
	vars, err := godotenv.Parse(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := env.Unmarshal(env.EnvSet(vars), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Load parses the settings file at path into out. A missing file yields the
// defaults silently; a file that exists but cannot be read is reported on
// logger and also yields the defaults.
func Load(path string, out any, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Parse(strings.NewReader(""), out)
	case err != nil:
		logger.Error("failed to load settings file, using defaults", "path", path, "error", err)
		return Parse(strings.NewReader(""), out)
	}
	defer f.Close()

	return Parse(f, out)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
