package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_EmptyInputUsesDefaults(t *testing.T) {
	req := require.New(t)

	var server Server
	req.NoError(Parse(strings.NewReader(""), &server))
	req.Equal("localhost", server.Host)
	req.Equal(8085, server.Port)
	req.Equal("server.log", server.LogFilename)
	req.Equal("", server.MetricsAddr)
	req.Equal(64, server.SendQueueSize)
	req.Equal(10*time.Second, server.WriteTimeout)
	req.Equal("localhost:8085", server.Addr())
	req.Equal(slog.LevelInfo, server.Level())

	var client Client
	req.NoError(Parse(strings.NewReader(""), &client))
	req.Equal("client.log", client.LogFilename)
	req.True(client.Colors)
	req.Equal(10*time.Second, client.WriteTimeout)
	req.Equal("localhost:8085", client.Addr())
}

func TestParse_OverridesPresentKeysOnly(t *testing.T) {
	req := require.New(t)
	settings := `
# chat settings
host=10.0.0.7
port=9000
logLevel=debug
`
	var client Client
	req.NoError(Parse(strings.NewReader(settings), &client))
	req.Equal("10.0.0.7", client.Host)
	req.Equal(9000, client.Port)
	req.Equal("client.log", client.LogFilename)
	req.Equal(slog.LevelDebug, client.Level())
}

func TestParse_MalformedValuesFail(t *testing.T) {
	cases := map[string]string{
		"non numeric port": "port=eighty",
		"port out of range": "port=70000",
		"unknown log level": "logLevel=verbose",
		"bad duration":      "writeTimeout=soon",
	}
	for name, settings := range cases {
		t.Run(name, func(t *testing.T) {
			var server Server
			err := Parse(strings.NewReader(settings), &server)
			require.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	req := require.New(t)

	var server Server
	err := Load(filepath.Join(t.TempDir(), "settings.txt"), &server, nil)

	req.NoError(err)
	req.Equal(8085, server.Port)
	req.Equal("server.log", server.LogFilename)
}

func TestLoad_ReadsFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "settings.txt")
	req.NoError(os.WriteFile(path, []byte("logFilename=/var/log/chat.log\nmetricsAddr=:9090\n"), 0o644))

	var server Server
	req.NoError(Load(path, &server, nil))
	req.Equal("/var/log/chat.log", server.LogFilename)
	req.Equal(":9090", server.MetricsAddr)
}
