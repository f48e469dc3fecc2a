package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/andy6609/linechat/internal/activitylog"
	"github.com/andy6609/linechat/internal/client"
	"github.com/andy6609/linechat/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settingsPath := flag.String("settings", "settings.txt", "key=value settings file")
	flag.Parse()

	var cfg config.Client
	if err := config.Load(*settingsPath, &cfg, slog.New(slog.NewTextHandler(os.Stderr, nil))); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Chat lines go to stdout; operational logs stay on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	stdin := bufio.NewReader(os.Stdin)
	fmt.Println("Enter your name:")
	name, err := stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read name: %w", err)
	}
	name = strings.TrimRight(name, "\r\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{
		Addr:         cfg.Addr(),
		Username:     name,
		Activity:     activitylog.New(cfg.LogFilename, logger),
		Console:      os.Stdout,
		Colors:       cfg.Colors,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       logger,
	})
	return c.Run(ctx, stdin)
}
