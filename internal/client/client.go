// Package client relays a user's typed lines to the chat server and prints
// what the server sends back.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
)

const (
	exitCommand = "/exit"

	defaultWriteTimeout = 10 * time.Second
)

var ErrNotConnected = errors.New("not connected")

// ActivityLog records lines the user sent or received.
type ActivityLog interface {
	Record(message string)
}

type Config struct {
	Addr     string
	Username string
	Activity ActivityLog
	// Console receives server lines for the user to read.
	Console io.Writer
	Colors  bool
	// WriteTimeout bounds each line written to the server.
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

type Client struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Console == nil {
		cfg.Console = io.Discard
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &Client{cfg: cfg, logger: cfg.Logger}
}

// Run connects, sends the username and relays lines from input until the
// user types /exit, input ends, or ctx is cancelled. Lines from the server
// are printed and recorded by a separate goroutine that is not waited for;
// closing the connection on return ends it.
func (c *Client) Run(ctx context.Context, input io.Reader) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.Addr, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()
	// Cancelling ctx closes the connection, which unblocks a pending Send.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := c.writeLine(conn, c.cfg.Username); err != nil {
		return fmt.Errorf("send username: %w", err)
	}
	c.logger.Info("connected", "addr", c.cfg.Addr, "user", c.cfg.Username)

	go c.receive(conn)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := scanLines(ctx, input)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.Send(line); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if strings.EqualFold(line, exitCommand) {
				return nil
			}
		}
	}
}

// Send writes one line on the connection opened by Run and records it.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.writeLine(c.conn, line); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.record(line)
	return nil
}

// SendOnce opens a connection of its own, writes line, records it and
// closes the connection.
func (c *Client) SendOnce(ctx context.Context, line string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.Addr, err)
	}
	defer conn.Close()

	if err := c.writeLine(conn, line); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.record(line)
	return nil
}

func (c *Client) receive(conn net.Conn) {
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Text()
		fmt.Fprintln(c.cfg.Console, c.render(line))
		c.record(line)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Error("error receiving from server", "error", err)
		return
	}
	c.logger.Debug("server stream ended")
}

func (c *Client) render(line string) string {
	if !c.cfg.Colors {
		return line
	}
	switch {
	case line == "Welcome to the chat server!":
		return color.Green.Sprint(line)
	case strings.HasSuffix(line, " has joined the chat."), strings.HasSuffix(line, " has left the chat."):
		return color.Yellow.Sprint(line)
	default:
		return line
	}
}

func (c *Client) record(line string) {
	if c.cfg.Activity != nil {
		c.cfg.Activity.Record(line)
	}
}

// writeLine writes line under the configured deadline so a server that
// stops reading cannot hold c.mu forever.
func (c *Client) writeLine(conn net.Conn, line string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	_, err := io.WriteString(conn, line+"\n")
	return err
}

// scanLines feeds lines from r until r ends or ctx is done. A read blocked
// on r is abandoned, not interrupted.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
