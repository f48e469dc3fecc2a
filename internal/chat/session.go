package chat

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Session drives one connection from accept to close:
// Connecting → Joining → Active → Closing → Closed.
type Session struct {
	conn     *Conn
	registry *Registry
	activity ActivityLog
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	leaveOnce sync.Once
}

func NewSession(c *Conn, reg *Registry, activity ActivityLog, logger *slog.Logger) *Session {
	if activity == nil {
		activity = nopActivityLog{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:     c,
		registry: reg,
		activity: activity,
		logger:   logger.With("id", c.ID(), "addr", c.Addr()),
		state:    StateConnecting,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run blocks until the connection terminates.
func (s *Session) Run() {
	// The welcome is queued before registration so it is always the first
	// line on the stream, ahead of any broadcast.
	if err := s.conn.Send(WelcomeMessage); err != nil {
		s.logger.Debug("welcome not delivered", "error", err)
	}
	s.registry.Register(s.conn)
	defer s.leave()

	s.setState(StateJoining)
	name, err := s.conn.ReadLine()
	if err != nil {
		s.logger.Info("client left before joining", "error", err)
		return
	}
	s.conn.SetName(name)

	s.join()
	s.relay()
}

func (s *Session) join() {
	start := time.Now()
	name := s.conn.Name()
	s.setState(StateActive)

	line := joinedLine(name)
	s.registry.BroadcastExcept(s.conn, line)
	s.activity.Record(line)
	s.logger.Info("user joined", "user", name)

	MessagesTotal.WithLabelValues("join").Inc()
	FanoutDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
}

func (s *Session) relay() {
	name := s.conn.Name()
	for {
		text, err := s.conn.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("read failed", "user", name, "error", err)
			}
			return
		}
		if isExit(text) {
			return
		}

		start := time.Now()
		line := chatLine(name, text)
		s.registry.BroadcastExcept(s.conn, line)
		s.activity.Record(line)
		s.logger.Info("chat message", "user", name, "text", text)

		MessagesTotal.WithLabelValues("chat").Inc()
		FanoutDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	}
}

// leave runs on every exit path once the connection is registered, at most
// once. A connection that never sent a name leaves as UnnamedUser.
func (s *Session) leave() {
	s.leaveOnce.Do(func() {
		start := time.Now()
		name := s.conn.Name()
		if name == "" {
			name = UnnamedUser
		}
		s.setState(StateClosing)

		_ = s.conn.Close()
		s.registry.Deregister(s.conn)

		line := leftLine(name)
		s.registry.BroadcastExcept(s.conn, line)
		s.activity.Record(line)
		s.logger.Info("user left", "user", name)

		MessagesTotal.WithLabelValues("leave").Inc()
		FanoutDuration.WithLabelValues("leave").Observe(time.Since(start).Seconds())
		s.setState(StateClosed)
	})
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("session state", "from", prev.String(), "to", next.String())
}
