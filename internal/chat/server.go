package chat

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

type Options struct {
	// Addr is the host:port to listen on. Port 0 picks a free port.
	Addr string
	// SendQueueSize bounds the lines buffered per connection before the
	// connection is considered too slow and dropped.
	SendQueueSize int
	// WriteTimeout bounds a single network write to a peer.
	WriteTimeout time.Duration
	Activity     ActivityLog
}

type Server struct {
	opts     Options
	logger   *slog.Logger
	reg      *Registry
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Activity == nil {
		opts.Activity = nopActivityLog{}
	}
	return &Server{
		opts:   opts,
		logger: logger,
		reg:    NewRegistry(logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound listen address, valid after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Registry() *Registry { return s.reg }

// Stop closes the listener and waits for the accept loop to exit. Sessions
// already running are left to end on their own.
func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()

	s.logger.Info("shutdown complete", "connected", s.reg.Len())
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.logger.Info("client connected", "addr", nc.RemoteAddr().String())

		c := NewConn(nc, s.opts.SendQueueSize, s.opts.WriteTimeout)
		go NewSession(c, s.reg, s.opts.Activity, s.logger).Run()
	}
}
