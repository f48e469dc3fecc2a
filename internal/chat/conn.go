package chat

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is one accepted transport stream with a line-oriented API.
//
// Outbound lines go through a bounded queue drained by a single writer
// goroutine, so concurrent Send calls never interleave and lines from one
// caller arrive in the order they were sent.
type Conn struct {
	id      string
	addr    string
	netConn net.Conn
	reader  *bufio.Reader

	writeTimeout time.Duration
	out          chan string
	done         chan struct{}

	mu       sync.Mutex
	name     string
	closed   bool
	writeErr error
}

func NewConn(nc net.Conn, queueSize int, writeTimeout time.Duration) *Conn {
	if queueSize <= 0 {
		queueSize = 64
	}
	c := &Conn{
		id:           uuid.NewString(),
		addr:         nc.RemoteAddr().String(),
		netConn:      nc,
		reader:       bufio.NewReader(nc),
		writeTimeout: writeTimeout,
		out:          make(chan string, queueSize),
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) ID() string { return c.id }

// Addr is the remote endpoint of the transport.
func (c *Conn) Addr() string { return c.addr }

func (c *Conn) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetName binds the display name. Only the first call has an effect.
func (c *Conn) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name == "" {
		c.name = name
	}
}

// Send queues line for delivery. It never blocks on the network.
func (c *Conn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.out <- line:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// ReadLine blocks until a full line arrives and returns it without the
// line terminator. A trailing line without terminator is returned before EOF.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}

// Close stops accepting new lines and unblocks a pending ReadLine. The
// transport itself is closed by the writer once queued lines are flushed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.out)
	c.mu.Unlock()

	_ = c.netConn.SetReadDeadline(time.Now())
	return nil
}

// Done is closed once the transport has been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }
