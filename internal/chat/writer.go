package chat

import (
	"bufio"
	"fmt"
	"time"
)

func (c *Conn) writeLoop() {
	defer close(c.done)
	defer c.netConn.Close()

	w := bufio.NewWriter(c.netConn)
	for line := range c.out {
		if c.writeTimeout > 0 {
			_ = c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		_, err := w.WriteString(line + "\n")
		// Batch whatever is already queued into one flush.
		if err == nil && len(c.out) == 0 {
			err = w.Flush()
		}
		if err != nil {
			c.failWrite(fmt.Errorf("write: %w", err))
			return
		}
	}
	if c.writeTimeout > 0 {
		_ = c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_ = w.Flush()
}

// failWrite records the first write error; later Sends return it and the
// deferred transport close unblocks the session's reader.
func (c *Conn) failWrite(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr == nil {
		c.writeErr = err
	}
}
