package preview

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"terragraph/internal/core"
)

const (
	writeWait = 5 * time.Second
	// sendQueue is how many messages a client may fall behind before it is
	// dropped.
	sendQueue = 64
)

// SafeWriter serializes writes to a websocket connection. Reads are not
// guarded and must come from a single goroutine.
type SafeWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewSafeWriter wraps conn.
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{conn: conn}
}

// WriteJSON sends v as a text frame.
func (w *SafeWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(v)
}

// ReadJSON reads the next text frame into v.
func (w *SafeWriter) ReadJSON(v any) error { return w.conn.ReadJSON(v) }

// Close closes the underlying connection. It may run concurrently with
// WriteJSON and unblocks a stalled write.
func (w *SafeWriter) Close() error { return w.conn.Close() }

type messageWriter interface {
	WriteJSON(v any) error
	Close() error
}

// client queues outgoing messages for one connection. A single writer
// goroutine drains the queue so senders never wait on the socket.
type client struct {
	w    messageWriter
	send chan Message
	quit chan struct{}
	once sync.Once
}

func newClient(w messageWriter) *client {
	return &client{w: w, send: make(chan Message, sendQueue), quit: make(chan struct{})}
}

// offer queues msg without blocking and reports whether it was accepted.
func (c *client) offer(msg Message) bool {
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// push queues msg, waiting for room until ctx ends or the client stops.
func (c *client) push(ctx context.Context, msg Message) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

// writeLoop drains the queue until the client stops. A failed write stops
// the client and closes the connection so its read loop returns.
func (c *client) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if err := c.w.WriteJSON(msg); err != nil {
				core.Logger().Debug("preview: write failed", "err", err)
				c.stop()
				return
			}
		case <-c.quit:
			return
		}
	}
}

// stop ends the writer and closes the connection. It is safe to call more
// than once.
func (c *client) stop() {
	c.once.Do(func() {
		close(c.quit)
		_ = c.w.Close()
	})
}
