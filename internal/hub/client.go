package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrBackpressure = errors.New("subscriber queue overflow")

// Client is one socket's side of the hub. Sessions push frames into its
// bounded outbox; the socket writer drains it.
type Client struct {
	id   string
	host bool
	out  chan []byte

	mu     sync.Mutex
	closed bool
	err    error
	done   chan struct{}
}

func newClient(host bool, size int) *Client {
	return &Client{
		id:   uuid.NewString(),
		host: host,
		out:  make(chan []byte, size),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Host() bool { return c.host }

// Deliver enqueues frame without blocking. A full outbox closes the client
// with ErrBackpressure. Safe for concurrent use by many sessions.
func (c *Client) Deliver(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- frame:
		return true
	default:
		c.closeLocked(ErrBackpressure)
		return false
	}
}

func (c *Client) Outbox() <-chan []byte { return c.out }

// Done is closed when the client is dropped or disconnected.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the client was closed, nil for a normal disconnect.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(nil)
}

func (c *Client) closeLocked(err error) {
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
}
