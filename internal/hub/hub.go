// Package hub tracks open client connections and which games each one
// follows. Delivery itself is done by the game sessions, straight into each
// client's outbox.
package hub

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/session"
)

var ErrUnknownClient = errors.New("unknown client")

// SessionSource resolves a game id to its live session.
type SessionSource interface {
	Session(ctx context.Context, gameID int64) (*session.Session, error)
}

type Options struct {
	OutboxSize int
	// LeaveTimeout bounds how long a disconnect waits on each session.
	LeaveTimeout time.Duration
	Logger       *zap.Logger
}

type entry struct {
	client *Client
	games  map[int64]*session.Session
}

type Hub struct {
	sessions     SessionSource
	outboxSize   int
	leaveTimeout time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	clients map[string]*entry
}

func New(sessions SessionSource, opts Options) *Hub {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 32
	}
	if opts.LeaveTimeout <= 0 {
		opts.LeaveTimeout = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		sessions:     sessions,
		outboxSize:   opts.OutboxSize,
		leaveTimeout: opts.LeaveTimeout,
		log:          opts.Logger,
		clients:      make(map[string]*entry),
	}
}

// Connect registers a new client with the given role.
func (h *Hub) Connect(host bool) *Client {
	c := newClient(host, h.outboxSize)

	h.mu.Lock()
	h.clients[c.id] = &entry{client: c, games: make(map[int64]*session.Session)}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client connected", zap.String("client", c.id), zap.Bool("host", host), zap.Int("clients", n))
	return c
}

// Subscribe adds c to gameID's subscribers. The session sends c a catch-up
// snapshot; subscribing again yields a fresh snapshot, never a replay.
func (h *Hub) Subscribe(ctx context.Context, c *Client, gameID int64) error {
	sess, err := h.sessions.Session(ctx, gameID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	e := h.clients[c.id]
	if e == nil {
		h.mu.Unlock()
		return ErrUnknownClient
	}
	e.games[gameID] = sess
	h.mu.Unlock()

	return sess.Join(ctx, c)
}

func (h *Hub) Unsubscribe(ctx context.Context, c *Client, gameID int64) error {
	h.mu.Lock()
	e := h.clients[c.id]
	if e == nil {
		h.mu.Unlock()
		return ErrUnknownClient
	}
	sess := e.games[gameID]
	delete(e.games, gameID)
	h.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Leave(ctx, c.id)
}

// Disconnect removes c from every game it followed and closes it. Errors
// from sessions that already stopped are ignored.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	e := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if e == nil {
		return
	}

	for _, sess := range e.games {
		ctx, cancel := context.WithTimeout(context.Background(), h.leaveTimeout)
		_ = sess.Leave(ctx, c.id)
		cancel()
	}
	h.log.Debug("client disconnected", zap.String("client", c.id), zap.NamedError("reason", c.Err()))
}

// Subscriptions lists the game ids c follows, ascending.
func (h *Hub) Subscriptions(c *Client) []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.clients[c.id]
	if e == nil {
		return nil
	}
	ids := make([]int64, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (h *Hub) NumClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
