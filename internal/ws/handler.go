// Package ws serves the websocket side of the hub: one reader loop and one
// writer goroutine per connection.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/hub"
	"github.com/DoyleJ11/trivia-hub/pkg/protocol"
)

const readLimit = 4096

type Options struct {
	// Role reports whether the upgrade request belongs to the host. Nil
	// treats every socket as a viewer.
	Role           func(*http.Request) bool
	OriginPatterns []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	Logger         *zap.Logger
}

func (o *Options) defaults() {
	if o.Role == nil {
		o.Role = func(*http.Request) bool { return false }
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func gameIDs(r *http.Request) ([]int64, error) {
	raw := r.URL.Query()["game_id"]
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid game_id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts.defaults()
	log := opts.Logger

	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := gameIDs(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		host := opts.Role(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		c := h.Connect(host)
		defer h.Disconnect(c)
		log := log.With(zap.String("client", c.ID()), zap.Bool("host", host))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			defer cancel()
			writeLoop(ctx, conn, c, opts, log)
		}()

		for _, id := range ids {
			subscribe(ctx, h, c, id, log)
		}

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						log.Debug("read failed", zap.Error(err))
					}
				}
				break
			}

			msg, err := protocol.Decode(data)
			if err == nil {
				switch m := msg.(type) {
				case protocol.Subscribe:
					subscribe(ctx, h, c, m.GameID, log)
					continue
				case protocol.Unsubscribe:
					_ = h.Unsubscribe(ctx, c, m.GameID)
					continue
				default:
					err = fmt.Errorf("%w: %s is server-only", protocol.ErrMalformedMessage, m.MessageType())
				}
			}

			log.Info("closing on malformed frame", zap.Error(err))
			wctx, wcancel := context.WithTimeout(ctx, opts.WriteTimeout)
			_ = conn.Write(wctx, websocket.MessageText, protocol.Encode(protocol.Error{Message: err.Error()}))
			wcancel()
			_ = conn.Close(websocket.StatusInvalidFramePayloadData, "malformed message")
			break
		}

		cancel()
		<-writerDone
	}
}

// subscribe reports failures to the client as error frames; the connection
// stays open.
func subscribe(ctx context.Context, h *hub.Hub, c *hub.Client, gameID int64, log *zap.Logger) {
	if err := h.Subscribe(ctx, c, gameID); err != nil {
		log.Debug("subscribe failed", zap.Int64("game_id", gameID), zap.Error(err))
		c.Deliver(protocol.Encode(protocol.Error{Message: fmt.Sprintf("subscribe %d: %v", gameID, err)}))
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, c *hub.Client, opts Options, log *zap.Logger) {
	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case frame := <-c.Outbox():
			wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}

		case <-c.Done():
			if errors.Is(c.Err(), hub.ErrBackpressure) {
				log.Info("dropping slow client")
				_ = conn.Close(websocket.StatusPolicyViolation, "backpressure")
			}
			return

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
