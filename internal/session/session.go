// Package session owns the live state of one game. Each Session is a single
// goroutine: every mutation, subscription and broadcast for that game is
// serialized through its inbox, and no two games share one.
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
)

var ErrClosed = errors.New("session closed")

// Subscriber receives encoded frames. Deliver must not block; returning
// false means the subscriber could not keep up and is dropped.
type Subscriber interface {
	ID() string
	Host() bool
	Deliver(frame []byte) bool
}

type Msg interface{ isSessionMsg() }

type Dispatch struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Dispatch) isSessionMsg() {}

type Join struct {
	Sub Subscriber
}

func (Join) isSessionMsg() {}

type Leave struct{ ID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Result struct {
	Version int
	State   engine.State
	Events  []engine.Event
	Err     error
}

type View struct {
	Version        int
	NumSubscribers int
	State          engine.State
}

// Commit describes one accepted mutation. State is a private copy.
type Commit struct {
	GameID  int64
	Version int
	State   engine.State
	Events  []engine.Event
}

type Options struct {
	// OnCommit runs on the session goroutine after each commit, so it must
	// return quickly.
	OnCommit func(Commit)
	Logger   *zap.Logger
}

type Session struct {
	gameID   int64
	inbox    chan Msg
	state    engine.State
	version  int
	subs     map[string]Subscriber
	onCommit func(Commit)
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, initial engine.State, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		gameID:   initial.GameID,
		inbox:    make(chan Msg, 64),
		state:    initial.Clone(),
		subs:     make(map[string]Subscriber),
		onCommit: opts.OnCommit,
		log:      log.With(zap.Int64("game_id", initial.GameID)),
		ctx:      ctx,
		cancel:   cancel,
	}

	go s.loop()
	return s
}

func (s *Session) GameID() int64 { return s.gameID }

// Inbox exposes the raw message channel for tests and callers that manage
// their own replies.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) send(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply runs cmd through the state machine and waits for the outcome.
func (s *Session) Apply(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := s.send(ctx, Dispatch{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-s.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Join subscribes sub. The session answers with a snapshot frame before any
// later commit.
func (s *Session) Join(ctx context.Context, sub Subscriber) error {
	return s.send(ctx, Join{Sub: sub})
}

func (s *Session) Leave(ctx context.Context, id string) error {
	return s.send(ctx, Leave{ID: id})
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) Close() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.subs[msg.Sub.ID()] = msg.Sub
				if !msg.Sub.Deliver(s.snapshotFrame(msg.Sub.Host())) {
					s.drop(msg.Sub.ID())
				}

			case Leave:
				delete(s.subs, msg.ID)

			case Dispatch:
				msg.Reply <- s.dispatch(msg.Cmd)

			case GetState:
				msg.Reply <- View{
					Version:        s.version,
					NumSubscribers: len(s.subs),
					State:          s.state.Clone(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) dispatch(cmd engine.Command) Result {
	events, next, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.log.Debug("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		return Result{Version: s.version, State: s.state.Clone(), Err: err}
	}
	if len(events) == 0 {
		return Result{Version: s.version, State: s.state.Clone()}
	}

	s.state = next
	s.version++
	s.broadcast(s.frames(events))

	if s.onCommit != nil {
		s.onCommit(Commit{GameID: s.state.GameID, Version: s.version, State: s.state.Clone(), Events: events})
	}
	s.log.Debug("committed",
		zap.String("command", string(cmd.Type)),
		zap.Int("version", s.version),
		zap.String("phase", string(s.state.Phase)),
	)
	return Result{Version: s.version, State: s.state.Clone(), Events: events}
}

func (s *Session) broadcast(frames []frame) {
	for id, sub := range s.subs {
		host := sub.Host()
		for _, f := range frames {
			if !sub.Deliver(f.pick(host)) {
				s.drop(id)
				break
			}
		}
	}
}

func (s *Session) drop(id string) {
	delete(s.subs, id)
	s.log.Info("dropped slow subscriber", zap.String("subscriber", id))
}

func (s *Session) shutdown() {
	clear(s.subs)
	s.cancel()
}
