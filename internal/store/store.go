// Package store is the registry of live game sessions. A single goroutine
// owns the map from game id to session; all game mutations run on the
// sessions themselves, so unrelated games never wait on each other.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/session"
)

var ErrStoreClosed = errors.New("store closed")

// Loader builds the initial state of a game that has no live session yet.
// It returns an error wrapping engine.ErrNotFound for unknown games.
type Loader func(ctx context.Context, gameID int64) (engine.State, error)

// Roster lists every team that should be seated in a live game.
type Roster func(ctx context.Context) ([]engine.Team, error)

type StoreMsg interface{ isStoreMsg() }

type GetSession struct {
	GameID int64
	Reply  chan *session.Session
}

type EnsureSession struct {
	State engine.State // only used if creation happens
	Reply chan *session.Session
}

type RemoveSession struct {
	GameID int64
}

type ShutdownStore struct{}

func (GetSession) isStoreMsg()    {}
func (EnsureSession) isStoreMsg() {}
func (RemoveSession) isStoreMsg() {}
func (ShutdownStore) isStoreMsg() {}

type Options struct {
	Load Loader
	// Roster is consulted after a game is hydrated, so teams created while
	// the loader ran are not lost.
	Roster   Roster
	Recorder *Recorder
	// OnCommit is called on the committing session's goroutine.
	OnCommit func(session.Commit)
	Logger   *zap.Logger
}

type Store struct {
	inbox    chan StoreMsg
	sessions map[int64]*session.Session
	load     Loader
	roster   Roster
	recorder *Recorder
	onCommit func(session.Commit)
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, opts Options) *Store {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		inbox:    make(chan StoreMsg, 64),
		sessions: make(map[int64]*session.Session),
		load:     opts.Load,
		roster:   opts.Roster,
		recorder: opts.Recorder,
		onCommit: opts.OnCommit,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go s.loop()
	return s
}

func (s *Store) Inbox() chan<- StoreMsg { return s.inbox }

func (s *Store) ask(ctx context.Context, m StoreMsg, reply chan *session.Session) (*session.Session, error) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
		return nil, ErrStoreClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case sess := <-reply:
		return sess, nil
	case <-s.ctx.Done():
		return nil, ErrStoreClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Open returns the live session for initial.GameID, creating it from initial
// if none exists.
func (s *Store) Open(ctx context.Context, initial engine.State) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return s.ask(ctx, EnsureSession{State: initial, Reply: reply}, reply)
}

// Session returns the live session for gameID, hydrating it through the
// loader when the game is not live yet.
func (s *Store) Session(ctx context.Context, gameID int64) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	sess, err := s.ask(ctx, GetSession{GameID: gameID, Reply: reply}, reply)
	if err != nil || sess != nil {
		return sess, err
	}

	if s.load == nil {
		return nil, fmt.Errorf("game %d: %w", gameID, engine.ErrNotFound)
	}
	// Loading happens outside the registry goroutine so a slow catalog only
	// delays this caller.
	initial, err := s.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sess, err = s.Open(ctx, initial)
	if err != nil {
		return nil, err
	}
	s.seat(ctx, sess)
	return sess, nil
}

// seat re-applies the full roster to a freshly hydrated session. A team
// created between the loader's read and the session going live missed the
// roster fan-out; AddTeam is a no-op for teams already seated.
func (s *Store) seat(ctx context.Context, sess *session.Session) {
	if s.roster == nil {
		return
	}
	teams, err := s.roster(ctx)
	if err != nil {
		s.log.Warn("roster reconcile failed", zap.Int64("game_id", sess.GameID()), zap.Error(err))
		return
	}
	for _, t := range teams {
		if _, err := sess.Apply(ctx, engine.Command{Type: engine.CmdAddTeam, Host: true, Team: t}); err != nil {
			s.log.Warn("roster reconcile failed",
				zap.Int64("game_id", sess.GameID()),
				zap.Int64("team_id", t.ID),
				zap.Error(err),
			)
		}
	}
}

// Snapshot returns the committed state of a game.
func (s *Store) Snapshot(ctx context.Context, gameID int64) (session.View, error) {
	sess, err := s.Session(ctx, gameID)
	if err != nil {
		return session.View{}, err
	}
	return sess.View(ctx)
}

// Apply runs cmd on the game's session and returns the committed outcome.
func (s *Store) Apply(ctx context.Context, gameID int64, cmd engine.Command) (session.Result, error) {
	sess, err := s.Session(ctx, gameID)
	if err != nil {
		return session.Result{}, err
	}
	return sess.Apply(ctx, cmd)
}

func (s *Store) ApplyScoreDelta(ctx context.Context, gameID, teamID int64, delta int, requestID string, host bool) (session.Result, error) {
	return s.Apply(ctx, gameID, engine.Command{
		Type:      engine.CmdScore,
		Host:      host,
		Team:      engine.Team{ID: teamID},
		Delta:     delta,
		RequestID: requestID,
	})
}

// SetCurrentQuestion broadcasts q as the game's current question.
func (s *Store) SetCurrentQuestion(ctx context.Context, gameID int64, q engine.Question, host bool) (session.Result, error) {
	return s.Apply(ctx, gameID, engine.Command{Type: engine.CmdBroadcast, Host: host, Question: q})
}

// Each runs fn for every live session. Used to fan a roster change out to
// all running games.
func (s *Store) Each(ctx context.Context, fn func(*session.Session)) error {
	reply := make(chan []*session.Session, 1)
	select {
	case s.inbox <- listSessions{reply: reply}:
	case <-s.ctx.Done():
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case all := <-reply:
		for _, sess := range all {
			fn(sess)
		}
		return nil
	case <-s.ctx.Done():
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) Remove(gameID int64) {
	select {
	case s.inbox <- RemoveSession{GameID: gameID}:
	case <-s.ctx.Done():
	}
}

func (s *Store) Close() {
	select {
	case s.inbox <- ShutdownStore{}:
	case <-s.ctx.Done():
	}
}

type listSessions struct {
	reply chan []*session.Session
}

func (listSessions) isStoreMsg() {}

func (s *Store) loop() {
	for {
		select {
		case <-s.ctx.Done():
			clear(s.sessions)
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case GetSession:
				msg.Reply <- s.sessions[msg.GameID] // May be nil

			case EnsureSession:
				if sess := s.sessions[msg.State.GameID]; sess != nil {
					msg.Reply <- sess
					break
				}
				sess := session.New(s.ctx, msg.State, session.Options{
					OnCommit: s.commit,
					Logger:   s.log.Named("session"),
				})
				s.sessions[msg.State.GameID] = sess
				s.log.Info("session opened", zap.Int64("game_id", msg.State.GameID))
				msg.Reply <- sess

			case RemoveSession:
				if sess := s.sessions[msg.GameID]; sess != nil {
					delete(s.sessions, msg.GameID)
					go sess.Close()
				}

			case listSessions:
				all := make([]*session.Session, 0, len(s.sessions))
				for _, sess := range s.sessions {
					all = append(all, sess)
				}
				msg.reply <- all

			case ShutdownStore:
				// Sessions run under s.ctx and stop with it.
				clear(s.sessions)
				s.cancel()
			}
		}
	}
}

func (s *Store) commit(c session.Commit) {
	if s.recorder != nil {
		s.recorder.Enqueue(c.State)
	}
	if s.onCommit != nil {
		s.onCommit(c)
	}
}
