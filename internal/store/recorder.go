package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
)

const (
	retryBase = 500 * time.Millisecond
	retryMax  = 30 * time.Second
)

// Saver persists the latest committed state of a game.
type Saver interface {
	SaveSession(ctx context.Context, st engine.State) error
}

// Recorder writes committed session state to a Saver off the session
// goroutines. Pending writes are coalesced per game: only the newest state
// of each game is saved, which is enough because every state is complete.
type Recorder struct {
	saver   Saver
	timeout time.Duration
	log     *zap.Logger

	retryBase time.Duration

	mu       sync.Mutex
	pending  map[int64]engine.State
	attempts map[int64]int
	wake     chan struct{}
}

func NewRecorder(saver Saver, timeout time.Duration, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		saver:     saver,
		timeout:   timeout,
		log:       log,
		retryBase: retryBase,
		pending:   make(map[int64]engine.State),
		attempts:  make(map[int64]int),
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue never blocks.
func (r *Recorder) Enqueue(st engine.State) {
	r.mu.Lock()
	r.pending[st.GameID] = st
	r.mu.Unlock()
	r.signal()
}

func (r *Recorder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run saves pending states until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush(context.Background())
			return nil
		case <-r.wake:
			r.flush(ctx)
		}
	}
}

func (r *Recorder) flush(parent context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[int64]engine.State, len(batch))
	r.mu.Unlock()

	for id, st := range batch {
		ctx, cancel := context.WithTimeout(parent, r.timeout)
		err := r.saver.SaveSession(ctx, st)
		cancel()
		if err != nil {
			delay := r.requeue(st)
			r.log.Warn("save session failed",
				zap.Int64("game_id", id),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
			continue
		}
		r.mu.Lock()
		delete(r.attempts, id)
		r.mu.Unlock()
	}
}

// requeue keeps a failed state for a later flush unless a newer one arrived
// meanwhile, and schedules that flush with exponential backoff per game.
func (r *Recorder) requeue(st engine.State) time.Duration {
	r.mu.Lock()
	if _, newer := r.pending[st.GameID]; !newer {
		r.pending[st.GameID] = st
	}
	r.attempts[st.GameID]++
	n := r.attempts[st.GameID]
	r.mu.Unlock()

	delay := r.retryBase
	for i := 1; i < n && delay < retryMax; i++ {
		delay *= 2
	}
	delay = min(delay, retryMax)
	time.AfterFunc(delay, r.signal)
	return delay
}
