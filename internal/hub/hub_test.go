package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/store"
	"github.com/DoyleJ11/trivia-hub/pkg/protocol"
)

func newTestStore(t *testing.T, games ...int64) *store.Store {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := store.New(ctx, store.Options{})
	for _, id := range games {
		_, err := s.Open(ctx, engine.NewState(id, []int64{id * 10}, []engine.Team{{ID: 1, Name: "A"}}))
		require.NoError(t, err)
	}
	return s
}

func recvMsg(t *testing.T, c *Client, within time.Duration) protocol.Message {
	t.Helper()
	select {
	case data := <-c.Outbox():
		msg, err := protocol.Decode(data)
		require.NoError(t, err)
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return nil
	}
}

func broadcast(gameID, questionID int64, order int) engine.Command {
	return engine.Command{
		Type:     engine.CmdBroadcast,
		Host:     true,
		Question: engine.Question{ID: questionID, RoundID: gameID * 10, Order: order},
	}
}

func TestHub_SubscribeDeliversSnapshotThenEvents(t *testing.T) {
	s := newTestStore(t, 1)
	h := New(s, Options{OutboxSize: 8})
	ctx := context.Background()

	c := h.Connect(false)
	require.NoError(t, h.Subscribe(ctx, c, 1))
	assert.Equal(t, []int64{1}, h.Subscriptions(c))

	_, ok := recvMsg(t, c, 100*time.Millisecond).(protocol.Snapshot)
	require.True(t, ok, "first frame must be the catch-up snapshot")

	_, err := s.Apply(ctx, 1, broadcast(1, 7, 3))
	require.NoError(t, err)

	_, ok = recvMsg(t, c, 100*time.Millisecond).(protocol.PhaseUpdate)
	require.True(t, ok)
	q, ok := recvMsg(t, c, 100*time.Millisecond).(protocol.QuestionBroadcast)
	require.True(t, ok)
	assert.Equal(t, int64(7), q.Question.ID)
}

func TestHub_SubscribeUnknownGame(t *testing.T) {
	h := New(newTestStore(t), Options{})
	c := h.Connect(false)
	require.ErrorIs(t, h.Subscribe(context.Background(), c, 42), engine.ErrNotFound)
	assert.Empty(t, h.Subscriptions(c))
}

func TestHub_DisconnectLeavesEveryGame(t *testing.T) {
	s := newTestStore(t, 1, 2)
	h := New(s, Options{OutboxSize: 8})
	ctx := context.Background()

	c := h.Connect(true)
	require.NoError(t, h.Subscribe(ctx, c, 1))
	require.NoError(t, h.Subscribe(ctx, c, 2))
	require.Equal(t, 1, h.NumClients())

	h.Disconnect(c)
	assert.Equal(t, 0, h.NumClients())
	select {
	case <-c.Done():
	default:
		t.Fatalf("client not closed on disconnect")
	}
	assert.NoError(t, c.Err())

	for _, id := range []int64{1, 2} {
		v, err := s.Snapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, v.NumSubscribers, "game %d still has subscribers", id)
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	s := newTestStore(t, 1)
	h := New(s, Options{OutboxSize: 8})
	ctx := context.Background()

	c := h.Connect(false)
	require.NoError(t, h.Subscribe(ctx, c, 1))
	_ = recvMsg(t, c, 100*time.Millisecond)
	require.NoError(t, h.Unsubscribe(ctx, c, 1))

	_, err := s.Apply(ctx, 1, broadcast(1, 7, 3))
	require.NoError(t, err)

	select {
	case data := <-c.Outbox():
		t.Fatalf("unsubscribed client got %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_OverflowDropsClientWithBackpressure(t *testing.T) {
	s := newTestStore(t, 1)
	h := New(s, Options{OutboxSize: 1})
	ctx := context.Background()

	c := h.Connect(false)
	require.NoError(t, h.Subscribe(ctx, c, 1)) // snapshot fills the outbox

	_, err := s.Apply(ctx, 1, broadcast(1, 7, 3))
	require.NoError(t, err)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatalf("overflowing client was not dropped")
	}
	assert.ErrorIs(t, c.Err(), ErrBackpressure)
	assert.False(t, c.Deliver([]byte("late")))
}

func TestHub_SlowGameDoesNotDelayOtherGame(t *testing.T) {
	s := newTestStore(t, 1, 2)
	h := New(s, Options{OutboxSize: 2})
	ctx := context.Background()

	stuck := h.Connect(false)
	require.NoError(t, h.Subscribe(ctx, stuck, 1)) // never drained

	reader := h.Connect(false)
	require.NoError(t, h.Subscribe(ctx, reader, 2))
	_ = recvMsg(t, reader, 100*time.Millisecond)

	for i := 1; i <= 3; i++ {
		_, err := s.Apply(ctx, 1, engine.Command{Type: engine.CmdReset, Host: true})
		require.NoError(t, err)
	}

	_, err := s.Apply(ctx, 2, broadcast(2, 9, 1))
	require.NoError(t, err)
	_, ok := recvMsg(t, reader, 100*time.Millisecond).(protocol.PhaseUpdate)
	assert.True(t, ok)
	_, ok = recvMsg(t, reader, 100*time.Millisecond).(protocol.QuestionBroadcast)
	assert.True(t, ok)

	select {
	case <-stuck.Done():
	case <-time.After(time.Second):
		t.Fatalf("stuck client on game 1 was not dropped")
	}
}
