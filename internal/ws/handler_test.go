package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/hub"
	"github.com/DoyleJ11/trivia-hub/internal/store"
	"github.com/DoyleJ11/trivia-hub/pkg/protocol"
)

const secret = "let-me-host"

type fixture struct {
	store *store.Store
	hub   *hub.Hub
	url   string
}

func newFixture(t *testing.T, outbox int) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.New(ctx, store.Options{})
	_, err := st.Open(ctx, engine.NewState(1, []int64{10, 11}, []engine.Team{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}))
	require.NoError(t, err)

	h := hub.New(st, hub.Options{OutboxSize: outbox})
	srv := httptest.NewServer(Handler(h, Options{
		Role:         func(r *http.Request) bool { return r.URL.Query().Get("token") == secret },
		WriteTimeout: time.Second,
		PingInterval: time.Minute,
	}))
	t.Cleanup(srv.Close)

	return &fixture{store: st, hub: h, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// helper: read one frame with a timeout so tests never hang
func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err, "frame %s", data)
	return msg
}

func write(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func host(t *testing.T, f *fixture, cmd engine.Command) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cmd.Host = true
	_, err := f.store.Apply(ctx, 1, cmd)
	require.NoError(t, err)
}

func TestViewerFollowsAGame(t *testing.T) {
	f := newFixture(t, 16)
	viewer := dial(t, f.url+"?game_id=1", nil)

	snap, ok := read(t, viewer).(protocol.Snapshot)
	require.True(t, ok)
	assert.Equal(t, "idle", snap.Phase)

	host(t, f, engine.Command{Type: engine.CmdBroadcast, Question: engine.Question{ID: 7, RoundID: 10, Order: 3, Text: "Capital of Peru?", Answer: "Lima"}})
	assert.Equal(t, protocol.PhaseUpdate{GameID: 1, Phase: "question_live"}, read(t, viewer))
	qb, ok := read(t, viewer).(protocol.QuestionBroadcast)
	require.True(t, ok)
	assert.Equal(t, int64(7), qb.Question.ID)
	assert.Empty(t, qb.Question.Answer)

	host(t, f, engine.Command{Type: engine.CmdReveal})
	assert.Equal(t, protocol.PhaseUpdate{GameID: 1, Phase: "revealed"}, read(t, viewer))
	assert.Equal(t, protocol.AnswerReveal{GameID: 1, QuestionID: 7, Answer: "Lima"}, read(t, viewer))

	host(t, f, engine.Command{Type: engine.CmdScore, Team: engine.Team{ID: 2}, Delta: 10})
	lb, ok := read(t, viewer).(protocol.LeaderboardUpdate)
	require.True(t, ok)
	require.Len(t, lb.Standings, 2)
	assert.Equal(t, protocol.Standing{TeamID: 2, TeamName: "B", Points: 10}, lb.Standings[0])

	host(t, f, engine.Command{Type: engine.CmdShowLeaderboard})
	assert.Equal(t, protocol.PhaseUpdate{GameID: 1, Phase: "leaderboard_shown"}, read(t, viewer))
	_, ok = read(t, viewer).(protocol.LeaderboardUpdate)
	assert.True(t, ok)
}

func TestHostSocketSeesAnswer(t *testing.T) {
	f := newFixture(t, 16)
	conn := dial(t, f.url+"?game_id=1&token="+secret, nil)
	_ = read(t, conn)

	host(t, f, engine.Command{Type: engine.CmdBroadcast, Question: engine.Question{ID: 7, RoundID: 10, Order: 3, Text: "Q", Answer: "Lima"}})
	_ = read(t, conn)
	qb := read(t, conn).(protocol.QuestionBroadcast)
	assert.Equal(t, "Lima", qb.Question.Answer)
}

func TestSubscribeFrames(t *testing.T) {
	f := newFixture(t, 16)
	conn := dial(t, f.url+"?token=wrong", nil)

	write(t, conn, `{"type":"subscribe","game_id":404}`)
	e, ok := read(t, conn).(protocol.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "404")

	write(t, conn, `{"type":"subscribe","game_id":1}`)
	_, ok = read(t, conn).(protocol.Snapshot)
	require.True(t, ok)

	write(t, conn, `{"type":"unsubscribe","game_id":1}`)
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := f.store.Snapshot(ctx, 1)
		return err == nil && v.NumSubscribers == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMalformedFrameClosesOnlyThatSocket(t *testing.T) {
	f := newFixture(t, 16)
	bad := dial(t, f.url+"?game_id=1", nil)
	good := dial(t, f.url+"?game_id=1", nil)
	_ = read(t, bad)
	_ = read(t, good)

	write(t, bad, `{"type":"subscribe","game_id":"one"}`)
	_, ok := read(t, bad).(protocol.Error)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := bad.Read(ctx)
	assert.Equal(t, websocket.StatusInvalidFramePayloadData, websocket.CloseStatus(err))

	host(t, f, engine.Command{Type: engine.CmdBroadcast, Question: engine.Question{ID: 7, RoundID: 10, Order: 3}})
	assert.Equal(t, protocol.PhaseUpdate{GameID: 1, Phase: "question_live"}, read(t, good))
}

func TestBadGameIDRejectedBeforeUpgrade(t *testing.T) {
	f := newFixture(t, 16)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, f.url+"?game_id=abc", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
