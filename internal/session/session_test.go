package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/pkg/protocol"
)

// chanSub is a subscriber backed by a buffered channel, like a socket outbox.
type chanSub struct {
	id   string
	host bool
	out  chan []byte
}

func newSub(id string, host bool, size int) *chanSub {
	return &chanSub{id: id, host: host, out: make(chan []byte, size)}
}

func (c *chanSub) ID() string { return c.id }
func (c *chanSub) Host() bool { return c.host }
func (c *chanSub) Deliver(frame []byte) bool {
	select {
	case c.out <- frame:
		return true
	default:
		return false
	}
}

// helper: receive one decoded frame with a timeout so tests never hang
func recvFrame(t *testing.T, ch <-chan []byte, within time.Duration) protocol.Message {
	t.Helper()
	select {
	case data := <-ch:
		msg, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("undecodable frame %s: %v", data, err)
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return nil // unreachable
	}
}

func recvNoFrame(t *testing.T, ch <-chan []byte, within time.Duration) {
	t.Helper()
	select {
	case data := <-ch:
		t.Fatalf("expected no frame within %v, but got: %s", within, data)
	case <-time.After(within):
		// good: no frame
	}
}

func recvView(t *testing.T, s *Session) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := s.View(ctx)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	return v
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	init := engine.NewState(1, []int64{10, 11}, []engine.Team{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})
	return New(ctx, init, opts)
}

func apply(t *testing.T, s *Session, cmd engine.Command) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cmd.Host = true
	res, err := s.Apply(ctx, cmd)
	if err != nil {
		t.Fatalf("apply %s: %v", cmd.Type, err)
	}
	return res
}

func broadcastCmd(id int64, order int) engine.Command {
	return engine.Command{
		Type:     engine.CmdBroadcast,
		Question: engine.Question{ID: id, RoundID: 10, Order: order, Text: "Q", Answer: "secret"},
	}
}

func TestSession_JoinSendsSnapshotThenEventsInOrder(t *testing.T) {
	s := newTestSession(t, Options{})

	viewer := newSub("v1", false, 8)
	if err := s.Join(context.Background(), viewer); err != nil {
		t.Fatalf("join: %v", err)
	}

	first := recvFrame(t, viewer.out, 100*time.Millisecond)
	snap, ok := first.(protocol.Snapshot)
	if !ok || snap.Version != 0 || snap.Phase != string(engine.PhaseIdle) {
		t.Fatalf("after join: want idle snapshot v0, got %#v", first)
	}

	apply(t, s, broadcastCmd(7, 3))

	phase := recvFrame(t, viewer.out, 100*time.Millisecond)
	if pu, ok := phase.(protocol.PhaseUpdate); !ok || pu.Phase != string(engine.PhaseQuestionLive) {
		t.Fatalf("want phase_update question_live first, got %#v", phase)
	}
	question := recvFrame(t, viewer.out, 100*time.Millisecond)
	qb, ok := question.(protocol.QuestionBroadcast)
	if !ok || qb.Question.ID != 7 || qb.Question.Order != 3 {
		t.Fatalf("want question 7, got %#v", question)
	}
	if qb.Question.Answer != "" {
		t.Fatalf("viewer received the answer before reveal")
	}
}

func TestSession_HostSeesAnswer(t *testing.T) {
	s := newTestSession(t, Options{})

	host := newSub("h1", true, 8)
	_ = s.Join(context.Background(), host)
	_ = recvFrame(t, host.out, 100*time.Millisecond)

	apply(t, s, broadcastCmd(7, 3))
	_ = recvFrame(t, host.out, 100*time.Millisecond)
	qb := recvFrame(t, host.out, 100*time.Millisecond).(protocol.QuestionBroadcast)
	if qb.Question.Answer != "secret" {
		t.Fatalf("host frame missing answer: %#v", qb)
	}
}

func TestSession_LateJoinerGetsOneSnapshotNotReplay(t *testing.T) {
	s := newTestSession(t, Options{})

	apply(t, s, broadcastCmd(7, 3))
	apply(t, s, engine.Command{Type: engine.CmdReveal})
	apply(t, s, engine.Command{Type: engine.CmdScore, Team: engine.Team{ID: 2}, Delta: 10})

	late := newSub("late", false, 8)
	_ = s.Join(context.Background(), late)

	msg := recvFrame(t, late.out, 100*time.Millisecond)
	snap, ok := msg.(protocol.Snapshot)
	if !ok {
		t.Fatalf("want snapshot, got %#v", msg)
	}
	if snap.Version != 3 || snap.Phase != string(engine.PhaseRevealed) {
		t.Fatalf("snapshot not at latest state: %#v", snap)
	}
	if snap.Question == nil || snap.Question.ID != 7 || snap.Question.Answer != "secret" {
		t.Fatalf("snapshot question after reveal: %#v", snap.Question)
	}
	if len(snap.Standings) != 2 || snap.Standings[0].TeamID != 2 || snap.Standings[0].Points != 10 {
		t.Fatalf("snapshot standings: %#v", snap.Standings)
	}

	recvNoFrame(t, late.out, 50*time.Millisecond)
}

func TestSession_LeaderboardWithoutRevealKeepsAnswerFromViewers(t *testing.T) {
	s := newTestSession(t, Options{})
	apply(t, s, broadcastCmd(7, 3))
	apply(t, s, engine.Command{Type: engine.CmdShowLeaderboard})

	viewer := newSub("v1", false, 8)
	host := newSub("h1", true, 8)
	_ = s.Join(context.Background(), viewer)
	_ = s.Join(context.Background(), host)

	vs := recvFrame(t, viewer.out, 100*time.Millisecond).(protocol.Snapshot)
	if vs.Phase != string(engine.PhaseLeaderboardShown) || vs.Question == nil {
		t.Fatalf("viewer snapshot: %#v", vs)
	}
	if vs.Question.Answer != "" {
		t.Fatalf("viewer snapshot carries unrevealed answer %q", vs.Question.Answer)
	}
	hs := recvFrame(t, host.out, 100*time.Millisecond).(protocol.Snapshot)
	if hs.Question == nil || hs.Question.Answer != "secret" {
		t.Fatalf("host snapshot lost the answer: %#v", hs.Question)
	}
}

func TestSession_ResendPushesEditedQuestion(t *testing.T) {
	s := newTestSession(t, Options{})
	sub := newSub("v1", false, 8)
	_ = s.Join(context.Background(), sub)
	_ = recvFrame(t, sub.out, 100*time.Millisecond)

	apply(t, s, broadcastCmd(7, 3))
	_ = recvFrame(t, sub.out, 100*time.Millisecond)
	_ = recvFrame(t, sub.out, 100*time.Millisecond)

	edited := broadcastCmd(7, 3)
	edited.Question.Text = "Q, corrected"
	apply(t, s, edited)
	qb := recvFrame(t, sub.out, 100*time.Millisecond).(protocol.QuestionBroadcast)
	if qb.Question.Text != "Q, corrected" {
		t.Fatalf("resend carried stale text %q", qb.Question.Text)
	}
}

func TestSession_RebroadcastEmitsQuestionAgain(t *testing.T) {
	s := newTestSession(t, Options{})
	sub := newSub("v1", false, 8)
	_ = s.Join(context.Background(), sub)
	_ = recvFrame(t, sub.out, 100*time.Millisecond)

	apply(t, s, broadcastCmd(7, 3))
	_ = recvFrame(t, sub.out, 100*time.Millisecond) // phase_update
	_ = recvFrame(t, sub.out, 100*time.Millisecond) // question

	res := apply(t, s, broadcastCmd(7, 3))
	again := recvFrame(t, sub.out, 100*time.Millisecond)
	if qb, ok := again.(protocol.QuestionBroadcast); !ok || qb.Question.ID != 7 {
		t.Fatalf("resend: want question 7, got %#v", again)
	}
	if res.State.Current.ID != 7 || len(res.State.Broadcast) != 1 {
		t.Fatalf("resend moved state: %+v", res.State)
	}
	recvNoFrame(t, sub.out, 50*time.Millisecond)
}

func TestSession_ScoreEmitsLeaderboard(t *testing.T) {
	s := newTestSession(t, Options{})
	apply(t, s, broadcastCmd(7, 3))
	apply(t, s, engine.Command{Type: engine.CmdReveal})

	sub := newSub("v1", false, 8)
	_ = s.Join(context.Background(), sub)
	_ = recvFrame(t, sub.out, 100*time.Millisecond)

	apply(t, s, engine.Command{Type: engine.CmdScore, Team: engine.Team{ID: 1}, Delta: 4})
	msg := recvFrame(t, sub.out, 100*time.Millisecond)
	lb, ok := msg.(protocol.LeaderboardUpdate)
	if !ok || lb.GameID != 1 || lb.Standings[0].TeamID != 1 || lb.Standings[0].Points != 4 {
		t.Fatalf("want leaderboard with team 1 leading, got %#v", msg)
	}
}

func TestSession_RejectedCommandBroadcastsNothing(t *testing.T) {
	s := newTestSession(t, Options{})
	sub := newSub("v1", false, 8)
	_ = s.Join(context.Background(), sub)
	_ = recvFrame(t, sub.out, 100*time.Millisecond)

	_, err := s.Apply(context.Background(), engine.Command{Type: engine.CmdScore, Host: true, Team: engine.Team{ID: 1}, Delta: 1})
	if !errors.Is(err, engine.ErrPhaseViolation) {
		t.Fatalf("want ErrPhaseViolation, got %v", err)
	}
	recvNoFrame(t, sub.out, 50*time.Millisecond)

	if v := recvView(t, s); v.Version != 0 {
		t.Fatalf("version moved on rejection: %d", v.Version)
	}
}

func TestSession_DropSlowSubscriber(t *testing.T) {
	s := newTestSession(t, Options{})

	slow := newSub("slow", false, 1)
	_ = s.Join(context.Background(), slow)
	// The snapshot fills the only slot, so the next commit overflows.

	apply(t, s, broadcastCmd(7, 3))

	if v := recvView(t, s); v.NumSubscribers != 0 {
		t.Fatalf("expected slow subscriber to be dropped; NumSubscribers=%d", v.NumSubscribers)
	}
}

func TestSession_LeaveStopsDelivery(t *testing.T) {
	s := newTestSession(t, Options{})
	sub := newSub("v1", false, 8)
	_ = s.Join(context.Background(), sub)
	_ = recvFrame(t, sub.out, 100*time.Millisecond)

	_ = s.Leave(context.Background(), "v1")
	apply(t, s, broadcastCmd(7, 3))
	recvNoFrame(t, sub.out, 50*time.Millisecond)
}

func TestSession_OnCommitSeesEveryCommit(t *testing.T) {
	commits := make(chan Commit, 4)
	s := newTestSession(t, Options{OnCommit: func(c Commit) { commits <- c }})

	apply(t, s, broadcastCmd(7, 3))
	apply(t, s, engine.Command{Type: engine.CmdReveal})
	apply(t, s, engine.Command{Type: engine.CmdReveal}) // no-op, not a commit

	for want := 1; want <= 2; want++ {
		select {
		case c := <-commits:
			if c.Version != want || c.GameID != 1 {
				t.Fatalf("commit %d: got %+v", want, c)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timed out waiting for commit %d", want)
		}
	}
	select {
	case c := <-commits:
		t.Fatalf("idempotent reveal produced commit %+v", c)
	default:
	}
}

func TestSession_Shutdown(t *testing.T) {
	s := newTestSession(t, Options{})
	s.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not stop")
	}

	_, err := s.Apply(context.Background(), broadcastCmd(7, 3))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed after shutdown, got %v", err)
	}
}
