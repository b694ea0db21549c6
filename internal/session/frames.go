package session

import (
	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/leaderboard"
	"github.com/DoyleJ11/trivia-hub/pkg/protocol"
)

// frame is one event encoded for both audiences. Host sockets may see
// answers before the reveal, viewers never do.
type frame struct {
	host   []byte
	viewer []byte
}

func (f frame) pick(host bool) []byte {
	if host {
		return f.host
	}
	return f.viewer
}

func shared(m protocol.Message) frame {
	b := protocol.Encode(m)
	return frame{host: b, viewer: b}
}

func (s *Session) frames(events []engine.Event) []frame {
	gameID := s.state.GameID
	roundChanged := engine.ContainsEvent(events, engine.EvtRoundAdvanced)
	standingsChanged := false

	var out []frame
	for _, evt := range events {
		switch evt.Type {
		case engine.EvtPhaseChanged:
			msg := protocol.PhaseUpdate{GameID: gameID, Phase: string(evt.Phase)}
			if roundChanged {
				msg.RoundID = s.state.RoundID
			}
			out = append(out, shared(msg))

		case engine.EvtQuestionBroadcast:
			msg := protocol.QuestionBroadcast{GameID: gameID, RoundID: evt.Question.RoundID, Question: questionFor(evt.Question, true)}
			host := protocol.Encode(msg)
			msg.Question.Answer = ""
			out = append(out, frame{host: host, viewer: protocol.Encode(msg)})

		case engine.EvtAnswerRevealed:
			out = append(out, shared(protocol.AnswerReveal{GameID: gameID, QuestionID: evt.Question.ID, Answer: evt.Question.Answer}))

		case engine.EvtScoreChanged, engine.EvtLeaderboardShown, engine.EvtScoresReset, engine.EvtTeamAdded:
			standingsChanged = true
		}
	}

	if standingsChanged {
		out = append(out, shared(protocol.LeaderboardUpdate{GameID: gameID, Standings: Standings(s.state)}))
	}
	return out
}

func (s *Session) snapshotFrame(host bool) []byte {
	return protocol.Encode(SnapshotMessage(s.state, s.version, host))
}

// SnapshotMessage renders the full catch-up view of st. Once the answer has
// been revealed it is included for every audience; showing the leaderboard
// does not reveal it.
func SnapshotMessage(st engine.State, version int, host bool) protocol.Snapshot {
	msg := protocol.Snapshot{
		GameID:      st.GameID,
		Version:     version,
		Phase:       string(st.Phase),
		RoundID:     st.RoundID,
		RoundNumber: engine.RoundNumber(st),
		Standings:   Standings(st),
	}
	if st.Current != nil {
		q := questionFor(*st.Current, host || st.Revealed)
		msg.Question = &q
	}
	return msg
}

func Standings(st engine.State) []protocol.Standing {
	ranked := leaderboard.Compute(st.Points, st.Teams)
	out := make([]protocol.Standing, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, protocol.Standing{TeamID: r.TeamID, TeamName: r.TeamName, Points: r.Points})
	}
	return out
}

func questionFor(q engine.Question, withAnswer bool) protocol.Question {
	out := protocol.Question{ID: q.ID, Text: q.Text, MediaURL: q.MediaURL, Order: q.Order}
	if withAnswer {
		out.Answer = q.Answer
	}
	return out
}
