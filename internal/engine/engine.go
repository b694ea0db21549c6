package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrNotFound = errors.New("not found")
var ErrPhaseViolation = errors.New("phase violation")
var ErrUnauthorized = errors.New("host capability required")
var ErrUnsupportedCommand = errors.New("unsupported command")

var ErrQuestionOrder = fmt.Errorf("%w: question order must increase within a round", ErrPhaseViolation)
var ErrRoundBoundary = fmt.Errorf("%w: question is not in the current round", ErrPhaseViolation)
var ErrNoNextRound = fmt.Errorf("%w: no round left to advance to", ErrPhaseViolation)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseQuestionLive     Phase = "question_live"
	PhaseRevealed         Phase = "revealed"
	PhaseLeaderboardShown Phase = "leaderboard_shown"
)

type Question struct {
	ID       int64
	RoundID  int64
	Order    int
	Text     string
	MediaURL string
	Answer   string
}

type Team struct {
	ID   int64
	Name string
}

type State struct {
	GameID          int64
	Phase           Phase
	Rounds          []int64
	RoundID         int64
	Current         *Question
	Revealed        bool
	Broadcast       []int64
	LastOrder       int
	Teams           map[int64]string
	Points          map[int64]int
	AppliedRequests map[string]bool
}

type CommandType string

const (
	CmdBroadcast       CommandType = "Broadcast"
	CmdReveal          CommandType = "Reveal"
	CmdScore           CommandType = "Score"
	CmdShowLeaderboard CommandType = "ShowLeaderboard"
	CmdReset           CommandType = "Reset"
	CmdAdvanceRound    CommandType = "AdvanceRound"
	CmdResetScores     CommandType = "ResetScores"
	CmdAddTeam         CommandType = "AddTeam"
)

/*
	CmdBroadcast       -> EvtPhaseChanged(question_live) -> EvtQuestionBroadcast
	                      (resend of the current question: EvtQuestionBroadcast only)
	CmdReveal          -> EvtPhaseChanged(revealed) -> EvtAnswerRevealed
	CmdScore           -> EvtScoreChanged
	CmdShowLeaderboard -> EvtPhaseChanged(leaderboard_shown) -> EvtLeaderboardShown
	CmdReset           -> EvtPhaseChanged(idle)
	CmdAdvanceRound    -> EvtRoundAdvanced -> EvtPhaseChanged(idle)
	CmdResetScores     -> EvtScoresReset
	CmdAddTeam         -> EvtTeamAdded
*/

type Command struct {
	Type      CommandType
	Host      bool
	Question  Question
	Team      Team
	Delta     int
	RequestID string
}

type EventType string

const (
	EvtPhaseChanged      EventType = "PhaseChanged"
	EvtQuestionBroadcast EventType = "QuestionBroadcast"
	EvtAnswerRevealed    EventType = "AnswerRevealed"
	EvtScoreChanged      EventType = "ScoreChanged"
	EvtLeaderboardShown  EventType = "LeaderboardShown"
	EvtRoundAdvanced     EventType = "RoundAdvanced"
	EvtScoresReset       EventType = "ScoresReset"
	EvtTeamAdded         EventType = "TeamAdded"
)

type Event struct {
	Type     EventType
	Phase    Phase
	RoundID  int64
	Question Question
	TeamID   int64
	TeamName string
	Delta    int
}

// Apply validates cmd against s and returns the events it produced together
// with the next state. On error the returned state is s, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if !cmd.Host {
		return nil, s, ErrUnauthorized
	}

	switch cmd.Type {
	case CmdBroadcast:
		return applyBroadcast(s, cmd.Question)

	case CmdReveal:
		switch s.Phase {
		case PhaseRevealed:
			return nil, s, nil
		case PhaseQuestionLive:
			if s.Current == nil {
				return nil, s, violation(s.Phase, cmd.Type)
			}
		default:
			return nil, s, violation(s.Phase, cmd.Type)
		}
		next := s.clone()
		next.Phase = PhaseRevealed
		next.Revealed = true
		events := []Event{
			{Type: EvtPhaseChanged, Phase: PhaseRevealed},
			{Type: EvtAnswerRevealed, Question: *s.Current},
		}
		return events, next, nil

	case CmdScore:
		if s.Phase != PhaseRevealed {
			return nil, s, violation(s.Phase, cmd.Type)
		}
		if _, ok := s.Teams[cmd.Team.ID]; !ok {
			return nil, s, fmt.Errorf("team %d: %w", cmd.Team.ID, ErrNotFound)
		}
		// Retried submissions carry the same request id.
		if cmd.RequestID != "" && s.AppliedRequests[cmd.RequestID] {
			return nil, s, nil
		}
		next := s.clone()
		next.Points[cmd.Team.ID] += cmd.Delta
		if cmd.RequestID != "" {
			next.AppliedRequests[cmd.RequestID] = true
		}
		return []Event{{Type: EvtScoreChanged, TeamID: cmd.Team.ID, Delta: cmd.Delta}}, next, nil

	case CmdShowLeaderboard:
		if s.Phase != PhaseRevealed && s.Phase != PhaseQuestionLive {
			return nil, s, violation(s.Phase, cmd.Type)
		}
		next := s.clone()
		next.Phase = PhaseLeaderboardShown
		events := []Event{
			{Type: EvtPhaseChanged, Phase: PhaseLeaderboardShown},
			{Type: EvtLeaderboardShown},
		}
		return events, next, nil

	case CmdReset:
		next := s.clone()
		next.Phase = PhaseIdle
		next.Current = nil
		next.Revealed = false
		return []Event{{Type: EvtPhaseChanged, Phase: PhaseIdle}}, next, nil

	case CmdAdvanceRound:
		if s.Phase == PhaseQuestionLive {
			return nil, s, violation(s.Phase, cmd.Type)
		}
		idx := slices.Index(s.Rounds, s.RoundID)
		if idx < 0 || idx+1 >= len(s.Rounds) {
			return nil, s, ErrNoNextRound
		}
		next := s.clone()
		next.RoundID = s.Rounds[idx+1]
		next.LastOrder = 0
		next.Current = nil
		next.Revealed = false
		next.Phase = PhaseIdle
		events := []Event{
			{Type: EvtRoundAdvanced, RoundID: next.RoundID},
			{Type: EvtPhaseChanged, Phase: PhaseIdle},
		}
		return events, next, nil

	case CmdResetScores:
		next := s.clone()
		for id := range next.Points {
			next.Points[id] = 0
		}
		return []Event{{Type: EvtScoresReset}}, next, nil

	case CmdAddTeam:
		if cmd.Team.ID <= 0 {
			return nil, s, fmt.Errorf("team %d: %w", cmd.Team.ID, ErrNotFound)
		}
		if name, ok := s.Teams[cmd.Team.ID]; ok && name == cmd.Team.Name {
			return nil, s, nil
		}
		next := s.clone()
		next.Teams[cmd.Team.ID] = cmd.Team.Name
		if _, ok := next.Points[cmd.Team.ID]; !ok {
			next.Points[cmd.Team.ID] = 0
		}
		return []Event{{Type: EvtTeamAdded, TeamID: cmd.Team.ID, TeamName: cmd.Team.Name}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyBroadcast(s State, q Question) ([]Event, State, error) {
	// Resend: clients replace the question they show. Edited content is
	// taken over; position, phase and history stay.
	if s.Current != nil && s.Current.ID == q.ID {
		next := s.clone()
		next.Current.Text = q.Text
		next.Current.MediaURL = q.MediaURL
		next.Current.Answer = q.Answer
		return []Event{{Type: EvtQuestionBroadcast, Question: *next.Current, RoundID: next.RoundID}}, next, nil
	}

	if s.Phase == PhaseQuestionLive {
		return nil, s, violation(s.Phase, CmdBroadcast)
	}
	if !slices.Contains(s.Rounds, q.RoundID) {
		return nil, s, fmt.Errorf("question %d: %w", q.ID, ErrNotFound)
	}
	if q.RoundID != s.RoundID {
		return nil, s, ErrRoundBoundary
	}

	reopen := len(s.Broadcast) > 0 && s.Broadcast[len(s.Broadcast)-1] == q.ID
	if !reopen && q.Order <= s.LastOrder {
		return nil, s, ErrQuestionOrder
	}

	next := s.clone()
	next.Phase = PhaseQuestionLive
	next.Current = &q
	next.Revealed = false
	next.LastOrder = q.Order
	if !reopen {
		next.Broadcast = append(next.Broadcast, q.ID)
	}

	events := []Event{
		{Type: EvtPhaseChanged, Phase: PhaseQuestionLive},
		{Type: EvtQuestionBroadcast, Question: q, RoundID: q.RoundID},
	}
	return events, next, nil
}

func violation(p Phase, c CommandType) error {
	return fmt.Errorf("%w: %s not allowed in phase %s", ErrPhaseViolation, c, p)
}

// Reduce folds events over initial. For any command sequence it yields the
// same state as the successive Apply calls that produced the events.
func Reduce(initial State, events []Event) State {
	s := initial.clone()
	for _, event := range events {
		switch event.Type {
		case EvtPhaseChanged:
			s.Phase = event.Phase
			if event.Phase == PhaseIdle {
				s.Current = nil
				s.Revealed = false
			}
		case EvtAnswerRevealed:
			s.Revealed = true
		case EvtQuestionBroadcast:
			q := event.Question
			if s.Current != nil && s.Current.ID == q.ID {
				s.Current.Text = q.Text
				s.Current.MediaURL = q.MediaURL
				s.Current.Answer = q.Answer
				continue
			}
			s.Current = &q
			s.Revealed = false
			s.LastOrder = q.Order
			if len(s.Broadcast) == 0 || s.Broadcast[len(s.Broadcast)-1] != q.ID {
				s.Broadcast = append(s.Broadcast, q.ID)
			}
		case EvtScoreChanged:
			s.Points[event.TeamID] += event.Delta
		case EvtRoundAdvanced:
			s.RoundID = event.RoundID
			s.LastOrder = 0
			s.Current = nil
			s.Revealed = false
		case EvtScoresReset:
			for id := range s.Points {
				s.Points[id] = 0
			}
		case EvtTeamAdded:
			s.Teams[event.TeamID] = event.TeamName
			if _, ok := s.Points[event.TeamID]; !ok {
				s.Points[event.TeamID] = 0
			}
		}
	}
	return s
}
