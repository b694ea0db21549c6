package engine

import (
	"maps"
	"slices"
)

// NewState returns the idle state of a game positioned on its first round.
func NewState(gameID int64, rounds []int64, teams []Team) State {
	s := State{
		GameID:          gameID,
		Phase:           PhaseIdle,
		Rounds:          slices.Clone(rounds),
		Broadcast:       []int64{},
		Teams:           make(map[int64]string, len(teams)),
		Points:          make(map[int64]int, len(teams)),
		AppliedRequests: map[string]bool{},
	}
	if len(rounds) > 0 {
		s.RoundID = rounds[0]
	}
	for _, t := range teams {
		s.Teams[t.ID] = t.Name
		s.Points[t.ID] = 0
	}
	return s
}

// Clone returns a deep copy so a snapshot can leave the owning goroutine.
func (s State) Clone() State { return s.clone() }

func (s State) clone() State {
	c := s
	c.Rounds = slices.Clone(s.Rounds)
	c.Broadcast = slices.Clone(s.Broadcast)
	c.Teams = maps.Clone(s.Teams)
	c.Points = maps.Clone(s.Points)
	c.AppliedRequests = maps.Clone(s.AppliedRequests)
	if c.Teams == nil {
		c.Teams = map[int64]string{}
	}
	if c.Points == nil {
		c.Points = map[int64]int{}
	}
	if c.AppliedRequests == nil {
		c.AppliedRequests = map[string]bool{}
	}
	if s.Current != nil {
		q := *s.Current
		c.Current = &q
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// RoundNumber is the 1-based position of the current round, 0 if unknown.
func RoundNumber(s State) int {
	return slices.Index(s.Rounds, s.RoundID) + 1
}

func ParsePhase(p string) (Phase, bool) {
	switch Phase(p) {
	case PhaseIdle, PhaseQuestionLive, PhaseRevealed, PhaseLeaderboardShown:
		return Phase(p), true
	default:
		return "", false
	}
}
