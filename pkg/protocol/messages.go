package protocol

import "encoding/json"

type Type string

const (
	TypeSubscribe         Type = "subscribe"
	TypeUnsubscribe       Type = "unsubscribe"
	TypeSnapshot          Type = "snapshot"
	TypePhaseUpdate       Type = "phase_update"
	TypeQuestion          Type = "question"
	TypeAnswerReveal      Type = "answer_reveal"
	TypeLeaderboardUpdate Type = "leaderboard_update"
	TypeError             Type = "error"
)

// Message is the closed set of frames. Only types in this package implement it.
type Message interface {
	MessageType() Type
	isMessage()
}

type Question struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
	Order    int    `json:"order"`
	Answer   string `json:"answer,omitempty"`
}

type Standing struct {
	TeamID   int64  `json:"team_id"`
	TeamName string `json:"team_name"`
	Points   int    `json:"points"`
}

type Subscribe struct {
	GameID int64 `json:"game_id"`
}

type Unsubscribe struct {
	GameID int64 `json:"game_id"`
}

type Snapshot struct {
	GameID      int64      `json:"game_id"`
	Version     int        `json:"version"`
	Phase       string     `json:"phase"`
	RoundID     int64      `json:"round_id"`
	RoundNumber int        `json:"round_number"`
	Question    *Question  `json:"question,omitempty"`
	Standings   []Standing `json:"standings"`
}

type PhaseUpdate struct {
	GameID  int64  `json:"game_id"`
	Phase   string `json:"phase"`
	RoundID int64  `json:"round_id,omitempty"`
}

type QuestionBroadcast struct {
	GameID   int64    `json:"game_id"`
	RoundID  int64    `json:"round_id"`
	Question Question `json:"question"`
}

type AnswerReveal struct {
	GameID     int64  `json:"game_id"`
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

type LeaderboardUpdate struct {
	GameID    int64      `json:"game_id"`
	Standings []Standing `json:"standings"`
}

type Error struct {
	Message string `json:"error"`
}

func (Subscribe) MessageType() Type         { return TypeSubscribe }
func (Unsubscribe) MessageType() Type       { return TypeUnsubscribe }
func (Snapshot) MessageType() Type          { return TypeSnapshot }
func (PhaseUpdate) MessageType() Type       { return TypePhaseUpdate }
func (QuestionBroadcast) MessageType() Type { return TypeQuestion }
func (AnswerReveal) MessageType() Type      { return TypeAnswerReveal }
func (LeaderboardUpdate) MessageType() Type { return TypeLeaderboardUpdate }
func (Error) MessageType() Type             { return TypeError }

func (Subscribe) isMessage()         {}
func (Unsubscribe) isMessage()       {}
func (Snapshot) isMessage()          {}
func (PhaseUpdate) isMessage()       {}
func (QuestionBroadcast) isMessage() {}
func (AnswerReveal) isMessage()      {}
func (LeaderboardUpdate) isMessage() {}
func (Error) isMessage()             {}

// The tag is written by the variant itself so a frame can never carry a type
// that disagrees with its payload.

func (m Subscribe) MarshalJSON() ([]byte, error) {
	type alias Subscribe
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeSubscribe, alias(m)})
}

func (m Unsubscribe) MarshalJSON() ([]byte, error) {
	type alias Unsubscribe
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeUnsubscribe, alias(m)})
}

func (m Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	if m.Standings == nil {
		m.Standings = []Standing{}
	}
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeSnapshot, alias(m)})
}

func (m PhaseUpdate) MarshalJSON() ([]byte, error) {
	type alias PhaseUpdate
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypePhaseUpdate, alias(m)})
}

func (m QuestionBroadcast) MarshalJSON() ([]byte, error) {
	type alias QuestionBroadcast
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeQuestion, alias(m)})
}

func (m AnswerReveal) MarshalJSON() ([]byte, error) {
	type alias AnswerReveal
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeAnswerReveal, alias(m)})
}

func (m LeaderboardUpdate) MarshalJSON() ([]byte, error) {
	type alias LeaderboardUpdate
	if m.Standings == nil {
		m.Standings = []Standing{}
	}
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeLeaderboardUpdate, alias(m)})
}

func (m Error) MarshalJSON() ([]byte, error) {
	type alias Error
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeError, alias(m)})
}
