// Package types holds the JSON bodies of the REST API.
package types

import "time"

type CreateGameRequest struct {
	Title string `json:"title"`
}

type Round struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
}

type Game struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Phase             string    `json:"phase"`
	CurrentRoundID    *int64    `json:"current_round_id,omitempty"`
	CurrentQuestionID *int64    `json:"current_question_id,omitempty"`
	Rounds            []Round   `json:"rounds,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type CreateTeamRequest struct {
	Name string `json:"name"`
}

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type QuestionRequest struct {
	RoundID  int64  `json:"round_id"`
	Order    int    `json:"order"`
	Text     string `json:"text"`
	Answer   string `json:"answer"`
	MediaURL string `json:"media_url,omitempty"`
}

type Question struct {
	ID          int64  `json:"id"`
	GameID      int64  `json:"game_id"`
	RoundID     int64  `json:"round_id"`
	RoundNumber int    `json:"round_number"`
	Order       int    `json:"order"`
	Text        string `json:"text"`
	MediaURL    string `json:"media_url,omitempty"`
	Answer      string `json:"answer,omitempty"`
}

type ScoreRequest struct {
	TeamID    int64  `json:"team_id"`
	Delta     int    `json:"delta"`
	RequestID string `json:"request_id,omitempty"`
}

type Standing struct {
	Position int    `json:"position"`
	TeamID   int64  `json:"team_id"`
	TeamName string `json:"team_name"`
	Points   int    `json:"points"`
}

// Session is the committed live state of a game.
type Session struct {
	GameID      int64      `json:"game_id"`
	Version     int        `json:"version"`
	Phase       string     `json:"phase"`
	RoundID     int64      `json:"round_id"`
	RoundNumber int        `json:"round_number"`
	Question    *Question  `json:"question,omitempty"`
	Broadcast   []int64    `json:"broadcast"`
	Standings   []Standing `json:"standings"`
	Subscribers int        `json:"subscribers,omitempty"`
}

type Error struct {
	Error string `json:"error"`
}

type CreateUserRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	TeamID *int64 `json:"team_id,omitempty"`
}

type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	TeamID *int64 `json:"team_id"`
}

type AnswerRequest struct {
	QuestionID int64  `json:"question_id"`
	TeamID     int64  `json:"team_id"`
	AnswerText string `json:"answer_text"`
}

// Answer is a recorded submission. Correct is only filled in for the host.
type Answer struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"question_id"`
	TeamID      int64     `json:"team_id"`
	AnswerText  string    `json:"answer_text"`
	Correct     *bool     `json:"is_correct,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ScoreAnswersRequest struct {
	Points int `json:"points"`
}
