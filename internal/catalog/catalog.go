// Package catalog stores games, rounds, teams, questions and the last
// committed session state. It is the CRUD side of the system; live play
// never reads it except to hydrate a session.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
)

// RoundsPerGame is the number of rounds created with every game.
const RoundsPerGame = 6

const (
	MinOrder = 1
	MaxOrder = 10
)

var ErrNotFound = fmt.Errorf("catalog: %w", engine.ErrNotFound)
var ErrConflict = errors.New("catalog: conflict")
var ErrInvalid = errors.New("catalog: invalid input")

type Catalog interface {
	CreateGame(ctx context.Context, title string) (Game, error)
	Game(ctx context.Context, id int64) (Game, error)
	ListGames(ctx context.Context) ([]Game, error)

	CreateTeam(ctx context.Context, name string) (Team, error)
	Team(ctx context.Context, id int64) (Team, error)
	ListTeams(ctx context.Context) ([]Team, error)

	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, id int64, q Question) (Question, error)
	Question(ctx context.Context, id int64) (Question, error)
	ListRoundQuestions(ctx context.Context, roundID int64) ([]Question, error)
	ListGameQuestions(ctx context.Context, gameID int64) ([]Question, error)

	CreateUser(ctx context.Context, u User) (User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// SubmitAnswer records a team's answer and marks whether it matches.
	// A second answer from the same team to the same question conflicts.
	SubmitAnswer(ctx context.Context, questionID, teamID int64, text string) (AnswerSubmission, error)
	ListAnswers(ctx context.Context, questionID int64) ([]AnswerSubmission, error)

	Scores(ctx context.Context, gameID int64) (map[int64]int, error)
	SaveSession(ctx context.Context, st engine.State) error

	Close() error
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalid)
	}
	if q.Order < MinOrder || q.Order > MaxOrder {
		return fmt.Errorf("%w: order must be between %d and %d", ErrInvalid, MinOrder, MaxOrder)
	}
	return nil
}

func validateUser(u User) error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: user name is required", ErrInvalid)
	}
	switch u.Role {
	case RoleHost:
		if u.TeamID != nil {
			return fmt.Errorf("%w: hosts do not belong to a team", ErrInvalid)
		}
	case RoleTeamMember:
	default:
		return fmt.Errorf("%w: role must be %q or %q", ErrInvalid, RoleHost, RoleTeamMember)
	}
	return nil
}

// IsCorrect compares a submitted answer with the expected one, ignoring
// case and surrounding whitespace.
func IsCorrect(expected, submitted string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(submitted))
}

func validateAnswer(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: answer text is required", ErrInvalid)
	}
	return nil
}

func ToEngineQuestion(q Question) engine.Question {
	return engine.Question{
		ID:       q.ID,
		RoundID:  q.RoundID,
		Order:    q.Order,
		Text:     q.Text,
		MediaURL: q.MediaURL,
		Answer:   q.Answer,
	}
}

// LoadState rebuilds the live state of a game from its last saved form.
// The broadcast history is not persisted, so it restarts at the current
// question.
func LoadState(ctx context.Context, c Catalog, gameID int64) (engine.State, error) {
	g, err := c.Game(ctx, gameID)
	if err != nil {
		return engine.State{}, err
	}

	rounds := slices.Clone(g.Rounds)
	slices.SortFunc(rounds, func(a, b Round) int { return a.Number - b.Number })
	roundIDs := make([]int64, 0, len(rounds))
	for _, r := range rounds {
		roundIDs = append(roundIDs, r.ID)
	}

	teams, err := c.ListTeams(ctx)
	if err != nil {
		return engine.State{}, err
	}
	roster := make([]engine.Team, 0, len(teams))
	for _, t := range teams {
		roster = append(roster, engine.Team{ID: t.ID, Name: t.Name})
	}

	st := engine.NewState(g.ID, roundIDs, roster)

	scores, err := c.Scores(ctx, gameID)
	if err != nil {
		return engine.State{}, err
	}
	for teamID, pts := range scores {
		if _, ok := st.Teams[teamID]; ok {
			st.Points[teamID] = pts
		}
	}

	if g.CurrentRoundID != nil && slices.Contains(roundIDs, *g.CurrentRoundID) {
		st.RoundID = *g.CurrentRoundID
	}
	if g.CurrentQuestionID != nil {
		q, err := c.Question(ctx, *g.CurrentQuestionID)
		switch {
		case err == nil && q.RoundID == st.RoundID:
			eq := ToEngineQuestion(q)
			st.Current = &eq
			st.LastOrder = q.Order
			st.Broadcast = []int64{q.ID}
		case err != nil && !errors.Is(err, engine.ErrNotFound):
			return engine.State{}, err
		}
	}

	if phase, ok := engine.ParsePhase(g.Phase); ok {
		st.Phase = phase
	}
	if st.Current == nil && (st.Phase == engine.PhaseQuestionLive || st.Phase == engine.PhaseRevealed) {
		st.Phase = engine.PhaseIdle
	}
	st.Revealed = st.Current != nil && (g.Revealed || st.Phase == engine.PhaseRevealed)
	return st, nil
}

// Roster lists every team as engine teams for the store's reconcile hook.
func Roster(c Catalog) func(ctx context.Context) ([]engine.Team, error) {
	return func(ctx context.Context) ([]engine.Team, error) {
		teams, err := c.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]engine.Team, 0, len(teams))
		for _, t := range teams {
			out = append(out, engine.Team{ID: t.ID, Name: t.Name})
		}
		return out, nil
	}
}

// Loader adapts LoadState to the store's hydration hook.
func Loader(c Catalog) func(ctx context.Context, gameID int64) (engine.State, error) {
	return func(ctx context.Context, gameID int64) (engine.State, error) {
		return LoadState(ctx, c, gameID)
	}
}
