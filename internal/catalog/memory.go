package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
)

// Memory is a Catalog kept in process memory. It backs tests and runs
// without a database; nothing survives a restart.
type Memory struct {
	mu        sync.RWMutex
	nextID    int64
	games     map[int64]Game
	rounds    map[int64]Round
	teams     map[int64]Team
	questions map[int64]Question
	users     map[int64]User
	answers   map[int64]AnswerSubmission
	scores    map[int64]map[int64]int
}

func NewMemory() *Memory {
	return &Memory{
		games:     make(map[int64]Game),
		rounds:    make(map[int64]Round),
		teams:     make(map[int64]Team),
		questions: make(map[int64]Question),
		users:     make(map[int64]User),
		answers:   make(map[int64]AnswerSubmission),
		scores:    make(map[int64]map[int64]int),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) CreateGame(_ context.Context, title string) (Game, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Game{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	g := Game{ID: m.id(), Title: title, Phase: string(engine.PhaseIdle), CreatedAt: now, UpdatedAt: now}
	for n := 1; n <= RoundsPerGame; n++ {
		r := Round{ID: m.id(), GameID: g.ID, Number: n}
		m.rounds[r.ID] = r
		g.Rounds = append(g.Rounds, r)
	}
	first := g.Rounds[0].ID
	g.CurrentRoundID = &first
	m.games[g.ID] = g
	return m.gameLocked(g.ID), nil
}

func (m *Memory) gameLocked(id int64) Game {
	g := m.games[id]
	g.Rounds = slices.Clone(g.Rounds)
	if g.CurrentRoundID != nil {
		v := *g.CurrentRoundID
		g.CurrentRoundID = &v
	}
	if g.CurrentQuestionID != nil {
		v := *g.CurrentQuestionID
		g.CurrentQuestionID = &v
	}
	return g
}

func (m *Memory) Game(_ context.Context, id int64) (Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.games[id]; !ok {
		return Game{}, ErrNotFound
	}
	return m.gameLocked(id), nil
}

func (m *Memory) ListGames(_ context.Context) ([]Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Game, 0, len(m.games))
	for id := range m.games {
		g := m.gameLocked(id)
		g.Rounds = nil
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b Game) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) CreateTeam(_ context.Context, name string) (Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Team{}, fmt.Errorf("%w: team name is required", ErrInvalid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.Name == name {
			return Team{}, fmt.Errorf("%w: team %q exists", ErrConflict, name)
		}
	}
	t := Team{ID: m.id(), Name: name, CreatedAt: time.Now()}
	m.teams[t.ID] = t
	return t, nil
}

func (m *Memory) Team(_ context.Context, id int64) (Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) ListTeams(_ context.Context) ([]Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Team) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) CreateQuestion(_ context.Context, q Question) (Question, error) {
	if err := validateQuestion(q); err != nil {
		return Question{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[q.RoundID]
	if !ok {
		return Question{}, fmt.Errorf("round %d: %w", q.RoundID, ErrNotFound)
	}
	q.ID = m.id()
	q.Round = Round{}
	m.questions[q.ID] = q
	q.Round = r
	return q, nil
}

func (m *Memory) UpdateQuestion(_ context.Context, id int64, in Question) (Question, error) {
	if err := validateQuestion(in); err != nil {
		return Question{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	q.Order = in.Order
	q.Text = in.Text
	q.Answer = in.Answer
	q.MediaURL = in.MediaURL
	m.questions[id] = q
	q.Round = m.rounds[q.RoundID]
	return q, nil
}

func (m *Memory) Question(_ context.Context, id int64) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	q.Round = m.rounds[q.RoundID]
	return q, nil
}

func (m *Memory) ListRoundQuestions(_ context.Context, roundID int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, ErrNotFound
	}
	var out []Question
	for _, q := range m.questions {
		if q.RoundID == roundID {
			q.Round = r
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func (m *Memory) ListGameQuestions(_ context.Context, gameID int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.games[gameID]; !ok {
		return nil, ErrNotFound
	}
	var out []Question
	for _, q := range m.questions {
		r := m.rounds[q.RoundID]
		if r.GameID == gameID {
			q.Round = r
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func sortQuestions(qs []Question) {
	slices.SortFunc(qs, func(a, b Question) int {
		if c := cmp.Compare(a.Round.Number, b.Round.Number); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if err := validateUser(u); err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u.Team = nil
	if u.TeamID != nil {
		t, ok := m.teams[*u.TeamID]
		if !ok {
			return User{}, fmt.Errorf("team %d: %w", *u.TeamID, ErrNotFound)
		}
		id := t.ID
		u.TeamID = &id
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) SubmitAnswer(_ context.Context, questionID, teamID int64, text string) (AnswerSubmission, error) {
	if err := validateAnswer(text); err != nil {
		return AnswerSubmission{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return AnswerSubmission{}, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	if _, ok := m.teams[teamID]; !ok {
		return AnswerSubmission{}, fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	for _, a := range m.answers {
		if a.QuestionID == questionID && a.TeamID == teamID {
			return AnswerSubmission{}, fmt.Errorf("%w: team %d already answered question %d", ErrConflict, teamID, questionID)
		}
	}
	a := AnswerSubmission{
		ID:          m.id(),
		QuestionID:  questionID,
		TeamID:      teamID,
		Text:        text,
		Correct:     IsCorrect(q.Answer, text),
		SubmittedAt: time.Now(),
	}
	m.answers[a.ID] = a
	return a, nil
}

func (m *Memory) ListAnswers(_ context.Context, questionID int64) ([]AnswerSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.questions[questionID]; !ok {
		return nil, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	var out []AnswerSubmission
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b AnswerSubmission) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) Scores(_ context.Context, gameID int64) (map[int64]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]int, len(m.scores[gameID]))
	for k, v := range m.scores[gameID] {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveSession(_ context.Context, st engine.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[st.GameID]
	if !ok {
		return ErrNotFound
	}
	g.Phase = string(st.Phase)
	g.Revealed = st.Revealed
	g.CurrentRoundID = nil
	if st.RoundID != 0 {
		id := st.RoundID
		g.CurrentRoundID = &id
	}
	g.CurrentQuestionID = nil
	if st.Current != nil {
		id := st.Current.ID
		g.CurrentQuestionID = &id
	}
	g.UpdatedAt = time.Now()
	m.games[st.GameID] = g

	pts := make(map[int64]int, len(st.Points))
	for k, v := range st.Points {
		pts[k] = v
	}
	m.scores[st.GameID] = pts
	return nil
}
