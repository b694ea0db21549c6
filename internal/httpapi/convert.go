package httpapi

import (
	"github.com/DoyleJ11/trivia-hub/internal/catalog"
	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/leaderboard"
	"github.com/DoyleJ11/trivia-hub/internal/session"
	"github.com/DoyleJ11/trivia-hub/internal/types"
)

func gameDTO(g catalog.Game) types.Game {
	out := types.Game{
		ID:                g.ID,
		Title:             g.Title,
		Phase:             g.Phase,
		CurrentRoundID:    g.CurrentRoundID,
		CurrentQuestionID: g.CurrentQuestionID,
		CreatedAt:         g.CreatedAt,
	}
	for _, r := range g.Rounds {
		out.Rounds = append(out.Rounds, types.Round{ID: r.ID, Number: r.Number})
	}
	return out
}

func teamDTO(t catalog.Team) types.Team {
	return types.Team{ID: t.ID, Name: t.Name}
}

func questionDTO(q catalog.Question, withAnswer bool) types.Question {
	out := types.Question{
		ID:          q.ID,
		GameID:      q.Round.GameID,
		RoundID:     q.RoundID,
		RoundNumber: q.Round.Number,
		Order:       q.Order,
		Text:        q.Text,
		MediaURL:    q.MediaURL,
	}
	if withAnswer {
		out.Answer = q.Answer
	}
	return out
}

func questionsDTO(qs []catalog.Question, withAnswer bool) []types.Question {
	out := make([]types.Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionDTO(q, withAnswer))
	}
	return out
}

func standingsDTO(st engine.State) []types.Standing {
	computed := leaderboard.Compute(st.Points, st.Teams)
	out := make([]types.Standing, 0, len(computed))
	for _, s := range computed {
		out = append(out, types.Standing{Position: s.Position, TeamID: s.TeamID, TeamName: s.TeamName, Points: s.Points})
	}
	return out
}

func sessionDTO(v session.View, host bool) types.Session {
	st := v.State
	out := types.Session{
		GameID:      st.GameID,
		Version:     v.Version,
		Phase:       string(st.Phase),
		RoundID:     st.RoundID,
		RoundNumber: engine.RoundNumber(st),
		Broadcast:   append([]int64{}, st.Broadcast...),
		Standings:   standingsDTO(st),
		Subscribers: v.NumSubscribers,
	}
	if q := st.Current; q != nil {
		dto := types.Question{
			ID:          q.ID,
			GameID:      st.GameID,
			RoundID:     q.RoundID,
			RoundNumber: engine.RoundNumber(st),
			Order:       q.Order,
			Text:        q.Text,
			MediaURL:    q.MediaURL,
		}
		if host || st.Revealed {
			dto.Answer = q.Answer
		}
		out.Question = &dto
	}
	return out
}

func userDTO(u catalog.User) types.User {
	return types.User{ID: u.ID, Name: u.Name, Role: string(u.Role), TeamID: u.TeamID}
}

func answerDTO(a catalog.AnswerSubmission, host bool) types.Answer {
	out := types.Answer{
		ID:          a.ID,
		QuestionID:  a.QuestionID,
		TeamID:      a.TeamID,
		AnswerText:  a.Text,
		SubmittedAt: a.SubmittedAt,
	}
	if host {
		correct := a.Correct
		out.Correct = &correct
	}
	return out
}
