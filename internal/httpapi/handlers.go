package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/catalog"
	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/session"
	"github.com/DoyleJ11/trivia-hub/internal/store"
	"github.com/DoyleJ11/trivia-hub/internal/types"
)

const qrSize = 320

// rosterTimeout bounds the fan-out of a new team to live sessions.
const rosterTimeout = 2 * time.Second

func CreateGame(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.CreateGameRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		g, err := cat.CreateGame(r.Context(), in.Title)
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("game created", zap.Int64("game_id", g.ID), zap.String("title", g.Title))
		writeJSON(w, http.StatusCreated, gameDTO(g))
	}
}

func ListGames(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := cat.ListGames(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]types.Game, 0, len(games))
		for _, g := range games {
			out = append(out, gameDTO(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetGame(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		g, err := cat.Game(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, gameDTO(g))
	}
}

// GetSession returns the live state of a game for late joiners.
func GetSession(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		v, err := st.Snapshot(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionDTO(v, HostFrom(r.Context())))
	}
}

func GetLeaderboard(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		v, err := st.Snapshot(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, standingsDTO(v.State))
	}
}

func GetQR(cat catalog.Catalog, publicURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		if _, err := cat.Game(r.Context(), id); err != nil {
			writeError(w, log, err)
			return
		}

		png, err := qrcode.Encode(fmt.Sprintf("%s/?game=%d", publicURL, id), qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, log, fmt.Errorf("qr: %w", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// CreateTeam registers a team and adds it to every live game's roster.
func CreateTeam(cat catalog.Catalog, st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.CreateTeamRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		t, err := cat.CreateTeam(r.Context(), in.Name)
		if err != nil {
			writeError(w, log, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), rosterTimeout)
		defer cancel()
		cmd := engine.Command{Type: engine.CmdAddTeam, Host: true, Team: engine.Team{ID: t.ID, Name: t.Name}}
		err = st.Each(ctx, func(sess *session.Session) {
			if _, err := sess.Apply(ctx, cmd); err != nil {
				log.Warn("roster update failed", zap.Int64("game_id", sess.GameID()), zap.Error(err))
			}
		})
		if err != nil {
			log.Warn("roster fan-out failed", zap.Int64("team_id", t.ID), zap.Error(err))
		}

		writeJSON(w, http.StatusCreated, teamDTO(t))
	}
}

func ListTeams(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := cat.ListTeams(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]types.Team, 0, len(teams))
		for _, t := range teams {
			out = append(out, teamDTO(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func questionFrom(in types.QuestionRequest) catalog.Question {
	return catalog.Question{
		RoundID:  in.RoundID,
		Order:    in.Order,
		Text:     in.Text,
		Answer:   in.Answer,
		MediaURL: in.MediaURL,
	}
}

func CreateQuestion(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.QuestionRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		q, err := cat.CreateQuestion(r.Context(), questionFrom(in))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, questionDTO(q, true))
	}
}

// UpdateQuestion edits a question's content. A question that is already
// live keeps its broadcast text until the host sends it again.
func UpdateQuestion(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		var in types.QuestionRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		q, err := cat.UpdateQuestion(r.Context(), id, questionFrom(in))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, questionDTO(q, true))
	}
}

func ListRoundQuestions(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "roundID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		qs, err := cat.ListRoundQuestions(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, questionsDTO(qs, HostFrom(r.Context())))
	}
}

func ListGameQuestions(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		qs, err := cat.ListGameQuestions(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, questionsDTO(qs, true))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
