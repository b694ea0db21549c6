package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/catalog"
	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/session"
	"github.com/DoyleJ11/trivia-hub/internal/store"
	"github.com/DoyleJ11/trivia-hub/internal/types"
)

func respondResult(w http.ResponseWriter, res session.Result) {
	writeJSON(w, http.StatusOK, sessionDTO(session.View{Version: res.Version, State: res.State}, true))
}

// gameCommand serves a host action that maps directly onto one command.
func gameCommand(st *store.Store, log *zap.Logger, typ engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		res, err := st.Apply(r.Context(), id, engine.Command{Type: typ, Host: HostFrom(r.Context())})
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondResult(w, res)
	}
}

func Reveal(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return gameCommand(st, log, engine.CmdReveal)
}

func ShowLeaderboard(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return gameCommand(st, log, engine.CmdShowLeaderboard)
}

func Reset(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return gameCommand(st, log, engine.CmdReset)
}

func AdvanceRound(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return gameCommand(st, log, engine.CmdAdvanceRound)
}

func ResetScores(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return gameCommand(st, log, engine.CmdResetScores)
}

func Score(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		var in types.ScoreRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		res, err := st.ApplyScoreDelta(r.Context(), id, in.TeamID, in.Delta, in.RequestID, HostFrom(r.Context()))
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondResult(w, res)
	}
}

// BroadcastQuestion makes a catalog question the live question of its game.
func BroadcastQuestion(cat catalog.Catalog, st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		q, err := cat.Question(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		res, err := st.SetCurrentQuestion(r.Context(), q.Round.GameID, catalog.ToEngineQuestion(q), HostFrom(r.Context()))
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("question broadcast",
			zap.Int64("game_id", q.Round.GameID),
			zap.Int64("question_id", q.ID),
			zap.Int("version", res.Version),
		)
		respondResult(w, res)
	}
}
