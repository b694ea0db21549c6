package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/catalog"
	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/session"
	"github.com/DoyleJ11/trivia-hub/internal/store"
	"github.com/DoyleJ11/trivia-hub/internal/types"
)

func CreateUser(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.CreateUserRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		u, err := cat.CreateUser(r.Context(), catalog.User{Name: in.Name, Role: catalog.Role(in.Role), TeamID: in.TeamID})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, userDTO(u))
	}
}

func ListUsers(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := cat.ListUsers(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]types.User, 0, len(users))
		for _, u := range users {
			out = append(out, userDTO(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// SubmitAnswer records a team's answer to the question that is live right
// now. Answers to any other question, or after the reveal, are refused.
func SubmitAnswer(cat catalog.Catalog, st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.AnswerRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		q, err := cat.Question(r.Context(), in.QuestionID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		view, err := st.Snapshot(r.Context(), q.Round.GameID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		cur := view.State.Current
		if view.State.Phase != engine.PhaseQuestionLive || cur == nil || cur.ID != q.ID {
			writeError(w, log, fmt.Errorf("%w: question %d is not taking answers", engine.ErrPhaseViolation, q.ID))
			return
		}

		a, err := cat.SubmitAnswer(r.Context(), q.ID, in.TeamID, in.AnswerText)
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("answer submitted",
			zap.Int64("game_id", q.Round.GameID),
			zap.Int64("question_id", q.ID),
			zap.Int64("team_id", a.TeamID),
		)
		writeJSON(w, http.StatusCreated, answerDTO(a, HostFrom(r.Context())))
	}
}

func ListAnswers(cat catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "questionID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		answers, err := cat.ListAnswers(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]types.Answer, 0, len(answers))
		for _, a := range answers {
			out = append(out, answerDTO(a, true))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ScoreAnswers awards points to every team that answered the revealed
// question correctly. Each submission scores at most once, so repeating the
// call changes nothing.
func ScoreAnswers(cat catalog.Catalog, st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "gameID")
		if err != nil {
			writeError(w, log, err)
			return
		}
		var in types.ScoreAnswersRequest
		if err := decode(r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		if in.Points == 0 {
			writeError(w, log, fmt.Errorf("%w: points must not be zero", errBadRequest))
			return
		}

		view, err := st.Snapshot(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		cur := view.State.Current
		if view.State.Phase != engine.PhaseRevealed || cur == nil {
			writeError(w, log, fmt.Errorf("%w: answers are scored after the reveal", engine.ErrPhaseViolation))
			return
		}
		answers, err := cat.ListAnswers(r.Context(), cur.ID)
		if err != nil {
			writeError(w, log, err)
			return
		}

		res := session.Result{Version: view.Version, State: view.State}
		scored := 0
		for _, a := range answers {
			if !a.Correct {
				continue
			}
			res, err = st.ApplyScoreDelta(r.Context(), id, a.TeamID, in.Points, fmt.Sprintf("answer-%d", a.ID), HostFrom(r.Context()))
			if err != nil {
				writeError(w, log, err)
				return
			}
			scored++
		}
		log.Info("answers scored",
			zap.Int64("game_id", id),
			zap.Int64("question_id", cur.ID),
			zap.Int("correct", scored),
		)
		respondResult(w, res)
	}
}
