package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/catalog"
	"github.com/DoyleJ11/trivia-hub/internal/config"
	"github.com/DoyleJ11/trivia-hub/internal/hub"
	"github.com/DoyleJ11/trivia-hub/internal/store"
	"github.com/DoyleJ11/trivia-hub/internal/ws"
)

type Deps struct {
	Config  *config.Config
	Catalog catalog.Catalog
	Store   *store.Store
	Hub     *hub.Hub
	Logger  *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cat, st := d.Catalog, d.Store

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(WithRole(d.Config.IsHost))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{
		Role:           func(r *http.Request) bool { return HostFrom(r.Context()) },
		OriginPatterns: d.Config.AllowOrigins,
		WriteTimeout:   d.Config.WriteTimeout,
		PingInterval:   d.Config.PingInterval,
		Logger:         log.Named("ws"),
	}))

	r.Route("/games", func(r chi.Router) {
		r.Post("/", CreateGame(cat, log))
		r.Get("/", ListGames(cat, log))
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", GetGame(cat, log))
			r.Get("/session", GetSession(st, log))
			r.Get("/leaderboard", GetLeaderboard(st, log))
			r.Get("/qr", GetQR(cat, d.Config.PublicURL, log))

			// Host routes
			r.Group(func(r chi.Router) {
				r.Use(RequireHost)
				r.Get("/questions", ListGameQuestions(cat, log))
				r.Post("/reveal", Reveal(st, log))
				r.Post("/score", Score(st, log))
				r.Post("/answers/score", ScoreAnswers(cat, st, log))
				r.Post("/leaderboard", ShowLeaderboard(st, log))
				r.Post("/reset", Reset(st, log))
				r.Post("/rounds/advance", AdvanceRound(st, log))
				r.Post("/scores/reset", ResetScores(st, log))
			})
		})
	})

	r.Post("/teams", CreateTeam(cat, st, log))
	r.Get("/teams", ListTeams(cat, log))
	r.Post("/users", CreateUser(cat, log))
	r.Get("/users", ListUsers(cat, log))
	r.Post("/answers", SubmitAnswer(cat, st, log))
	r.Get("/rounds/{roundID}/questions", ListRoundQuestions(cat, log))

	r.Group(func(r chi.Router) {
		r.Use(RequireHost)
		r.Post("/questions", CreateQuestion(cat, log))
		r.Put("/questions/{questionID}", UpdateQuestion(cat, log))
		r.Post("/questions/{questionID}/broadcast", BroadcastQuestion(cat, st, log))
		r.Get("/questions/{questionID}/answers", ListAnswers(cat, log))
	})
	return r
}
