package routes

import (
	"github.com/dartmaster/dartmaster-api/handlers"
	"github.com/dartmaster/dartmaster-api/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes mounts the full API surface onto the router.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	corsOrigins []string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	scoreHandler *handlers.ScoreHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Post("/auth/refresh", authHandler.Refresh)
	router.With(authenticate).Post("/auth/logout", authHandler.Logout)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/participants", tournamentHandler.ListParticipants)
		r.Get("/{tournamentID}/groups", tournamentHandler.ListGroups)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournament)
		r.Get("/{tournamentID}/statistics", tournamentHandler.ListStatistics)
		r.Get("/{tournamentID}/statistics/{playerID}", tournamentHandler.GetPlayerStatistics)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.Create)
			r.Put("/{tournamentID}", tournamentHandler.Update)
			r.Patch("/{tournamentID}/status", tournamentHandler.ChangeStatus)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)

			r.Post("/{tournamentID}/register", tournamentHandler.Register)
			r.Delete("/{tournamentID}/register", tournamentHandler.Withdraw)

			r.Post("/{tournamentID}/groups", tournamentHandler.CreateGroup)
			r.Delete("/{tournamentID}/groups/{groupID}", tournamentHandler.DeleteGroup)
			r.Put("/{tournamentID}/participants/{playerID}/group", tournamentHandler.AssignGroup)

			r.Post("/{tournamentID}/logo", tournamentHandler.UploadLogo)
			r.Delete("/{tournamentID}/logo", tournamentHandler.RemoveLogo)

			r.Post("/{tournamentID}/matches", matchHandler.Create)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.Get)
		r.Get("/{matchID}/score", scoreHandler.GetScore)
		r.Get("/{matchID}/throws", scoreHandler.ListThrows)
		r.Get("/{matchID}/confirmations", matchHandler.ListConfirmations)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{matchID}/players", matchHandler.AddPlayer)
			r.Post("/{matchID}/start", matchHandler.Start)
			r.Delete("/{matchID}", matchHandler.Delete)

			r.Post("/{matchID}/throws", scoreHandler.RecordThrow)
			r.Delete("/{matchID}/throws/latest", scoreHandler.UndoLastThrow)

			r.Post("/{matchID}/confirm", matchHandler.Confirm)
		})
	})

	router.Get("/ws/matches/{matchID}", webSocketHandler.ServeMatch)

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
