package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/tkluge/tournament-server/handlers"
	"github.com/tkluge/tournament-server/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/register", authHandler.RegisterHandler)
	router.Post("/auth/login", authHandler.LoginHandler)

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", userHandler.MeHandler)
		r.Put("/me/avatar", userHandler.UploadAvatarHandler)
		r.Delete("/me/avatar", userHandler.RemoveAvatarHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Public read access
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/current", tournamentHandler.GetCurrentHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/close-signup", tournamentHandler.CloseSignUpHandler)
			r.Post("/{tournamentID}/start", tournamentHandler.StartHandler)
			r.Post("/{tournamentID}/abort", tournamentHandler.AbortHandler)
			r.Post("/{tournamentID}/games", tournamentHandler.StartGameHandler)
			r.Post("/{tournamentID}/results", tournamentHandler.ReportResultHandler)

			r.Post("/{tournamentID}/teams", registrationHandler.RegisterTeamHandler)
			r.Post("/{tournamentID}/teams/{teamName}/join", registrationHandler.JoinTeamHandler)
			r.Post("/{tournamentID}/teams/{teamName}/activate", registrationHandler.ActivateHandler)
			r.Post("/{tournamentID}/teams/{teamName}/decline", registrationHandler.DeclineHandler)
			r.Delete("/{tournamentID}/teams/{teamName}/players", registrationHandler.RemovePlayerHandler)
			r.Post("/{tournamentID}/leave", registrationHandler.LeaveHandler)
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/tournaments/{tournamentID}", webSocketHandler.ServeWs)
	})
}
