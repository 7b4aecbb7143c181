package handlers

import (
	"fishing-tournament-system/middleware"
	"fishing-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// Public routes (gateway token still required globally)
	app.Get("/tournaments/published", tournamentService.GetPublishedTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/participants", tournamentService.GetParticipants)

	// Identity middleware is attached per route. A catch-all Use/Group on "/"
	// would also gate the public routes registered after it.
	angler := middleware.AnglerContextMiddleware()

	// Tournament CRUD (organizers)
	app.Post("/tournaments", angler, tournamentService.CreateTournament)
	app.Get("/tournaments", angler, tournamentService.GetAllTournaments)
	app.Put("/tournaments/:id", angler, tournamentService.UpdateTournament)
	app.Delete("/tournaments/:id", angler, tournamentService.DeleteTournament)
	app.Post("/tournaments/:id/publish", angler, tournamentService.PublishTournament)

	// Participation
	app.Post("/tournaments/:id/join", angler, tournamentService.JoinTournament)
}
