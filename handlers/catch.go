package handlers

import (
	"fishing-tournament-system/middleware"
	"fishing-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatchRoutes(app *fiber.App, catchService *services.CatchService, leaderboardService *services.LeaderboardService) {
	// Leaderboards are public; identity headers only add the caller's rank.
	app.Get("/tournaments/:id/leaderboard", leaderboardService.GetLeaderboard)

	angler := middleware.AnglerContextMiddleware()

	// Verification sessions + submissions
	app.Post("/catches/sessions/start", angler, catchService.StartCatchSession)
	app.Post("/catches", angler, catchService.SubmitCatch)
	app.Get("/catches/mine", angler, catchService.GetMyCatches)
	app.Get("/catches/:id", angler, catchService.GetCatchByID)

	// Device-side pending merge preview
	app.Post("/tournaments/:id/leaderboard/preview", angler, leaderboardService.PreviewLeaderboard)

	// Moderation
	app.Patch("/catches/:id/review", angler, catchService.ReviewCatch)
}
