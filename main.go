package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fishing-tournament-system/handlers"
	"fishing-tournament-system/middleware"
	"fishing-tournament-system/models"
	"fishing-tournament-system/services"
	"fishing-tournament-system/utils"
	"fishing-tournament-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // catch photos cap at 20MB
	})

	// Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.CatchSession{},
		&models.Catch{},
		&models.TournamentAngler{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Photo storage: R2 when configured, local uploads dir otherwise.
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured (%v) — storing photos on local disk", err)
		if err := utils.EnsureUploadDir(); err != nil {
			log.Fatal("failed to ensure upload dir:", err)
		}
	}

	tournamentService := services.NewTournamentService(db)
	catchService := services.NewCatchService(db)
	leaderboardService := services.NewLeaderboardService(db)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("FISHING_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("FISHING_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewAnglerSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go syncWorker.Start(ctx)

	catchService.StartMaintenanceScheduler()

	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupCatchRoutes(app, catchService, leaderboardService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Angler Sync Worker running")
	log.Println("✅ Session maintenance scheduler running")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
