package services

import (
	"log"
	"time"

	"fishing-tournament-system/models"
	"fishing-tournament-system/rules"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// catchRow joins accepted catches with the angler snapshot for display names.
type catchRow struct {
	models.Catch
	Username string
}

func (s *LeaderboardService) loadAcceptedEntries(tournamentID, currentAnglerID string) ([]rules.LeaderboardEntry, error) {
	var rows []catchRow
	query := `
        SELECT c.*, ta.username
        FROM catches c
        LEFT JOIN tournament_anglers ta ON c.angler_id = ta.external_angler_id
        WHERE c.tournament_id = ? AND c.status = 'accepted'
    `
	if err := s.DB.Raw(query, tournamentID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]rules.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		angler := r.Username
		if angler == "" {
			angler = r.AnglerID
		}
		entries = append(entries, rules.LeaderboardEntry{
			Source:        rules.SourceServer,
			TournamentID:  r.TournamentID,
			Angler:        angler,
			AnglerID:      r.AnglerID,
			Species:       r.Species,
			LengthIn:      r.LengthIn,
			SubmittedAt:   r.SubmittedAt,
			Status:        r.Status,
			IsCurrentUser: currentAnglerID != "" && r.AnglerID == currentAnglerID,
			PrizeEligible: r.PrizeEligible,
			Verified:      rules.VerifiedMeasurement(r.Catch.Measurement()),
		})
	}
	return entries, nil
}

func leaderboardResponse(c *fiber.Ctx, board rules.Leaderboard) error {
	// current_user_rank is null, not 0, when the caller has no entry.
	var currentUserRank interface{}
	if board.CurrentUserRank > 0 {
		currentUserRank = board.CurrentUserRank
	}
	return c.JSON(fiber.Map{
		"entries":           board.Entries,
		"current_user_rank": currentUserRank,
		"practice":          board.Practice,
		"stats":             board.Stats,
	})
}

// GetLeaderboard ranks the authoritative accepted catches for a tournament.
// Public; when the gateway forwards an identity header the caller's own rank
// is flagged.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	currentAnglerID := c.Get("X-User-ID")

	entries, err := s.loadAcceptedEntries(tournamentID, currentAnglerID)
	if err != nil {
		log.Printf("ERROR loading leaderboard for %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load leaderboard"})
	}

	board := rules.RankLeaderboard(tournamentID, entries, nil, c.Query("include_practice") == "true")
	return leaderboardResponse(c, board)
}

// PreviewLeaderboard merges the caller's not-yet-synced local catches into
// the authoritative board, exactly as the device renders it offline. Local
// entries never displace server entries for the same catch because a synced
// catch leaves the device's pending set.
func (s *LeaderboardService) PreviewLeaderboard(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	anglerID, ok := c.Locals("angler_id").(string)
	if !ok || anglerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing angler identity"})
	}

	type pendingCatch struct {
		TournamentID  string             `json:"tournament_id"`
		Species       string             `json:"species"`
		LengthIn      float64            `json:"length_in"`
		SubmittedAt   time.Time          `json:"submitted_at"`
		PrizeEligible *bool              `json:"prize_eligible,omitempty"`
		Measurement   *rules.Measurement `json:"measurement,omitempty"`
	}
	type Req struct {
		IncludePractice bool           `json:"include_practice"`
		Pending         []pendingCatch `json:"pending"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	entries, err := s.loadAcceptedEntries(tournamentID, anglerID)
	if err != nil {
		log.Printf("ERROR loading leaderboard for %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load leaderboard"})
	}

	local := make([]rules.LeaderboardEntry, 0, len(req.Pending))
	for _, p := range req.Pending {
		// Absent prize_eligible defaults to eligible, matching the device.
		eligible := p.PrizeEligible == nil || *p.PrizeEligible
		local = append(local, rules.LeaderboardEntry{
			Source:        rules.SourceLocal,
			TournamentID:  p.TournamentID,
			Angler:        "You",
			AnglerID:      anglerID,
			Species:       p.Species,
			LengthIn:      p.LengthIn,
			SubmittedAt:   p.SubmittedAt,
			Status:        models.CatchStatusPending,
			IsCurrentUser: true,
			PrizeEligible: eligible,
			Verified:      rules.VerifiedMeasurement(p.Measurement),
		})
	}

	board := rules.RankLeaderboard(tournamentID, entries, local, req.IncludePractice)
	return leaderboardResponse(c, board)
}
